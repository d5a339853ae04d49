// Package selection keeps the table's checked rows and the chart's visible
// series in sync.
package selection

import (
	"github.com/lotas/matdash/internal/applog"
	"github.com/lotas/matdash/internal/reshape"
	"github.com/lotas/matdash/internal/types"
)

// Table is the row-selection surface of a table widget. Keys are row IDs
// (group keys), so selection survives sorting and filtering.
type Table interface {
	// AllKeys returns every row key before the global text filter.
	AllKeys() []types.GroupKey
	CheckedKeys() []types.GroupKey
	FilterText() string
	SetFilterText(string)
	ClearChecked()
	ToggleChecked(types.GroupKey)
}

// State is the bridge's externally visible state.
type State int

const (
	Idle State = iota
	Selected
	Filtering
)

func (s State) String() string {
	switch s {
	case Selected:
		return "selected"
	case Filtering:
		return "filtering"
	default:
		return "idle"
	}
}

// Bridge derives the chart's effective selection from table events. It is
// not safe for concurrent use; drive it from the UI event loop only.
type Bridge struct {
	effective    []types.GroupKey
	pendingReset bool
	filtering    bool
	hover        types.GroupKey
	hovering     bool
}

// State reports Filtering while a text filter is active or a reset is
// waiting for the filter to clear, otherwise Selected or Idle.
func (b *Bridge) State() State {
	switch {
	case b.filtering || b.pendingReset:
		return Filtering
	case b.effective != nil:
		return Selected
	default:
		return Idle
	}
}

// Effective returns the keys the chart should render, in order. nil means
// every group is shown; the result is never an empty non-nil slice.
func (b *Bridge) Effective() []types.GroupKey {
	if b.effective == nil {
		return nil
	}
	out := make([]types.GroupKey, len(b.effective))
	copy(out, b.effective)
	return out
}

// Visible reports whether the chart should render key.
func (b *Bridge) Visible(key types.GroupKey) bool {
	if b.effective == nil {
		return true
	}
	for _, k := range b.effective {
		if k == key {
			return true
		}
	}
	return false
}

// PendingReset reports whether a reset is waiting on the filter clear.
func (b *Bridge) PendingReset() bool { return b.pendingReset }

// Apply reads the table's checked rows. Nothing checked, or every row
// checked, shows all groups; otherwise the checked keys sorted under axis
// become the effective selection. Apply is ignored (returns false) while a
// reset is pending.
func (b *Bridge) Apply(t Table, axis types.Axis) bool {
	if b.pendingReset {
		applog.Info("selection.apply.ignored", "reason", "reset pending")
		return false
	}

	all := t.AllKeys()
	known := make(map[types.GroupKey]bool, len(all))
	for _, k := range all {
		known[k] = true
	}

	checked := make(map[types.GroupKey]bool)
	for _, k := range t.CheckedKeys() {
		if known[k] {
			checked[k] = true
		}
	}

	if len(checked) == 0 || len(checked) == len(known) {
		b.effective = nil
		return true
	}

	keys := make([]types.GroupKey, 0, len(checked))
	for k := range checked {
		keys = append(keys, k)
	}
	b.effective = reshape.SortKeys(keys, axis)
	return true
}

// Reset clears the filter and every checkbox and returns to showing all
// groups. When a text filter is active it is cleared first and the
// checkbox clear is deferred until FilterChanged sees the empty filter;
// deferred reports that case.
func (b *Bridge) Reset(t Table) (deferred bool) {
	b.effective = nil
	b.ClearHover()
	if t.FilterText() != "" {
		b.pendingReset = true
		t.SetFilterText("")
		return true
	}
	t.ClearChecked()
	b.pendingReset = false
	b.filtering = false
	return false
}

// FilterChanged must be called after the table's filter text changed and
// took effect. It completes a pending reset once the filter is empty.
func (b *Bridge) FilterChanged(t Table) {
	text := t.FilterText()
	b.filtering = text != ""
	if b.pendingReset && text == "" {
		t.ClearChecked()
		b.pendingReset = false
	}
}

// Retain drops effective keys that are no longer present, e.g. after new
// rows arrived. An emptied selection collapses to showing all groups.
func (b *Bridge) Retain(keys []types.GroupKey) {
	if b.effective == nil {
		return
	}
	present := make(map[types.GroupKey]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	kept := b.effective[:0:0]
	for _, k := range b.effective {
		if present[k] {
			kept = append(kept, k)
		}
	}
	if len(kept) == 0 || len(kept) == len(present) {
		kept = nil
	}
	b.effective = kept
}

// ChartClick toggles key's checkbox in the table. The chart follows on the
// next Apply.
func (b *Bridge) ChartClick(t Table, key types.GroupKey) {
	if b.pendingReset {
		return
	}
	t.ToggleChecked(key)
}

// ChartHover sets the highlighted series. It never changes Effective.
func (b *Bridge) ChartHover(key types.GroupKey) {
	b.hover = key
	b.hovering = true
}

// ClearHover removes the highlight.
func (b *Bridge) ClearHover() {
	b.hover = ""
	b.hovering = false
}

// Hover returns the highlighted series, if any.
func (b *Bridge) Hover() (types.GroupKey, bool) {
	return b.hover, b.hovering
}

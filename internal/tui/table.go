package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/matdash/internal/reshape"
	"github.com/lotas/matdash/internal/types"
)

// SortColumn is the active user sort. SortDefault orders rows by key under
// the grouping axis.
type SortColumn int

const (
	SortDefault SortColumn = iota
	SortAnomaly
	SortConfirmed
	SortFailure
	SortOK
	SortTotal
)

var sortNames = []string{"group", "anomaly", "confirmed", "failure", "ok", "total"}

func (c SortColumn) String() string { return sortNames[c] }

// TableModel is the results table: one checkable row per group, a global
// text filter over labels, and a sort column. Row identity is the group
// key, so checks survive sorting and filtering.
type TableModel struct {
	Rows    []types.TableRow // every row, in sort order
	Axis    types.Axis
	Checked map[types.GroupKey]bool
	Sort    SortColumn
	Hover   types.GroupKey
	Cursor  int
	Offset  int // scroll offset
	Width   int
	Height  int

	filterText string
	filter     reshape.TextFilter
}

func NewTableModel(rows []types.TableRow, axis types.Axis) TableModel {
	m := TableModel{
		Axis:    axis,
		Checked: make(map[types.GroupKey]bool),
	}
	m.SetRows(rows, axis)
	return m
}

// SetRows replaces the table contents. Checks on keys that still exist are
// kept; the filter text is kept.
func (m *TableModel) SetRows(rows []types.TableRow, axis types.Axis) {
	m.Rows = make([]types.TableRow, len(rows))
	copy(m.Rows, rows)
	m.Axis = axis

	present := make(map[types.GroupKey]bool, len(rows))
	for _, r := range rows {
		present[reshape.RowID(r)] = true
	}
	for k := range m.Checked {
		if !present[k] {
			delete(m.Checked, k)
		}
	}
	m.applySort()
	m.clampCursor()
}

// AllKeys returns every row key before the text filter, in row order.
func (m TableModel) AllKeys() []types.GroupKey {
	keys := make([]types.GroupKey, len(m.Rows))
	for i, r := range m.Rows {
		keys[i] = reshape.RowID(r)
	}
	return keys
}

// CheckedKeys returns the checked keys in row order.
func (m TableModel) CheckedKeys() []types.GroupKey {
	var keys []types.GroupKey
	for _, r := range m.Rows {
		if k := reshape.RowID(r); m.Checked[k] {
			keys = append(keys, k)
		}
	}
	return keys
}

func (m TableModel) FilterText() string { return m.filterText }

func (m *TableModel) SetFilterText(s string) {
	m.filterText = s
	m.filter = reshape.NewTextFilter(s)
	m.Cursor = 0
	m.Offset = 0
}

func (m *TableModel) ClearChecked() {
	m.Checked = make(map[types.GroupKey]bool)
}

func (m *TableModel) ToggleChecked(key types.GroupKey) {
	found := false
	for _, r := range m.Rows {
		if reshape.RowID(r) == key {
			found = true
			break
		}
	}
	if !found {
		return
	}
	if m.Checked == nil {
		m.Checked = make(map[types.GroupKey]bool)
	}
	if m.Checked[key] {
		delete(m.Checked, key)
	} else {
		m.Checked[key] = true
	}
}

// VisibleRows returns the rows passing the text filter.
func (m TableModel) VisibleRows() []types.TableRow {
	return m.filter.Apply(m.Rows)
}

// SelectedRow returns the row under the cursor, or nil.
func (m TableModel) SelectedRow() *types.TableRow {
	rows := m.VisibleRows()
	if m.Cursor >= 0 && m.Cursor < len(rows) {
		return &rows[m.Cursor]
	}
	return nil
}

// ToggleCursor toggles the check on the row under the cursor.
func (m *TableModel) ToggleCursor() {
	if row := m.SelectedRow(); row != nil {
		m.ToggleChecked(reshape.RowID(*row))
	}
}

// CheckVisible checks every visible row, or unchecks them all if they are
// all checked already.
func (m *TableModel) CheckVisible() {
	rows := m.VisibleRows()
	if m.Checked == nil {
		m.Checked = make(map[types.GroupKey]bool)
	}
	all := len(rows) > 0
	for _, r := range rows {
		if !m.Checked[reshape.RowID(r)] {
			all = false
			break
		}
	}
	for _, r := range rows {
		if all {
			delete(m.Checked, reshape.RowID(r))
		} else {
			m.Checked[reshape.RowID(r)] = true
		}
	}
}

// CycleSort moves to the next sort column.
func (m *TableModel) CycleSort() {
	m.Sort = (m.Sort + 1) % SortColumn(len(sortNames))
	m.applySort()
}

func (m *TableModel) applySort() {
	reshape.SortRows(m.Rows, m.Axis)
	if m.Sort == SortDefault {
		return
	}
	value := func(r types.TableRow) int64 {
		switch m.Sort {
		case SortAnomaly:
			return r.AnomalyCount
		case SortConfirmed:
			return r.ConfirmedCount
		case SortFailure:
			return r.FailureCount
		case SortOK:
			return r.OK()
		default:
			return r.MeasurementCount
		}
	}
	// Descending; ties keep the default order.
	sort.SliceStable(m.Rows, func(i, j int) bool {
		return value(m.Rows[i]) > value(m.Rows[j])
	})
}

func (m *TableModel) clampCursor() {
	n := len(m.VisibleRows())
	if m.Cursor >= n {
		m.Cursor = n - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	if m.Offset > m.Cursor {
		m.Offset = m.Cursor
	}
}

// MoveUp moves the cursor up.
func (m *TableModel) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
}

// MoveDown moves the cursor down.
func (m *TableModel) MoveDown() {
	rows := m.VisibleRows()
	if m.Cursor < len(rows)-1 {
		m.Cursor++
	}
	visibleRows := m.Height - 2 // header + rule
	if visibleRows < 1 {
		visibleRows = 1
	}
	if m.Cursor >= m.Offset+visibleRows {
		m.Offset = m.Cursor - visibleRows + 1
	}
}

// rowName is the display text of a row.
func rowName(r types.TableRow) string {
	switch {
	case r.Label != "":
		return r.Label
	case r.Key == "":
		return "All measurements"
	default:
		return string(r.Key)
	}
}

// View renders the table.
func (m TableModel) View() string {
	rows := m.VisibleRows()
	if len(m.Rows) == 0 {
		return "No data."
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	cursorStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	hoverStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	negStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))   // red
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	const numW = 9
	nameW := m.Width - 4 - 5*(numW+1)
	if nameW < 10 {
		nameW = 10
	}

	var b strings.Builder
	head := fmt.Sprintf("    %-*s", nameW, truncate(axisTitle(m.Axis), nameW))
	for _, h := range []string{"anomaly", "confirmed", "failure", "ok", "total"} {
		if sortNames[m.Sort] == h {
			h += "↓"
		}
		head += fmt.Sprintf(" %*s", numW, h)
	}
	b.WriteString(headerStyle.Render(head) + "\n")

	if len(rows) == 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  No rows match %q.", m.filterText)))
		return b.String()
	}

	visibleRows := m.Height - 1
	if visibleRows < 1 {
		visibleRows = 20
	}
	end := m.Offset + visibleRows
	if end > len(rows) {
		end = len(rows)
	}

	for i := m.Offset; i < end; i++ {
		r := rows[i]
		key := reshape.RowID(r)

		box := "[ ]"
		if m.Checked[key] {
			box = "[x]"
		}
		ok := fmt.Sprintf(" %*d", numW, r.OK())
		if r.OK() < 0 {
			ok = negStyle.Render(ok)
		}
		line := fmt.Sprintf("%s %-*s %*d %*d %*d%s %*d",
			box, nameW, truncate(rowName(r), nameW),
			numW, r.AnomalyCount, numW, r.ConfirmedCount, numW, r.FailureCount,
			ok, numW, r.MeasurementCount)

		if i == m.Cursor {
			for lipgloss.Width(line) < m.Width {
				line += " "
			}
			line = cursorStyle.Render(line)
		} else if m.Hover != "" && key == m.Hover {
			line = hoverStyle.Render(line)
		}

		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func axisTitle(a types.Axis) string {
	switch a {
	case types.AxisProbeCC:
		return "Country"
	case types.AxisProbeASN:
		return "ASN"
	case types.AxisCategoryCode:
		return "Category"
	case types.AxisInput:
		return "Input"
	case types.AxisDay:
		return "Day"
	default:
		return "Group"
	}
}

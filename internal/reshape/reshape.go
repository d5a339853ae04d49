// Package reshape groups raw aggregation rows by the Y axis and derives the
// table and chart models from them.
package reshape

import (
	"fmt"

	"github.com/lotas/matdash/internal/applog"
	"github.com/lotas/matdash/internal/labels"
	"github.com/lotas/matdash/internal/types"
)

// Row is a raw row with its derived ok count.
type Row struct {
	types.RawRow
	OKCount int64
}

// Index is the grouped view of one (rows, query) pair. It is built once and
// never modified.
type Index struct {
	Axis   types.Axis
	Keys   []types.GroupKey // first-seen order
	Groups map[types.GroupKey][]Row
	Labels map[types.GroupKey]string
}

// Len returns the number of groups.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Keys)
}

// Label returns the display label of key; "" when it has none.
func (idx *Index) Label(key types.GroupKey) string {
	if idx == nil {
		return ""
	}
	return idx.Labels[key]
}

// Reshape groups rows by q.AxisY in a single pass. Groups keep first-seen
// order; sorting is left to the consumers.
func Reshape(rows []types.RawRow, q types.Query) *Index {
	idx := &Index{
		Axis:   q.AxisY,
		Groups: make(map[types.GroupKey][]Row),
		Labels: make(map[types.GroupKey]string),
	}

	valid := q.AxisY.Valid()
	if !valid {
		applog.Info("reshape.axis", "axis_y", string(q.AxisY), "rows", len(rows))
	}

	for _, raw := range rows {
		r := Row{
			RawRow:  raw,
			OKCount: raw.MeasurementCount - raw.ConfirmedCount - raw.AnomalyCount,
		}

		key := groupKey(raw, q.AxisY, valid)
		if _, seen := idx.Groups[key]; !seen {
			idx.Keys = append(idx.Keys, key)
			idx.Labels[key] = labels.Label(key, q.AxisY)
		}
		idx.Groups[key] = append(idx.Groups[key], r)
	}
	return idx
}

func groupKey(r types.RawRow, axis types.Axis, valid bool) types.GroupKey {
	if !valid {
		return types.UndefinedKey
	}
	if axis == types.AxisNone {
		return ""
	}
	v, ok := r.Field(axis)
	if !ok {
		return types.UndefinedKey
	}
	return types.GroupKey(v)
}

// SafeReshape is Reshape for the render path: a panic while reshaping is
// logged and reported as a nil index so callers can show the empty state.
func SafeReshape(rows []types.RawRow, q types.Query) (idx *Index, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reshape: %v", r)
			applog.Error("reshape.failed", err, "rows", len(rows), "axis_y", string(q.AxisY))
			idx = nil
		}
	}()
	return Reshape(rows, q), nil
}

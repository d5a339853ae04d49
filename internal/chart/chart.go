// Package chart turns a reshaped index into per-group series laid out along
// the X axis.
package chart

import (
	"time"

	"github.com/lotas/matdash/internal/reshape"
	"github.com/lotas/matdash/internal/types"
)

// Point is one X bucket of a series.
type Point struct {
	X string `json:"x"`
	types.Counts
	OKCount int64 `json:"ok_count"`
}

// Series is the chart rendering of one group.
type Series struct {
	Key    types.GroupKey `json:"key"`
	Label  string         `json:"label"`
	Points []Point        `json:"points"`
}

// Max returns the largest measurement count across points.
func (s Series) Max() int64 {
	var m int64
	for _, p := range s.Points {
		if p.MeasurementCount > m {
			m = p.MeasurementCount
		}
	}
	return m
}

// Build returns one series per group of idx. With a nil selection every
// group is rendered in index order; otherwise exactly the selected groups,
// in selection order. Date X axes are gap-filled with empty points.
func Build(idx *reshape.Index, q types.Query, selection []types.GroupKey) []Series {
	if idx == nil {
		return nil
	}
	keys := idx.Keys
	if selection != nil {
		keys = selection
	}

	var out []Series
	for _, key := range keys {
		rows, ok := idx.Groups[key]
		if !ok {
			continue
		}
		out = append(out, Series{
			Key:    key,
			Label:  idx.Labels[key],
			Points: points(rows, q),
		})
	}
	return out
}

func points(rows []reshape.Row, q types.Query) []Point {
	byX := make(map[string]*Point)
	var xs []types.GroupKey
	for _, r := range rows {
		x := xValue(r.RawRow, q.AxisX)
		p, ok := byX[x]
		if !ok {
			p = &Point{X: x}
			byX[x] = p
			xs = append(xs, types.GroupKey(x))
		}
		p.Add(r.RawRow)
		p.OKCount += r.OKCount
	}

	if q.AxisX == types.AxisDay {
		for _, day := range dayRange(q, xs) {
			if _, ok := byX[day]; !ok {
				byX[day] = &Point{X: day}
				xs = append(xs, types.GroupKey(day))
			}
		}
	}

	xs = reshape.SortKeys(xs, q.AxisX)
	out := make([]Point, 0, len(xs))
	for _, x := range xs {
		out = append(out, *byX[string(x)])
	}
	return out
}

func xValue(r types.RawRow, axis types.Axis) string {
	if axis == types.AxisNone {
		return ""
	}
	v, ok := r.Field(axis)
	if !ok {
		return string(types.UndefinedKey)
	}
	return v
}

// dayRange covers [since, until) from the query, falling back to the span
// of the observed days.
func dayRange(q types.Query, seen []types.GroupKey) []string {
	if until, err := time.Parse("2006-01-02", q.Until); err == nil {
		if days := reshape.DatesBetween(q.Since, until.AddDate(0, 0, -1).Format("2006-01-02")); days != nil {
			return days
		}
	}
	var lo, hi string
	for _, k := range seen {
		s := string(k)
		if _, err := time.Parse("2006-01-02", s); err != nil {
			continue
		}
		if lo == "" || s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	return reshape.DatesBetween(lo, hi)
}

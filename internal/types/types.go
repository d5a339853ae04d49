package types

import (
	"net/url"
	"strconv"
)

// Axis is a grouping field name of an aggregation row.
type Axis string

const (
	AxisNone         Axis = ""
	AxisDay          Axis = "measurement_start_day"
	AxisInput        Axis = "input"
	AxisCategoryCode Axis = "category_code"
	AxisProbeCC      Axis = "probe_cc"
	AxisProbeASN     Axis = "probe_asn"
)

// Axes lists the selectable axis values in form order.
var Axes = []Axis{AxisDay, AxisInput, AxisCategoryCode, AxisProbeCC, AxisProbeASN, AxisNone}

// Valid reports whether a is one of the known axes (including none).
func (a Axis) Valid() bool {
	for _, v := range Axes {
		if a == v {
			return true
		}
	}
	return false
}

// GroupKey identifies a table row and a chart series.
type GroupKey string

// UndefinedKey groups rows whose axis field is absent.
const UndefinedKey GroupKey = "undefined"

// RawRow is one bucket returned by the aggregation API.
type RawRow struct {
	MeasurementStartDay string  `json:"measurement_start_day,omitempty"`
	Input               *string `json:"input,omitempty"`
	ProbeCC             *string `json:"probe_cc,omitempty"`
	ProbeASN            *int64  `json:"probe_asn,omitempty"`
	CategoryCode        *string `json:"category_code,omitempty"`

	AnomalyCount     int64 `json:"anomaly_count"`
	ConfirmedCount   int64 `json:"confirmed_count"`
	FailureCount     int64 `json:"failure_count"`
	MeasurementCount int64 `json:"measurement_count"`
}

// Field returns the stringified value of the given axis field and whether
// the row carries it.
func (r RawRow) Field(a Axis) (string, bool) {
	switch a {
	case AxisDay:
		return r.MeasurementStartDay, r.MeasurementStartDay != ""
	case AxisInput:
		return deref(r.Input)
	case AxisCategoryCode:
		return deref(r.CategoryCode)
	case AxisProbeCC:
		return deref(r.ProbeCC)
	case AxisProbeASN:
		if r.ProbeASN == nil {
			return "", false
		}
		return strconv.FormatInt(*r.ProbeASN, 10), true
	default:
		return "", false
	}
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}

// Query holds the user-selected request parameters.
type Query struct {
	AxisX        Axis
	AxisY        Axis
	ProbeCC      string
	ProbeASN     string
	CategoryCode string
	Input        string
	Since        string
	Until        string
	TestName     string
}

// Params returns the non-empty query fields as URL parameters.
func (q Query) Params() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("axis_x", string(q.AxisX))
	set("axis_y", string(q.AxisY))
	set("probe_cc", q.ProbeCC)
	set("probe_asn", q.ProbeASN)
	set("category_code", q.CategoryCode)
	set("input", q.Input)
	set("since", q.Since)
	set("until", q.Until)
	set("test_name", q.TestName)
	return v
}

// CacheKey returns a canonical string for q (sorted, encoded parameters).
func (q Query) CacheKey() string {
	return q.Params().Encode()
}

// Counts holds the summed counters of a group.
type Counts struct {
	AnomalyCount     int64 `json:"anomaly_count"`
	ConfirmedCount   int64 `json:"confirmed_count"`
	FailureCount     int64 `json:"failure_count"`
	MeasurementCount int64 `json:"measurement_count"`
}

// Add accumulates r's counters.
func (c *Counts) Add(r RawRow) {
	c.AnomalyCount += r.AnomalyCount
	c.ConfirmedCount += r.ConfirmedCount
	c.FailureCount += r.FailureCount
	c.MeasurementCount += r.MeasurementCount
}

// OK returns measurement - confirmed - anomaly, unclamped.
func (c Counts) OK() int64 {
	return c.MeasurementCount - c.ConfirmedCount - c.AnomalyCount
}

// TableRow is one aggregate row per group. Counts are int64 sums; inputs
// are assumed to fit.
type TableRow struct {
	Key   GroupKey `json:"key"`
	Label string   `json:"label"`
	Counts
}

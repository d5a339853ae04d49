package reshape

import (
	"reflect"
	"testing"

	"github.com/lotas/matdash/internal/types"
)

func strPtr(s string) *string { return &s }
func asnPtr(n int64) *int64  { return &n }

func exampleRows() []types.RawRow {
	return []types.RawRow{
		{MeasurementStartDay: "2023-01-01", ProbeCC: strPtr("IT"), AnomalyCount: 1, ConfirmedCount: 2, FailureCount: 0, MeasurementCount: 10},
		{MeasurementStartDay: "2023-01-02", ProbeCC: strPtr("IT"), AnomalyCount: 0, ConfirmedCount: 0, FailureCount: 1, MeasurementCount: 5},
	}
}

func TestReshape_ExampleScenario(t *testing.T) {
	q := types.Query{AxisX: types.AxisDay, AxisY: types.AxisProbeCC}
	idx := Reshape(exampleRows(), q)

	if !reflect.DeepEqual(idx.Keys, []types.GroupKey{"IT"}) {
		t.Fatalf("keys = %v, want [IT]", idx.Keys)
	}
	if idx.Label("IT") != "Italy" {
		t.Errorf("label = %q, want Italy", idx.Label("IT"))
	}
	group := idx.Groups["IT"]
	if len(group) != 2 {
		t.Fatalf("group has %d rows, want 2", len(group))
	}
	if group[0].OKCount != 7 || group[1].OKCount != 4 {
		t.Errorf("ok counts = %d, %d; want 7, 4", group[0].OKCount, group[1].OKCount)
	}

	rows := Project(idx)
	want := types.TableRow{
		Key:   "IT",
		Label: "Italy",
		Counts: types.Counts{
			AnomalyCount:     1,
			ConfirmedCount:   2,
			FailureCount:     1,
			MeasurementCount: 15,
		},
	}
	if len(rows) != 1 || rows[0] != want {
		t.Errorf("Project = %+v, want [%+v]", rows, want)
	}
}

func TestReshape_FirstSeenOrder(t *testing.T) {
	rows := []types.RawRow{
		{ProbeCC: strPtr("US"), MeasurementCount: 1},
		{ProbeCC: strPtr("IT"), MeasurementCount: 1},
		{ProbeCC: strPtr("US"), MeasurementCount: 1},
		{ProbeCC: strPtr("BR"), MeasurementCount: 1},
	}
	idx := Reshape(rows, types.Query{AxisY: types.AxisProbeCC})
	want := []types.GroupKey{"US", "IT", "BR"}
	if !reflect.DeepEqual(idx.Keys, want) {
		t.Errorf("keys = %v, want %v", idx.Keys, want)
	}
	if len(idx.Groups["US"]) != 2 {
		t.Errorf("US group has %d rows, want 2", len(idx.Groups["US"]))
	}
}

func TestReshape_Idempotent(t *testing.T) {
	rows := []types.RawRow{
		{MeasurementStartDay: "2023-01-02", CategoryCode: strPtr("NEWS"), MeasurementCount: 3},
		{MeasurementStartDay: "2023-01-01", CategoryCode: strPtr("XXX"), MeasurementCount: 4},
		{MeasurementStartDay: "2023-01-01", MeasurementCount: 2},
	}
	q := types.Query{AxisX: types.AxisDay, AxisY: types.AxisCategoryCode}
	a := Reshape(rows, q)
	b := Reshape(rows, q)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("reshape not idempotent:\n%+v\n%+v", a, b)
	}
}

func TestReshape_CountConservation(t *testing.T) {
	rows := []types.RawRow{
		{ProbeASN: asnPtr(3269), MeasurementCount: 10, AnomalyCount: 1},
		{ProbeASN: asnPtr(30722), MeasurementCount: 7},
		{MeasurementCount: 5},
		{ProbeASN: asnPtr(3269), MeasurementCount: 3, FailureCount: 2},
	}
	for _, axis := range types.Axes {
		idx := Reshape(rows, types.Query{AxisY: axis})
		var got, want int64
		for _, tr := range Project(idx) {
			got += tr.MeasurementCount
		}
		for _, r := range rows {
			want += r.MeasurementCount
		}
		if got != want {
			t.Errorf("axis %q: table total %d, raw total %d", axis, got, want)
		}
	}
}

func TestReshape_NegativeOKCountSurfaced(t *testing.T) {
	rows := []types.RawRow{{ProbeCC: strPtr("IT"), MeasurementCount: 1, AnomalyCount: 2, ConfirmedCount: 3}}
	idx := Reshape(rows, types.Query{AxisY: types.AxisProbeCC})
	if got := idx.Groups["IT"][0].OKCount; got != -4 {
		t.Errorf("ok count = %d, want -4", got)
	}
}

func TestReshape_MissingFieldGroupsUnderUndefined(t *testing.T) {
	rows := []types.RawRow{
		{Input: strPtr("https://a.example/"), MeasurementCount: 1},
		{MeasurementCount: 2},
		{MeasurementCount: 3},
	}
	idx := Reshape(rows, types.Query{AxisY: types.AxisInput})
	want := []types.GroupKey{"https://a.example/", types.UndefinedKey}
	if !reflect.DeepEqual(idx.Keys, want) {
		t.Fatalf("keys = %v, want %v", idx.Keys, want)
	}
	if len(idx.Groups[types.UndefinedKey]) != 2 {
		t.Errorf("undefined group has %d rows, want 2", len(idx.Groups[types.UndefinedKey]))
	}
}

func TestReshape_NoAxisSingleGroup(t *testing.T) {
	idx := Reshape(exampleRows(), types.Query{AxisX: types.AxisDay})
	if !reflect.DeepEqual(idx.Keys, []types.GroupKey{""}) {
		t.Fatalf("keys = %q, want single empty key", idx.Keys)
	}
	if len(idx.Groups[""]) != 2 {
		t.Errorf("group has %d rows, want 2", len(idx.Groups[""]))
	}
}

func TestReshape_MalformedAxisDegrades(t *testing.T) {
	idx := Reshape(exampleRows(), types.Query{AxisY: "bogus"})
	if !reflect.DeepEqual(idx.Keys, []types.GroupKey{types.UndefinedKey}) {
		t.Fatalf("keys = %v, want [undefined]", idx.Keys)
	}
	if idx.Label(types.UndefinedKey) != string(types.UndefinedKey) {
		t.Errorf("label = %q", idx.Label(types.UndefinedKey))
	}
}

func TestReshape_Empty(t *testing.T) {
	idx := Reshape(nil, types.Query{AxisY: types.AxisProbeCC})
	if idx.Len() != 0 {
		t.Errorf("Len = %d, want 0", idx.Len())
	}
	if rows := Project(idx); len(rows) != 0 {
		t.Errorf("Project = %v, want empty", rows)
	}
}

func TestReshape_UnknownCategoryHasEmptyLabel(t *testing.T) {
	rows := []types.RawRow{{CategoryCode: strPtr("ZZZZ"), MeasurementCount: 1}}
	idx := Reshape(rows, types.Query{AxisY: types.AxisCategoryCode})
	if got := idx.Label("ZZZZ"); got != "" {
		t.Errorf("label = %q, want empty", got)
	}
}

func TestSafeReshape(t *testing.T) {
	idx, err := SafeReshape(exampleRows(), types.Query{AxisY: types.AxisProbeCC})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("Len = %d, want 1", idx.Len())
	}
}

func TestProject_NilIndex(t *testing.T) {
	if rows := Project(nil); rows != nil {
		t.Errorf("Project(nil) = %v, want nil", rows)
	}
	var idx *Index
	if idx.Label("x") != "" || idx.Len() != 0 {
		t.Error("nil index should be empty")
	}
}

func TestRowID(t *testing.T) {
	if got := RowID(types.TableRow{Key: "IT", Label: "Italy"}); got != "IT" {
		t.Errorf("RowID = %q, want IT", got)
	}
}

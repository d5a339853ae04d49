package reshape

import (
	"reflect"
	"testing"

	"github.com/lotas/matdash/internal/types"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b types.GroupKey
		axis types.Axis
		want int
	}{
		{"day before", "2023-01-01", "2023-01-02", types.AxisDay, -1},
		{"day month rollover", "2023-01-31", "2023-02-01", types.AxisDay, -1},
		{"day equal", "2023-01-01", "2023-01-01", types.AxisDay, 0},
		// Germany (DE) sorts before Italy (IT) by name, Austria (AT) first.
		{"country by name", "IT", "DE", types.AxisProbeCC, 1},
		{"country name vs code order", "DE", "AT", types.AxisProbeCC, 1},
		{"country unknown uses code", "ZZ", "IT", types.AxisProbeCC, 1},
		{"asn numeric", "9", "10", types.AxisProbeASN, -1},
		{"asn prefix", "AS30722", "3269", types.AxisProbeASN, 1},
		{"asn non-numeric last", "undefined", "1", types.AxisProbeASN, 1},
		{"asn both non-numeric", "b", "a", types.AxisProbeASN, 1},
		{"category ordinal", "NEWS", "ANON", types.AxisCategoryCode, 1},
		{"input ordinal", "https://b/", "https://a/", types.AxisInput, 1},
		{"default ordinal", "b", "a", types.AxisNone, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b, tt.axis); got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := Compare(tt.b, tt.a, tt.axis); got != -tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}

func TestCompare_TotalOrder(t *testing.T) {
	keySets := map[types.Axis][]types.GroupKey{
		types.AxisDay:          {"2023-01-01", "2023-01-02", "2022-12-31", "undefined", ""},
		types.AxisProbeCC:      {"IT", "DE", "AT", "ZZ", "US", "undefined", ""},
		types.AxisProbeASN:     {"1", "10", "9", "AS9", "009", "x", "undefined", ""},
		types.AxisCategoryCode: {"NEWS", "ANON", "ZZZ", ""},
		types.AxisInput:        {"https://a/", "https://b/", "http://a/"},
	}
	for axis, keys := range keySets {
		for _, a := range keys {
			for _, b := range keys {
				ab, ba := Compare(a, b, axis), Compare(b, a, axis)
				if ab != -ba {
					t.Errorf("%s: not antisymmetric for %q,%q: %d vs %d", axis, a, b, ab, ba)
				}
				if (ab == 0) != (a == b) {
					t.Errorf("%s: Compare(%q,%q)=0 but keys differ", axis, a, b)
				}
				for _, c := range keys {
					if ab <= 0 && Compare(b, c, axis) <= 0 && Compare(a, c, axis) > 0 {
						t.Errorf("%s: not transitive for %q,%q,%q", axis, a, b, c)
					}
				}
			}
		}
	}
}

func TestSortKeys(t *testing.T) {
	keys := []types.GroupKey{"US", "IT", "DE"}
	got := SortKeys(keys, types.AxisProbeCC)
	want := []types.GroupKey{"DE", "IT", "US"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortKeys = %v, want %v", got, want)
	}
	if keys[0] != "US" {
		t.Error("SortKeys modified its input")
	}
}

func TestSortRows(t *testing.T) {
	rows := []types.TableRow{{Key: "100"}, {Key: "x"}, {Key: "20"}}
	SortRows(rows, types.AxisProbeASN)
	var got []types.GroupKey
	for _, r := range rows {
		got = append(got, r.Key)
	}
	want := []types.GroupKey{"20", "100", "x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortRows = %v, want %v", got, want)
	}
}

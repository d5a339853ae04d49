package reshape

import (
	"sort"
	"strconv"
	"strings"

	"github.com/lotas/matdash/internal/labels"
	"github.com/lotas/matdash/internal/types"
)

// Compare orders two group keys under axis and returns -1, 0 or 1.
//
// Days compare as ISO strings, countries by display name (raw code breaks
// ties), ASNs numerically with non-numeric keys last, anything else as
// plain strings.
func Compare(a, b types.GroupKey, axis types.Axis) int {
	switch axis {
	case types.AxisProbeCC:
		if c := strings.Compare(labels.Country(string(a)), labels.Country(string(b))); c != 0 {
			return c
		}
	case types.AxisProbeASN:
		na, okA := parseASN(a)
		nb, okB := parseASN(b)
		switch {
		case okA && okB:
			if na < nb {
				return -1
			}
			if na > nb {
				return 1
			}
		case okA:
			return -1
		case okB:
			return 1
		}
	}
	return strings.Compare(string(a), string(b))
}

func parseASN(k types.GroupKey) (int64, bool) {
	s := strings.TrimPrefix(strings.ToUpper(string(k)), "AS")
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

// SortKeys returns a sorted copy of keys.
func SortKeys(keys []types.GroupKey, axis types.Axis) []types.GroupKey {
	out := make([]types.GroupKey, len(keys))
	copy(out, keys)
	sort.SliceStable(out, func(i, j int) bool {
		return Compare(out[i], out[j], axis) < 0
	})
	return out
}

// SortRows sorts table rows in place by key under axis.
func SortRows(rows []types.TableRow, axis types.Axis) {
	sort.SliceStable(rows, func(i, j int) bool {
		return Compare(rows[i].Key, rows[j].Key, axis) < 0
	})
}

package reshape

import "github.com/lotas/matdash/internal/types"

// Project returns one summed row per group, in idx.Keys order.
func Project(idx *Index) []types.TableRow {
	if idx == nil {
		return nil
	}
	out := make([]types.TableRow, 0, len(idx.Keys))
	for _, key := range idx.Keys {
		tr := types.TableRow{Key: key, Label: idx.Labels[key]}
		for _, r := range idx.Groups[key] {
			tr.Add(r.RawRow)
		}
		out = append(out, tr)
	}
	return out
}

// RowID is the table row identity: the group key, never the position.
func RowID(row types.TableRow) types.GroupKey {
	return row.Key
}

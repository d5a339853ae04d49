package export

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/lotas/matdash/internal/types"
)

// CSV formats table rows as comma-separated values with a header line.
func CSV(q types.Query, rows []types.TableRow) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)

	header := []string{"key", strings.ToLower(axisTitle(q.AxisY)), "anomaly_count", "confirmed_count", "failure_count", "ok_count", "measurement_count"}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, r := range rows {
		rec := []string{
			string(r.Key),
			r.Label,
			strconv.FormatInt(r.AnomalyCount, 10),
			strconv.FormatInt(r.ConfirmedCount, 10),
			strconv.FormatInt(r.FailureCount, 10),
			strconv.FormatInt(r.OK(), 10),
			strconv.FormatInt(r.MeasurementCount, 10),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return b.String(), nil
}

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/matdash/internal/types"
)

// Markdown formats table rows as a markdown document with a summary table.
func Markdown(q types.Query, rows []types.TableRow) string {
	var b strings.Builder

	name := q.TestName
	if name == "" {
		name = "all tests"
	}
	fmt.Fprintf(&b, "# Measurements — %s\n", name)
	fmt.Fprintf(&b, "> Exported %s\n", time.Now().Format("2006-01-02 15:04"))

	var filters []string
	for _, f := range []struct{ k, v string }{
		{"since", q.Since},
		{"until", q.Until},
		{"country", q.ProbeCC},
		{"asn", q.ProbeASN},
		{"category", q.CategoryCode},
		{"input", q.Input},
	} {
		if f.v != "" {
			filters = append(filters, fmt.Sprintf("%s `%s`", f.k, f.v))
		}
	}
	if len(filters) > 0 {
		fmt.Fprintf(&b, "> %s\n", strings.Join(filters, ", "))
	}

	n := len(rows)
	noun := "rows"
	if n == 1 {
		noun = "row"
	}
	fmt.Fprintf(&b, "\n## %s (%d %s)\n\n", axisTitle(q.AxisY), n, noun)

	if n == 0 {
		b.WriteString("_No data._\n")
		return b.String()
	}

	b.WriteString("| Group | Anomaly | Confirmed | Failure | OK | Total |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|\n")
	var total types.Counts
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d | %d |\n",
			escapeCell(display(r)), r.AnomalyCount, r.ConfirmedCount, r.FailureCount, r.OK(), r.MeasurementCount)
		total.AnomalyCount += r.AnomalyCount
		total.ConfirmedCount += r.ConfirmedCount
		total.FailureCount += r.FailureCount
		total.MeasurementCount += r.MeasurementCount
	}
	if n > 1 {
		fmt.Fprintf(&b, "| **Total** | %d | %d | %d | %d | %d |\n",
			total.AnomalyCount, total.ConfirmedCount, total.FailureCount, total.OK(), total.MeasurementCount)
	}

	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

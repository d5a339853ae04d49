package reshape

import (
	"regexp"
	"time"

	"github.com/lotas/matdash/internal/types"
)

// TextFilter matches row labels case-insensitively against a pattern. A
// pattern that is not a valid regexp is matched literally.
type TextFilter struct {
	re *regexp.Regexp
}

// NewTextFilter compiles pattern. An empty pattern matches everything.
func NewTextFilter(pattern string) TextFilter {
	if pattern == "" {
		return TextFilter{}
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(pattern))
	}
	return TextFilter{re: re}
}

// Match reports whether row passes. Rows without a label always pass.
func (f TextFilter) Match(row types.TableRow) bool {
	if f.re == nil || row.Label == "" {
		return true
	}
	return f.re.MatchString(row.Label)
}

// Apply returns the rows that pass f, keeping order.
func (f TextFilter) Apply(rows []types.TableRow) []types.TableRow {
	if f.re == nil {
		return rows
	}
	out := make([]types.TableRow, 0, len(rows))
	for _, r := range rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

const dayLayout = "2006-01-02"

// DatesBetween returns every ISO day from since to until inclusive. Both
// bounds are YYYY-MM-DD; an unparseable bound or since > until yields nil.
func DatesBetween(since, until string) []string {
	start, err := time.Parse(dayLayout, since)
	if err != nil {
		return nil
	}
	end, err := time.Parse(dayLayout, until)
	if err != nil {
		return nil
	}
	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(dayLayout))
	}
	return days
}

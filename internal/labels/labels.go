// Package labels resolves grouping keys to display names.
package labels

import "github.com/lotas/matdash/internal/types"

// Label returns the display label for key under axis. Unknown country codes
// come back unchanged; unknown category codes come back empty.
func Label(key types.GroupKey, axis types.Axis) string {
	switch axis {
	case types.AxisProbeCC:
		return Country(string(key))
	case types.AxisCategoryCode:
		return Category(string(key))
	default:
		return string(key)
	}
}

// Country returns the name for an ISO 3166 alpha-2 code, or the code itself.
func Country(code string) string {
	if name, ok := countryNames[code]; ok {
		return name
	}
	return code
}

// Category returns the name for a category code, or "".
func Category(code string) string {
	return categoryNames[code]
}

// CategoryCode is a test-list category.
type CategoryCode struct {
	Code string
	Name string
}

// Categories returns the category list in display order.
func Categories() []CategoryCode {
	out := make([]CategoryCode, len(categoryList))
	copy(out, categoryList)
	return out
}

var categoryList = []CategoryCode{
	{"ALDR", "Alcohol & Drugs"},
	{"REL", "Religion"},
	{"PORN", "Pornography"},
	{"PROV", "Provocative Attire"},
	{"POLR", "Political Criticism"},
	{"HUMR", "Human Rights Issues"},
	{"ENV", "Environment"},
	{"MILX", "Terrorism and Militants"},
	{"HATE", "Hate Speech"},
	{"NEWS", "News Media"},
	{"XED", "Sex Education"},
	{"PUBH", "Public Health"},
	{"GMB", "Gambling"},
	{"ANON", "Anonymization and circumvention tools"},
	{"DATE", "Online Dating"},
	{"GRP", "Social Networking"},
	{"LGBT", "LGBTQ+"},
	{"FILE", "File-sharing"},
	{"HACK", "Hacking Tools"},
	{"COMT", "Communication Tools"},
	{"MMED", "Media sharing"},
	{"HOST", "Hosting and Blogging Platforms"},
	{"SRCH", "Search Engines"},
	{"GAME", "Gaming"},
	{"CULTR", "Culture"},
	{"ECON", "Economics"},
	{"GOVT", "Government"},
	{"COMM", "E-commerce"},
	{"CTRL", "Control content"},
	{"IGO", "Intergovernmental Organizations"},
	{"MISC", "Miscellaneous content"},
}

var categoryNames = func() map[string]string {
	m := make(map[string]string, len(categoryList))
	for _, c := range categoryList {
		m[c.Code] = c.Name
	}
	return m
}()

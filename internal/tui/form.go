package tui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/matdash/internal/api"
	"github.com/lotas/matdash/internal/labels"
	"github.com/lotas/matdash/internal/types"
)

type querySubmittedMsg struct {
	query types.Query
}

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldChoice
)

type formField struct {
	label   string
	kind    fieldKind
	input   textinput.Model // fieldText
	value   string          // fieldChoice
	options []Option        // fieldChoice
}

func (f formField) Value() string {
	if f.kind == fieldChoice {
		return f.value
	}
	return strings.TrimSpace(f.input.Value())
}

func (f formField) display() string {
	if f.kind == fieldText {
		return f.input.View()
	}
	for _, o := range f.options {
		if o.Value == f.value {
			return o.Label
		}
	}
	return f.value
}

// Field order of the query form.
const (
	fieldTestName = iota
	fieldSince
	fieldUntil
	fieldAxisX
	fieldAxisY
	fieldProbeCC
	fieldProbeASN
	fieldCategory
	fieldInput
	fieldCount
)

var asnPattern = regexp.MustCompile(`^(?i:AS)?[0-9]+$`)

// QueryForm edits a Query. Choice fields open an OptionPicker; text fields
// use a textinput. Enter on the submit button emits querySubmittedMsg.
type QueryForm struct {
	fields     []formField
	focus      int // fieldCount is the submit button
	picker     OptionPicker
	showPicker bool
	err        error
	Width      int
	Height     int
}

func axisOptions() []Option {
	return []Option{
		{"Day", string(types.AxisDay)},
		{"Country", string(types.AxisProbeCC)},
		{"ASN", string(types.AxisProbeASN)},
		{"Category", string(types.AxisCategoryCode)},
		{"Input", string(types.AxisInput)},
		{"None", string(types.AxisNone)},
	}
}

func newTextField(label, value, placeholder string) formField {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Width = 40
	ti.SetValue(value)
	return formField{label: label, kind: fieldText, input: ti}
}

func NewQueryForm(q types.Query) QueryForm {
	tests := make([]Option, 0, len(api.TestNames)+1)
	tests = append(tests, Option{"Any", ""})
	for _, n := range api.TestNames {
		tests = append(tests, Option{n, n})
	}

	countries := []Option{{"Any", ""}}
	for _, code := range labels.Countries() {
		countries = append(countries, Option{fmt.Sprintf("%s (%s)", labels.Country(code), code), code})
	}

	categories := []Option{{"Any", ""}}
	for _, c := range labels.Categories() {
		categories = append(categories, Option{fmt.Sprintf("%s (%s)", c.Name, c.Code), c.Code})
	}

	fields := make([]formField, fieldCount)
	fields[fieldTestName] = formField{label: "Test", kind: fieldChoice, value: q.TestName, options: tests}
	fields[fieldSince] = newTextField("Since", q.Since, "YYYY-MM-DD")
	fields[fieldUntil] = newTextField("Until", q.Until, "YYYY-MM-DD")
	fields[fieldAxisX] = formField{label: "X axis", kind: fieldChoice, value: string(q.AxisX), options: axisOptions()}
	fields[fieldAxisY] = formField{label: "Y axis", kind: fieldChoice, value: string(q.AxisY), options: axisOptions()}
	fields[fieldProbeCC] = formField{label: "Country", kind: fieldChoice, value: q.ProbeCC, options: countries}
	fields[fieldProbeASN] = newTextField("ASN", q.ProbeASN, "AS3269")
	fields[fieldCategory] = formField{label: "Category", kind: fieldChoice, value: q.CategoryCode, options: categories}
	fields[fieldInput] = newTextField("Input", q.Input, "https://example.com/")

	return QueryForm{fields: fields, focus: fieldCount}
}

// Query validates the form and returns its query.
func (f QueryForm) Query() (types.Query, error) {
	q := types.Query{
		TestName:     f.fields[fieldTestName].Value(),
		Since:        f.fields[fieldSince].Value(),
		Until:        f.fields[fieldUntil].Value(),
		AxisX:        types.Axis(f.fields[fieldAxisX].Value()),
		AxisY:        types.Axis(f.fields[fieldAxisY].Value()),
		ProbeCC:      f.fields[fieldProbeCC].Value(),
		ProbeASN:     f.fields[fieldProbeASN].Value(),
		CategoryCode: f.fields[fieldCategory].Value(),
		Input:        f.fields[fieldInput].Value(),
	}
	return q, ValidateQuery(q)
}

// ValidateQuery checks the fields the API would reject.
func ValidateQuery(q types.Query) error {
	var since, until time.Time
	var err error
	if q.Since != "" {
		if since, err = time.Parse("2006-01-02", q.Since); err != nil {
			return fmt.Errorf("since: expected YYYY-MM-DD, got %q", q.Since)
		}
	}
	if q.Until != "" {
		if until, err = time.Parse("2006-01-02", q.Until); err != nil {
			return fmt.Errorf("until: expected YYYY-MM-DD, got %q", q.Until)
		}
	}
	if !since.IsZero() && !until.IsZero() && until.Before(since) {
		return fmt.Errorf("until %s is before since %s", q.Until, q.Since)
	}
	if !q.AxisX.Valid() {
		return fmt.Errorf("unknown x axis %q", q.AxisX)
	}
	if !q.AxisY.Valid() {
		return fmt.Errorf("unknown y axis %q", q.AxisY)
	}
	if q.AxisX != types.AxisNone && q.AxisX == q.AxisY {
		return fmt.Errorf("x and y axis must differ")
	}
	if q.ProbeASN != "" && !asnPattern.MatchString(q.ProbeASN) {
		return fmt.Errorf("asn: expected a number like AS3269, got %q", q.ProbeASN)
	}
	return nil
}

// Editing reports whether keystrokes go to a text field or the picker.
func (f QueryForm) Editing() bool {
	return f.showPicker || (f.focus < fieldCount && f.fields[f.focus].kind == fieldText)
}

func (f *QueryForm) setFocus(i int) tea.Cmd {
	if f.focus < fieldCount && f.fields[f.focus].kind == fieldText {
		f.fields[f.focus].input.Blur()
	}
	f.focus = (i + fieldCount + 1) % (fieldCount + 1)
	if f.focus < fieldCount && f.fields[f.focus].kind == fieldText {
		return f.fields[f.focus].input.Focus()
	}
	return nil
}

func (f QueryForm) Update(msg tea.Msg) (QueryForm, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if f.focus < fieldCount && f.fields[f.focus].kind == fieldText {
			var cmd tea.Cmd
			f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
			return f, cmd
		}
		return f, nil
	}

	if f.showPicker {
		switch key.String() {
		case "up", "k":
			f.picker.MoveUp()
		case "down", "j":
			f.picker.MoveDown()
		case "enter":
			f.fields[f.focus].value = f.picker.Selected().Value
			f.showPicker = false
		case "esc":
			f.showPicker = false
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			if f.picker.SelectByNumber(int(key.String()[0] - '0')) {
				f.fields[f.focus].value = f.picker.Selected().Value
				f.showPicker = false
			}
		}
		return f, nil
	}

	switch key.String() {
	case "tab", "down":
		return f, f.setFocus(f.focus + 1)
	case "shift+tab", "up":
		return f, f.setFocus(f.focus - 1)
	case "enter":
		if f.focus == fieldCount {
			q, err := f.Query()
			f.err = err
			if err != nil {
				return f, nil
			}
			return f, func() tea.Msg { return querySubmittedMsg{query: q} }
		}
		field := f.fields[f.focus]
		if field.kind == fieldChoice {
			f.picker = NewOptionPicker("Select "+strings.ToLower(field.label)+":", field.options, field.value)
			f.picker.Width = f.Width
			f.picker.Height = f.Height
			f.showPicker = true
			return f, nil
		}
		return f, f.setFocus(f.focus + 1)
	}

	if f.focus < fieldCount && f.fields[f.focus].kind == fieldText {
		var cmd tea.Cmd
		f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
		return f, cmd
	}
	return f, nil
}

func (f QueryForm) View() string {
	if f.showPicker {
		return lipgloss.Place(f.Width, f.Height, lipgloss.Center, lipgloss.Center, f.picker.View())
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")).Width(10)
	focusStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Width(10)
	buttonStyle := lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	activeButton := buttonStyle.BorderForeground(lipgloss.Color("62")).Bold(true)
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Query") + "\n\n")
	for i, field := range f.fields {
		ls := labelStyle
		marker := "  "
		if i == f.focus {
			ls = focusStyle
			marker = "▸ "
		}
		value := field.display()
		if field.kind == fieldChoice {
			if value == "" {
				value = "Any"
			}
			value += " ▾"
		}
		b.WriteString(marker + ls.Render(field.label) + " " + value + "\n")
	}
	b.WriteString("\n")
	if f.focus == fieldCount {
		b.WriteString(activeButton.Render("Submit"))
	} else {
		b.WriteString(buttonStyle.Render("Submit"))
	}
	if f.err != nil {
		b.WriteString("\n" + errStyle.Render(f.err.Error()))
	}

	return lipgloss.Place(f.Width, f.Height, lipgloss.Center, lipgloss.Center, boxStyle.Render(b.String()))
}

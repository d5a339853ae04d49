package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Option is one choice of an OptionPicker.
type Option struct {
	Label string
	Value string
}

// OptionPicker is an overlay for choosing one value from a fixed list.
type OptionPicker struct {
	Title   string
	Options []Option
	Cursor  int
	Offset  int
	Width   int
	Height  int
}

func NewOptionPicker(title string, options []Option, current string) OptionPicker {
	cursor := 0
	for i, opt := range options {
		if opt.Value == current {
			cursor = i
			break
		}
	}
	p := OptionPicker{Title: title, Options: options, Cursor: cursor}
	p.adjustOffset()
	return p
}

func (m *OptionPicker) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
	m.adjustOffset()
}

func (m *OptionPicker) MoveDown() {
	if m.Cursor < len(m.Options)-1 {
		m.Cursor++
	}
	m.adjustOffset()
}

func (m *OptionPicker) SelectByNumber(n int) bool {
	idx := n - 1
	if idx >= 0 && idx < len(m.Options) {
		m.Cursor = idx
		return true
	}
	return false
}

func (m OptionPicker) Selected() Option {
	return m.Options[m.Cursor]
}

func (m OptionPicker) visible() int {
	v := m.Height - 10 // box border, padding, title, help
	if v < 5 {
		v = 5
	}
	return v
}

func (m *OptionPicker) adjustOffset() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.visible() {
		m.Offset = m.Cursor - m.visible() + 1
	}
}

func (m OptionPicker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.Title) + "\n\n")

	end := m.Offset + m.visible()
	if end > len(m.Options) {
		end = len(m.Options)
	}
	if m.Offset > 0 {
		b.WriteString(dimStyle.Render("  ↑ more") + "\n")
	}
	for i := m.Offset; i < end; i++ {
		opt := m.Options[i]
		label := opt.Label
		if i < 9 {
			label = fmt.Sprintf("%d  %s", i+1, label)
		} else {
			label = "   " + label
		}
		if i == m.Cursor {
			label = selectedStyle.Render(label)
		} else {
			label = normalStyle.Render("  " + label)
		}
		b.WriteString(label + "\n")
	}
	if end < len(m.Options) {
		b.WriteString(dimStyle.Render("  ↓ more") + "\n")
	}

	b.WriteString("\n" + normalStyle.Render("↑↓ navigate · enter select · 1-9 quick select · esc cancel"))

	return boxStyle.Render(b.String())
}

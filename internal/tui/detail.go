package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/matdash/internal/types"
)

// DetailModel is a scrollable text pane.
type DetailModel struct {
	Width      int
	Height     int
	Scroll     int // scroll offset
	ContentLen int // total lines in content
}

// ScrollUp adjusts the scroll offset upward.
func (m *DetailModel) ScrollUp() {
	if m.Scroll > 0 {
		m.Scroll--
	}
}

// ScrollDown adjusts the scroll offset downward.
func (m *DetailModel) ScrollDown() {
	if m.Scroll < m.ContentLen-m.Height {
		m.Scroll++
	}
	if m.Scroll < 0 {
		m.Scroll = 0
	}
}

// ResetScroll resets the scroll offset to 0.
func (m *DetailModel) ResetScroll() {
	m.Scroll = 0
}

// ViewQuery describes a query and, if known, when its rows were cached.
func (m DetailModel) ViewQuery(q types.Query, cachedAt time.Time, useCount int) string {
	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	var b strings.Builder
	field := func(name, value string) {
		if value == "" {
			value = dimStyle.Render("any")
		}
		b.WriteString(labelStyle.Render(name) + "\n")
		b.WriteString(truncate(value, m.Width-2) + "\n\n")
	}
	field("Test", q.TestName)
	field("Period", strings.TrimSpace(q.Since+" … "+q.Until))
	field("X axis", string(q.AxisX))
	field("Y axis", string(q.AxisY))
	field("Country", q.ProbeCC)
	field("ASN", q.ProbeASN)
	field("Category", q.CategoryCode)
	field("Input", q.Input)

	if useCount > 0 {
		noun := "times"
		if useCount == 1 {
			noun = "time"
		}
		b.WriteString(dimStyle.Render(fmt.Sprintf("Used %d %s", useCount, noun)) + "\n")
	}
	if !cachedAt.IsZero() {
		b.WriteString(dimStyle.Render("Cached "+relativeTime(cachedAt)) + "\n")
	}
	return b.String()
}

// ViewScrolled applies scroll offset and height truncation to the content string.
func (m *DetailModel) ViewScrolled(content string) string {
	if content == "" {
		return content
	}

	lines := strings.Split(content, "\n")
	m.ContentLen = len(lines)

	// Clamp scroll
	maxScroll := m.ContentLen - m.Height
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.Scroll > maxScroll {
		m.Scroll = maxScroll
	}
	if m.Scroll < 0 {
		m.Scroll = 0
	}

	end := m.Scroll + m.Height
	if end > len(lines) {
		end = len(lines)
	}

	if m.Scroll >= len(lines) {
		return ""
	}

	return strings.Join(lines[m.Scroll:end], "\n")
}

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

package tui

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/matdash/internal/storage"
)

const historyLimit = 100

type historyLoadedMsg struct {
	entries []storage.HistoryEntry
	cached  map[string]time.Time // query key -> fetched at
	err     error
}

type historyClearedMsg struct{ err error }

// HistoryView lists previously submitted queries. Enter re-runs one.
type HistoryView struct {
	db      *sql.DB
	entries []storage.HistoryEntry
	cached  map[string]time.Time
	cursor  int
	offset  int
	detail  DetailModel
	width   int
	height  int
	loading bool
	err     error
}

func NewHistoryView(db *sql.DB) HistoryView {
	return HistoryView{db: db}
}

func (v *HistoryView) SetSize(w, h int) {
	v.width = w
	v.height = h - 4
	v.detail.Width = w - (w * TableWidthPct / 100) - 3
	v.detail.Height = h - 4
}

// Count returns the number of loaded entries.
func (v HistoryView) Count() int { return len(v.entries) }

// Load reloads the history from the database.
func (v *HistoryView) Load() tea.Cmd {
	if v.db == nil {
		return nil
	}
	v.loading = true
	db := v.db
	return func() tea.Msg {
		entries, err := storage.RecentQueries(db, historyLimit)
		if err != nil {
			return historyLoadedMsg{err: err}
		}
		responses, err := storage.ListResponses(db)
		if err != nil {
			return historyLoadedMsg{err: err}
		}
		cached := make(map[string]time.Time, len(responses))
		for _, r := range responses {
			cached[r.QueryKey] = r.FetchedAt
		}
		return historyLoadedMsg{entries: entries, cached: cached}
	}
}

func clearHistory(db *sql.DB) tea.Cmd {
	return func() tea.Msg {
		return historyClearedMsg{err: storage.ClearHistory(db)}
	}
}

func (v HistoryView) Update(msg tea.Msg) (HistoryView, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		v.loading = false
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		v.err = nil
		v.entries = msg.entries
		v.cached = msg.cached
		if v.cursor >= len(v.entries) {
			v.cursor = 0
			v.offset = 0
		}
		return v, nil

	case historyClearedMsg:
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		return v, v.Load()

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if v.cursor < len(v.entries)-1 {
				v.cursor++
				v.adjustOffset()
				v.detail.ResetScroll()
			}
		case "k", "up":
			if v.cursor > 0 {
				v.cursor--
				v.adjustOffset()
				v.detail.ResetScroll()
			}
		case "enter":
			if v.cursor < len(v.entries) {
				q := v.entries[v.cursor].Query
				return v, func() tea.Msg { return querySubmittedMsg{query: q} }
			}
		case "r":
			return v, v.Load()
		case "X":
			if v.db != nil {
				return v, clearHistory(v.db)
			}
		}
	}
	return v, nil
}

func (v *HistoryView) adjustOffset() {
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	visible := v.height - 2
	if visible < 1 {
		visible = 1
	}
	if v.cursor >= v.offset+visible {
		v.offset = v.cursor - visible + 1
	}
}

func (v HistoryView) ViewList() string {
	if v.db == nil {
		return "History is disabled (no database)."
	}
	if v.loading {
		return "Loading history..."
	}
	if v.err != nil {
		return fmt.Sprintf("Error: %v", v.err)
	}
	if len(v.entries) == 0 {
		return "No queries yet."
	}

	cursorStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	listWidth := v.width * TableWidthPct / 100

	var b strings.Builder
	end := v.offset + v.height
	if end > len(v.entries) {
		end = len(v.entries)
	}

	for i := v.offset; i < end; i++ {
		e := v.entries[i]
		ts := e.UsedAt.Local().Format("2006-01-02 15:04")
		name := e.Query.TestName
		if name == "" {
			name = "all tests"
		}
		by := string(e.Query.AxisY)
		if by == "" {
			by = "-"
		}
		line := fmt.Sprintf("  %s  %s by %s  %s…%s", ts, name, by, e.Query.Since, e.Query.Until)
		line = truncate(line, listWidth)

		if i == v.cursor {
			for lipgloss.Width(line) < listWidth {
				line += " "
			}
			line = cursorStyle.Render(line)
		} else if _, ok := v.cached[e.Query.CacheKey()]; !ok {
			line = dimStyle.Render(line)
		}

		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (v HistoryView) ViewDetail() string {
	if v.cursor >= len(v.entries) {
		return ""
	}
	e := v.entries[v.cursor]
	content := v.detail.ViewQuery(e.Query, v.cached[e.Query.CacheKey()], e.UseCount)
	return v.detail.ViewScrolled(content)
}

func (v HistoryView) View() string {
	listBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Width(v.width * TableWidthPct / 100).
		Height(v.height)
	detailBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(v.detail.Width).
		Height(v.detail.Height)
	return lipgloss.JoinHorizontal(lipgloss.Top, listBorder.Render(v.ViewList()), detailBorder.Render(v.ViewDetail()))
}

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/matdash/internal/applog"
	"github.com/lotas/matdash/internal/chart"
	"github.com/lotas/matdash/internal/reshape"
	"github.com/lotas/matdash/internal/selection"
	"github.com/lotas/matdash/internal/server"
	"github.com/lotas/matdash/internal/types"
)

// filterChangedMsg is delivered after the table's filter text changed, so
// the bridge sees the new filter only once the table has applied it.
type filterChangedMsg struct{}

func filterChanged() tea.Msg { return filterChangedMsg{} }

// chartEventMsg is a click or hover from the chart widget.
type chartEventMsg struct {
	msg server.IncomingMsg
}

// ResultsView shows the table and the chart for the current rows.
type ResultsView struct {
	query      types.Query
	idx        *reshape.Index
	table      TableModel
	chart      ChartPane
	bridge     selection.Bridge
	filter     textinput.Model
	editing    bool
	focusChart bool
	fetchedAt  time.Time
	fromCache  bool
	failed     bool // reshape failed; rendering the empty state

	server *server.Server
	width  int
	height int
}

func NewResultsView(srv *server.Server) ResultsView {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter rows"
	ti.CharLimit = 128
	return ResultsView{
		table:  NewTableModel(nil, types.AxisNone),
		filter: ti,
		server: srv,
	}
}

func (v *ResultsView) SetSize(w, h int) {
	v.width = w
	v.height = h
	tableWidth := w * TableWidthPct / 100
	paneHeight := h - 4
	v.table.Width = tableWidth
	v.table.Height = paneHeight
	v.chart.Width = w - tableWidth - 3
	v.chart.Height = paneHeight
	v.filter.Width = tableWidth - 4
}

// Editing reports whether keystrokes go to the filter box.
func (v ResultsView) Editing() bool { return v.editing }

// HasData reports whether rows have been loaded.
func (v ResultsView) HasData() bool { return v.idx != nil || v.failed }

// Query returns the query of the displayed rows.
func (v ResultsView) Query() types.Query { return v.query }

// Rows returns the table rows in display order, after the text filter.
func (v ResultsView) Rows() []types.TableRow { return v.table.VisibleRows() }

// Stats summarizes the view for the navbar.
func (v ResultsView) Stats() string {
	if !v.HasData() {
		return ""
	}
	s := fmt.Sprintf("%d groups · %s", len(v.table.Rows), v.bridge.State())
	if eff := v.bridge.Effective(); eff != nil {
		s += fmt.Sprintf(" (%d shown)", len(eff))
	}
	if v.fromCache {
		s += " · cached " + relativeTime(v.fetchedAt)
	}
	return s
}

// SetData reshapes rows for q and refreshes the table and the chart. The
// effective selection keeps only keys that still exist.
func (v *ResultsView) SetData(q types.Query, rows []types.RawRow, fetchedAt time.Time, fromCache bool) tea.Cmd {
	v.query = q
	v.fetchedAt = fetchedAt
	v.fromCache = fromCache

	idx, err := reshape.SafeReshape(rows, q)
	v.idx = idx
	v.failed = err != nil

	v.table.SetRows(reshape.Project(idx), q.AxisY)
	v.bridge.Retain(v.table.AllKeys())
	applog.Info("results.loaded", "rows", len(rows), "groups", idx.Len(), "axis_y", string(q.AxisY), "cached", fromCache)
	return v.refreshChart()
}

// refreshChart rebuilds the series from the effective selection and pushes
// them to the chart widget.
func (v *ResultsView) refreshChart() tea.Cmd {
	v.chart.Series = chart.Build(v.idx, v.query, v.bridge.Effective())
	if v.chart.Offset >= len(v.chart.Series) {
		v.chart.Offset = 0
	}
	hover, _ := v.bridge.Hover()
	v.chart.Hover = hover
	v.table.Hover = hover
	return v.push()
}

func (v *ResultsView) push() tea.Cmd {
	if v.server == nil {
		return nil
	}
	var labels map[types.GroupKey]string
	if v.idx != nil {
		labels = v.idx.Labels
	}
	hover, _ := v.bridge.Hover()
	msg := server.NewRender(v.chart.Series, v.bridge.Effective(), hover, labels)
	srv := v.server
	return func() tea.Msg {
		if err := srv.Send(msg); err != nil {
			applog.Error("ws.send", err)
		}
		return nil
	}
}

func (v *ResultsView) apply() tea.Cmd {
	if !v.bridge.Apply(&v.table, v.query.AxisY) {
		return nil
	}
	applog.Info("selection.apply", "state", v.bridge.State().String(), "shown", len(v.bridge.Effective()))
	return v.refreshChart()
}

func (v *ResultsView) reset() tea.Cmd {
	deferred := v.bridge.Reset(&v.table)
	applog.Info("selection.reset", "deferred", deferred)
	v.editing = false
	v.filter.Blur()
	cmd := v.refreshChart()
	if deferred {
		v.filter.SetValue("")
		return tea.Batch(cmd, filterChanged)
	}
	return cmd
}

func (v ResultsView) Update(msg tea.Msg) (ResultsView, tea.Cmd) {
	switch msg := msg.(type) {
	case filterChangedMsg:
		wasPending := v.bridge.PendingReset()
		v.bridge.FilterChanged(&v.table)
		if wasPending && !v.bridge.PendingReset() {
			return v, v.refreshChart()
		}
		return v, nil

	case chartEventMsg:
		switch msg.msg.Type {
		case server.TypeSeriesClick:
			v.bridge.ChartClick(&v.table, msg.msg.Key)
			return v, nil
		case server.TypeSeriesHover:
			if msg.msg.Key == "" {
				v.bridge.ClearHover()
			} else {
				v.bridge.ChartHover(msg.msg.Key)
			}
			return v, v.refreshChart()
		case server.TypeReady:
			return v, v.push()
		}
		return v, nil

	case tea.MouseMsg:
		onChart := msg.X > v.table.Width+1
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if onChart {
				v.chart.ScrollUp()
			} else {
				v.table.MoveUp()
			}
		case tea.MouseButtonWheelDown:
			if onChart {
				v.chart.ScrollDown()
			} else {
				v.table.MoveDown()
			}
		}
		return v, nil

	case tea.KeyMsg:
		if v.editing {
			switch msg.String() {
			case "enter", "esc":
				v.editing = false
				v.filter.Blur()
				return v, nil
			}
			before := v.filter.Value()
			var cmd tea.Cmd
			v.filter, cmd = v.filter.Update(msg)
			if after := v.filter.Value(); after != before {
				v.table.SetFilterText(after)
				return v, tea.Batch(cmd, filterChanged)
			}
			return v, cmd
		}

		if msg.String() == "tab" || msg.String() == "shift+tab" {
			v.focusChart = !v.focusChart
			return v, nil
		}
		if v.focusChart {
			switch msg.String() {
			case "j", "down":
				v.chart.ScrollDown()
				return v, nil
			case "k", "up":
				v.chart.ScrollUp()
				return v, nil
			case "esc":
				v.focusChart = false
				return v, nil
			}
		}

		switch msg.String() {
		case "up", "k":
			v.table.MoveUp()
		case "down", "j":
			v.table.MoveDown()
		case " ":
			if !v.bridge.PendingReset() {
				v.table.ToggleCursor()
			}
			v.table.MoveDown()
		case "a":
			if !v.bridge.PendingReset() {
				v.table.CheckVisible()
			}
		case "enter":
			return v, v.apply()
		case "c", "esc":
			return v, v.reset()
		case "/":
			v.editing = true
			return v, v.filter.Focus()
		case "s":
			v.table.CycleSort()
		case "m":
			v.chart.CycleMetric()
		}
	}
	return v, nil
}

func (v ResultsView) View() string {
	if !v.HasData() {
		return "\n  No query yet. Press 2 to open the query form.\n"
	}

	tableBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Width(v.table.Width).
		Height(v.table.Height)
	chartBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(v.chart.Width).
		Height(v.chart.Height)
	if v.focusChart {
		tableBorder = tableBorder.BorderForeground(lipgloss.Color("240"))
		chartBorder = chartBorder.BorderForeground(lipgloss.Color("62"))
	}

	var tableContent string
	if v.failed {
		tableContent = "No data."
	} else {
		tableContent = v.table.View()
	}
	left := tableBorder.Render(tableContent)
	right := chartBorder.Render(v.chart.View())
	panes := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	var filterLine string
	if v.editing || v.table.FilterText() != "" {
		filterLine = " " + v.filter.View()
	} else {
		filterLine = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(" / to filter rows")
	}

	return lipgloss.JoinVertical(lipgloss.Left, filterLine, panes)
}

// HelpText is the bottom bar help for the results view.
func (v ResultsView) HelpText() string {
	if v.editing {
		return "type to filter · enter/esc done"
	}
	parts := []string{"↑↓/jk navigate", "space check", "a check all", "enter apply", "c reset", "/ filter", "s sort: " + v.table.Sort.String(), "m metric", "tab chart"}
	return strings.Join(parts, " · ")
}

package tui

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/matdash/internal/api"
	"github.com/lotas/matdash/internal/applog"
	"github.com/lotas/matdash/internal/server"
	"github.com/lotas/matdash/internal/storage"
	"github.com/lotas/matdash/internal/types"
)

// --- Messages ---

type rowsLoadedMsg struct {
	query     types.Query
	rows      []types.RawRow
	fetchedAt time.Time
	fromCache bool
	err       error
}

// Messages from the WebSocket server
type wsDisconnectedMsg struct{}
type wsStatusMsg struct{ connected bool }

// Config holds the dependencies of the TUI.
type Config struct {
	Client   *api.Client
	DB       *sql.DB        // nil disables the cache and history
	Server   *server.Server // nil when the chart bridge is off
	Query    types.Query
	NoCache  bool
	CacheTTL time.Duration
	OutDir   string // export directory
}

// --- Command helpers ---

// fetchRows returns cached rows for q when fresh enough, otherwise fetches
// them and stores them in the cache. Every submitted query is recorded in
// the history.
func fetchRows(cfg Config, q types.Query, bypassCache bool) tea.Cmd {
	return func() tea.Msg {
		if cfg.DB != nil {
			if err := storage.RecordQuery(cfg.DB, q); err != nil {
				applog.Error("history.record", err)
			}
			if !cfg.NoCache && !bypassCache {
				rows, fetchedAt, ok, err := storage.GetRows(cfg.DB, q, cfg.CacheTTL)
				if err != nil {
					applog.Error("cache.get", err, "key", q.CacheKey())
				} else if ok {
					applog.Info("cache.hit", "key", q.CacheKey(), "rows", len(rows))
					return rowsLoadedMsg{query: q, rows: rows, fetchedAt: fetchedAt, fromCache: true}
				}
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()
		rows, err := cfg.Client.Fetch(ctx, q)
		if err != nil {
			return rowsLoadedMsg{query: q, err: err}
		}
		if cfg.DB != nil {
			if err := storage.PutRows(cfg.DB, q, rows); err != nil {
				applog.Error("cache.put", err, "key", q.CacheKey())
			}
		}
		return rowsLoadedMsg{query: q, rows: rows, fetchedAt: time.Now()}
	}
}

func startWSServer(srv *server.Server) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if err := srv.ListenAndServe(ctx); err != nil {
			applog.Error("server.stop", err)
		}
		return wsDisconnectedMsg{}
	}
}

func listenWebSocket(srv *server.Server) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-srv.Messages()
		if !ok {
			return wsDisconnectedMsg{}
		}
		return chartEventMsg{msg: msg}
	}
}

// pollConnection reports the chart bridge connection state once a second.
func pollConnection(srv *server.Server) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return wsStatusMsg{connected: srv.Connected()}
	})
}

// --- Model ---

type Model struct {
	cfg Config

	view    ViewType
	results ResultsView
	form    QueryForm
	history HistoryView
	export  ExportView

	loading   bool
	pending   types.Query
	err       error
	connected bool
	width     int
	height    int
}

func NewModel(cfg Config) Model {
	return Model{
		cfg:     cfg,
		view:    ViewResults,
		results: NewResultsView(cfg.Server),
		form:    NewQueryForm(cfg.Query),
		history: NewHistoryView(cfg.DB),
		export:  NewExportView(cfg.OutDir),
		loading: true,
		pending: cfg.Query,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{fetchRows(m.cfg, m.cfg.Query, false), m.history.Load()}
	if m.cfg.Server != nil {
		cmds = append(cmds,
			startWSServer(m.cfg.Server),
			listenWebSocket(m.cfg.Server),
			pollConnection(m.cfg.Server),
		)
	}
	return tea.Batch(cmds...)
}

// editing reports whether the active view captures plain keystrokes.
func (m Model) editing() bool {
	switch m.view {
	case ViewQuery:
		return m.form.Editing()
	case ViewResults:
		return m.results.Editing()
	}
	return false
}

func (m *Model) setView(v ViewType) tea.Cmd {
	m.view = v
	switch v {
	case ViewHistory:
		return m.history.Load()
	case ViewExport:
		m.export.SetRows(m.results.Query(), m.results.Rows())
	}
	return nil
}

func (m *Model) submit(q types.Query, bypassCache bool) tea.Cmd {
	m.loading = true
	m.err = nil
	m.pending = q
	m.view = ViewResults
	applog.Info("query.submit", "params", q.CacheKey(), "refresh", bypassCache)
	return fetchRows(m.cfg, q, bypassCache)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.results.SetSize(m.width, m.height)
		m.history.SetSize(m.width, m.height)
		m.export.SetSize(m.width, m.height)
		m.form.Width = m.width
		m.form.Height = m.height - 3
		return m, nil

	case rowsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			applog.Error("query.fetch", msg.err, "params", msg.query.CacheKey())
			return m, nil
		}
		m.err = nil
		m.form = NewQueryForm(msg.query)
		m.form.Width = m.width
		m.form.Height = m.height - 3
		return m, m.results.SetData(msg.query, msg.rows, msg.fetchedAt, msg.fromCache)

	case querySubmittedMsg:
		return m, m.submit(msg.query, false)

	case filterChangedMsg:
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd

	case chartEventMsg:
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, tea.Batch(cmd, listenWebSocket(m.cfg.Server))

	case wsStatusMsg:
		if msg.connected != m.connected {
			applog.Info("ws.status", "connected", msg.connected)
		}
		m.connected = msg.connected
		return m, pollConnection(m.cfg.Server)

	case wsDisconnectedMsg:
		m.connected = false
		return m, nil

	case historyLoadedMsg, historyClearedMsg:
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd

	case exportSavedMsg:
		var cmd tea.Cmd
		m.export, cmd = m.export.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		if m.view == ViewResults {
			var cmd tea.Cmd
			m.results, cmd = m.results.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if !m.editing() {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				return m, m.setView(ViewResults)
			case "2":
				return m, m.setView(ViewQuery)
			case "3":
				return m, m.setView(ViewHistory)
			case "4":
				return m, m.setView(ViewExport)
			case "r":
				if m.view == ViewResults && !m.loading {
					q := m.pending
					if m.results.HasData() {
						q = m.results.Query()
					}
					return m, m.submit(q, true)
				}
			case "esc":
				if m.view == ViewQuery {
					m.view = ViewResults
					return m, nil
				}
			}
		}

		var cmd tea.Cmd
		switch m.view {
		case ViewResults:
			m.results, cmd = m.results.Update(msg)
		case ViewQuery:
			m.form, cmd = m.form.Update(msg)
		case ViewHistory:
			m.history, cmd = m.history.Update(msg)
		case ViewExport:
			m.export, cmd = m.export.Update(msg)
		}
		return m, cmd
	}

	// Cursor blink and other textinput messages.
	var cmd tea.Cmd
	switch m.view {
	case ViewQuery:
		m.form, cmd = m.form.Update(msg)
	case ViewResults:
		m.results, cmd = m.results.Update(msg)
	}
	return m, cmd
}

func (m Model) sourceLabel() string {
	host := m.cfg.Client.BaseURL
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Host
	}
	if m.cfg.Server == nil {
		return host
	}
	if m.connected {
		return host + " · chart ● connected"
	}
	return fmt.Sprintf("%s · chart ○ :%d", host, m.cfg.Server.Port())
}

func (m Model) View() string {
	counts := [4]int{len(m.results.table.Rows), 0, m.history.Count(), 0}
	stats := m.results.Stats()
	if m.loading {
		stats = "loading..."
	}
	navbar := renderNavbar(m.view, m.sourceLabel(), counts, stats, m.width)

	var body, help string
	switch {
	case m.view == ViewQuery:
		body = m.form.View()
		help = "tab/↑↓ move · enter edit/select · esc back"
	case m.view == ViewHistory:
		body = m.history.View()
		help = "↑↓/jk navigate · enter run · r reload · X clear history"
	case m.view == ViewExport:
		body = m.export.View()
		help = "↑↓/jk scroll · f format · w write file"
	case m.err != nil:
		body = fmt.Sprintf("\n  Error: %v\n\n  Press 2 to edit the query, r to retry, q to quit.\n", m.err)
	case m.loading && !m.results.HasData():
		body = fmt.Sprintf("\n  Fetching %s...\n", m.pending.TestName)
	default:
		body = m.results.View()
		help = m.results.HelpText()
	}
	if help != "" {
		help += " · "
	}
	help += "1-4 view · r refresh · q quit"

	bottomBarStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	return lipgloss.JoinVertical(lipgloss.Left, navbar, body, bottomBarStyle.Render(help))
}

package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/matdash/internal/applog"
	"github.com/lotas/matdash/internal/export"
	"github.com/lotas/matdash/internal/types"
)

// ExportFormat selects the export document.
type ExportFormat int

const (
	FormatMarkdown ExportFormat = iota
	FormatJSON
	FormatCSV
)

var formatExts = []string{"md", "json", "csv"}

func (f ExportFormat) String() string { return formatExts[f] }

// Render returns the export document for rows.
func (f ExportFormat) Render(q types.Query, rows []types.TableRow) (string, error) {
	switch f {
	case FormatJSON:
		return export.JSON(q, rows)
	case FormatCSV:
		return export.CSV(q, rows)
	default:
		return export.Markdown(q, rows), nil
	}
}

type exportSavedMsg struct {
	path string
	err  error
}

// ExportView previews the current table as Markdown, JSON or CSV and
// writes it to a file.
type ExportView struct {
	format  ExportFormat
	query   types.Query
	rows    []types.TableRow
	raw     string
	content string // rendered preview
	err     error
	saved   string
	outDir  string
	detail  DetailModel
	width   int
	height  int
}

func NewExportView(outDir string) ExportView {
	return ExportView{outDir: outDir}
}

func (v *ExportView) SetSize(w, h int) {
	v.width = w
	v.height = h
	v.detail.Width = w - 4
	v.detail.Height = h - 6
	v.render()
}

// SetRows replaces the exported rows and re-renders the preview.
func (v *ExportView) SetRows(q types.Query, rows []types.TableRow) {
	v.query = q
	v.rows = rows
	v.saved = ""
	v.detail.ResetScroll()
	v.render()
}

func (v *ExportView) render() {
	defer func() { v.detail.ContentLen = strings.Count(v.content, "\n") + 1 }()

	raw, err := v.format.Render(v.query, v.rows)
	v.raw, v.err = raw, err
	if err != nil {
		v.content = ""
		return
	}
	v.content = raw
	if v.format != FormatMarkdown {
		return
	}
	wrap := v.detail.Width - 2
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return
	}
	if rendered, err := r.Render(raw); err == nil {
		v.content = rendered
	}
}

func (v ExportView) fileName() string {
	name := v.query.TestName
	if name == "" {
		name = "all"
	}
	return fmt.Sprintf("matdash-%s-%s.%s", name, time.Now().Format("20060102-150405"), v.format)
}

func writeExport(path, data string) tea.Cmd {
	return func() tea.Msg {
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			return exportSavedMsg{err: fmt.Errorf("write %s: %w", path, err)}
		}
		applog.Info("export.write", "path", path, "bytes", len(data))
		return exportSavedMsg{path: path}
	}
}

func (v ExportView) Update(msg tea.Msg) (ExportView, tea.Cmd) {
	switch msg := msg.(type) {
	case exportSavedMsg:
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		v.saved = msg.path
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			v.detail.ScrollDown()
		case "k", "up":
			v.detail.ScrollUp()
		case "f":
			v.format = (v.format + 1) % ExportFormat(len(formatExts))
			v.saved = ""
			v.detail.ResetScroll()
			v.render()
		case "w":
			if v.err == nil && v.raw != "" {
				return v, writeExport(filepath.Join(v.outDir, v.fileName()), v.raw)
			}
		}
	}
	return v, nil
}

func (v ExportView) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Padding(0, 1)
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Width(v.width - 2).
		Height(v.detail.Height)

	header := titleStyle.Render(fmt.Sprintf("Export (%s)", v.format))
	switch {
	case v.err != nil:
		header += errStyle.Render(v.err.Error())
	case v.saved != "":
		header += okStyle.Render("saved " + v.saved)
	default:
		header += dimStyle.Render(fmt.Sprintf("%d rows", len(v.rows)))
	}

	return header + "\n" + boxStyle.Render(v.detail.ViewScrolled(v.content))
}

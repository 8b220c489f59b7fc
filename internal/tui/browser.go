package tui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ResultRow is one ranked candidate returned by query.Handler.Query, as
// presented to the browser (rank is 1-based display order, not a field of
// query.Result).
type ResultRow struct {
	Rank     int
	ItemID   int64
	LogScore float64
}

// ExplainTerm mirrors explain.Term without importing internal/explain,
// keeping the browser decoupled from the scoring packages the way
// internal/daemon's protocol types are.
type ExplainTerm struct {
	FeatureLabel string
	Contribution float64
}

// ExplainFunc lazily computes the per-feature breakdown for a row, invoked
// only when the user drills into it. Errors are shown inline rather than
// aborting the browse session.
type ExplainFunc func(row ResultRow) ([]ExplainTerm, float64, error)

// BrowseOptions configures the result browser.
type BrowseOptions struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Explain    ExplainFunc // optional; omit to disable the 'e' drill-down
}

// Browse displays query results interactively when Output is a TTY, falling
// back to a plain table otherwise (pipes, CI, or --no-tui).
func Browse(rows []ResultRow, opts BrowseOptions) error {
	interactive := !opts.ForcePlain && IsTTY(opts.Output) && !DetectCI()
	if !interactive {
		return RenderPlain(opts.Output, rows)
	}

	styles := GetStyles(opts.NoColor || DetectNoColor())
	m := newBrowserModel(rows, opts.Explain, styles)

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderPlain prints a non-interactive ranked table, one row per line.
func RenderPlain(out io.Writer, rows []ResultRow) error {
	for _, r := range rows {
		_, err := fmt.Fprintf(out, "%4d  %10d  %.6f\n", r.Rank, r.ItemID, r.LogScore)
		if err != nil {
			return err
		}
	}
	return nil
}

type browserModel struct {
	rows    []ResultRow
	cursor  int
	width   int
	height  int
	quit    bool
	styles  Styles
	explain ExplainFunc

	showExplain  bool
	explainCache map[int64][]ExplainTerm
	explainTotal map[int64]float64
	explainErr   map[int64]error
}

func newBrowserModel(rows []ResultRow, explain ExplainFunc, styles Styles) *browserModel {
	return &browserModel{
		rows:         rows,
		styles:       styles,
		explain:      explain,
		explainCache: make(map[int64][]ExplainTerm),
		explainTotal: make(map[int64]float64),
		explainErr:   make(map[int64]error),
		width:        80,
		height:       24,
	}
}

func (m *browserModel) Init() tea.Cmd {
	return nil
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quit = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case "enter", "e":
			if m.explain != nil && len(m.rows) > 0 {
				m.showExplain = !m.showExplain
				m.loadExplain(m.rows[m.cursor])
			}
		case "esc":
			m.showExplain = false
		}
	}

	return m, nil
}

func (m *browserModel) loadExplain(row ResultRow) {
	if _, ok := m.explainCache[row.ItemID]; ok {
		return
	}
	if _, ok := m.explainErr[row.ItemID]; ok {
		return
	}

	terms, total, err := m.explain(row)
	if err != nil {
		m.explainErr[row.ItemID] = err
		return
	}
	sort.Slice(terms, func(i, j int) bool {
		return terms[i].Contribution > terms[j].Contribution
	})
	m.explainCache[row.ItemID] = terms
	m.explainTotal[row.ItemID] = total
}

func (m *browserModel) View() string {
	if m.quit {
		return ""
	}

	if len(m.rows) == 0 {
		return m.styles.Dim.Render("no results\n")
	}

	contentWidth := m.width - 4
	if contentWidth < 30 {
		contentWidth = 30
	}

	list := m.renderList()
	sections := []string{list}

	if m.showExplain {
		sections = append(sections, m.renderDivider(contentWidth))
		sections = append(sections, m.renderExplain())
	}

	content := strings.Join(sections, "\n")
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDarkGray)).
		Padding(0, 1).
		Width(contentWidth)

	title := m.styles.Header.Render(fmt.Sprintf("baysets query • %d results", len(m.rows)))
	hint := m.styles.Dim.Render("↑/↓ move   enter/e explain   q quit")

	return lipgloss.JoinVertical(lipgloss.Left, title, panel.Render(content), hint)
}

func (m *browserModel) renderList() string {
	var lines []string
	for i, r := range m.rows {
		line := fmt.Sprintf("%4d  item %-10d  %s",
			r.Rank, r.ItemID, m.styles.Score.Render(fmt.Sprintf("%.6f", r.LogScore)))
		if i == m.cursor {
			lines = append(lines, m.styles.Selected.Render(line))
		} else {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func (m *browserModel) renderExplain() string {
	row := m.rows[m.cursor]

	if err, ok := m.explainErr[row.ItemID]; ok {
		return m.styles.Error.Render(fmt.Sprintf("explain failed: %v", err))
	}

	terms, ok := m.explainCache[row.ItemID]
	if !ok {
		return m.styles.Dim.Render("loading...")
	}

	var lines []string
	lines = append(lines, m.styles.Label.Render(fmt.Sprintf("total: %.6f", m.explainTotal[row.ItemID])))
	for _, t := range terms {
		lines = append(lines, fmt.Sprintf("  %-30s %s", t.FeatureLabel, m.styles.Score.Render(fmt.Sprintf("%+.6f", t.Contribution))))
	}
	return strings.Join(lines, "\n")
}

func (m *browserModel) renderDivider(width int) string {
	return m.styles.Border.Render(strings.Repeat("─", width))
}

var _ tea.Model = (*browserModel)(nil)

package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// focus represents which panel has keyboard input.
type focus int

const (
	focusTable focus = iota
	focusQASM
)

// reportModel is the interactive n_eff report: chart on top, per-count table and
// the reference circuit of the selected count below.
type reportModel struct {
	analysis   *Analysis
	table      table.Model
	qasmViewer textarea.Model
	focus      focus
	phaseIdx   int // reference phase shown in the QASM panel
	shownN     int
	shownPhase int
	width      int
	height     int
	statusMsg  string // transient status message (e.g. save confirmation)
}

func newReportModel(a *Analysis) reportModel {
	columns := make([]table.Column, len(summaryHeaders))
	for i, h := range summaryHeaders {
		columns[i] = table.Column{Title: h, Width: 10}
	}
	columns[0].Width = 3
	columns[len(columns)-1].Width = 16

	rows := make([]table.Row, len(a.Results))
	for i := range a.Results {
		rows[i] = table.Row(summaryRow(a, i))
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows)+1, 10)),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#565f89")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#1a1b26")).
		Background(lipgloss.Color("#ff9e64")).
		Bold(false)
	t.SetStyles(s)

	ta := textarea.New()
	ta.SetWidth(40)
	ta.SetHeight(12)
	ta.ShowLineNumbers = true
	ta.Blur()

	m := reportModel{
		analysis:   a,
		table:      t,
		qasmViewer: ta,
		focus:      focusTable,
		shownN:     -1,
	}
	m.syncQASM()
	return m
}

// selectedN returns the qubit count under the table cursor.
func (m *reportModel) selectedN() int {
	if len(m.analysis.Results) == 0 {
		return MinQubitCount
	}
	i := min(max(m.table.Cursor(), 0), len(m.analysis.Results)-1)
	return m.analysis.Results[i].N
}

// syncQASM rebuilds the QASM panel when the selected count or phase changed.
func (m *reportModel) syncQASM() {
	n := m.selectedN()
	if n == m.shownN && m.phaseIdx == m.shownPhase {
		return
	}
	m.qasmViewer.SetValue(NewQPECircuit(n, ReferencePhases[m.phaseIdx]).ToQASM())
	m.shownN, m.shownPhase = n, m.phaseIdx
}

// ──────────────────────────── Init / Update ────────────────────────────

func (m reportModel) Init() tea.Cmd {
	return nil
}

func (m reportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.qasmViewer.SetWidth(max(msg.Width/2-6, 20))
		m.qasmViewer.SetHeight(max(msg.Height/2-6, 4))

	case tea.KeyMsg:
		key := msg.String()
		m.statusMsg = ""

		if key == "ctrl+c" {
			return m, tea.Quit
		}

		switch key {
		case "tab":
			if m.focus == focusTable {
				m.focus = focusQASM
				m.table.Blur()
				m.qasmViewer.Focus()
			} else {
				m.focus = focusTable
				m.qasmViewer.Blur()
				m.table.Focus()
			}
			return m, nil
		case "q", "esc":
			return m, tea.Quit
		case "left", "h":
			m.phaseIdx = (m.phaseIdx + len(ReferencePhases) - 1) % len(ReferencePhases)
			m.syncQASM()
			return m, nil
		case "right", "l":
			m.phaseIdx = (m.phaseIdx + 1) % len(ReferencePhases)
			m.syncQASM()
			return m, nil
		case "ctrl+s":
			n := m.selectedN()
			name := circuitFileName(n, m.phaseIdx)
			if err := os.WriteFile(name, []byte(m.qasmViewer.Value()), 0644); err != nil {
				m.statusMsg = fmt.Sprintf("Save error: %v", err)
			} else {
				m.statusMsg = "Saved " + name
			}
			return m, nil
		}

		switch m.focus {
		case focusTable:
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			cmds = append(cmds, cmd)
			m.syncQASM()
		case focusQASM:
			// navigation only, the panel mirrors the generated circuit
			switch key {
			case "up", "down", "pgup", "pgdown", "home", "end", "k", "j":
				var cmd tea.Cmd
				m.qasmViewer, cmd = m.qasmViewer.Update(msg)
				cmds = append(cmds, cmd)
			}
		}
	}

	return m, tea.Batch(cmds...)
}

// View renders the UI.
func (m reportModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	chartH := max(m.height/2-2, 8)
	chartPanel := chartStyle.Width(m.width - 4).Render(
		titleStyle.Render("Phase estimation error vs n") + "\n" +
			RenderChart(m.analysis, m.width-8, chartH))

	tablePanel := tableStyle.Render(m.table.View())

	n := m.selectedN()
	qasmTitle := fmt.Sprintf("QASM n=%d φ=%s", n, phaseLabel(m.phaseIdx))
	if m.focus == focusQASM {
		qasmTitle += " ●"
	}
	qasmPanel := qasmStyle.Render(titleStyle.Render(qasmTitle) + "\n" + m.qasmViewer.View())

	bottom := lipgloss.JoinHorizontal(lipgloss.Top, tablePanel, qasmPanel)

	help := dimStyle.Render("↑↓ select n  ←→ phase  tab panel  ctrl+s save qasm  q quit")
	if m.statusMsg != "" {
		help = m.statusMsg
	}

	return lipgloss.JoinVertical(lipgloss.Left, chartPanel, bottom, help)
}

// phaseLabel prints ReferencePhases[i] as a reduced fraction.
func phaseLabel(i int) string {
	if i < 0 || i >= len(ReferencePhases) {
		return "?"
	}
	phase := ReferencePhases[i]
	for den := 1; den <= 64; den++ {
		num := math.Round(phase * float64(den))
		if math.Abs(phase*float64(den)-num) < 1e-9 {
			return fmt.Sprintf("%d/%d", int(num), den)
		}
	}
	return strconv.FormatFloat(phase, 'g', 4, 64)
}

// runReport shows the interactive report until the user quits.
func runReport(a *Analysis) error {
	p := tea.NewProgram(newReportModel(a), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// plainChart renders the chart without the TUI, for non-interactive output.
func plainChart(a *Analysis, width int) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Phase estimation error vs n"))
	sb.WriteString("\n")
	sb.WriteString(RenderChart(a, width, 16))
	return sb.String()
}

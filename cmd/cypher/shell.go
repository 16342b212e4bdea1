package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-cypher/pkg/engine"
	"github.com/dd0wney/cluso-cypher/pkg/graph/memgraph"
	"github.com/dd0wney/cluso-cypher/pkg/result"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

func newShellCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive query console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(opts.Params)
			if err != nil {
				return err
			}
			p := tea.NewProgram(newShellModel(opts.engine, opts.graph, params),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err = p.Run()
			return err
		},
	}
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)
)

type keyMap struct {
	Enter key.Binding
	Tab   key.Binding
	Prev  key.Binding
	Next  key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "run"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "query/results"),
	),
	Prev: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "history"),
	),
	Next: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "history"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Tab, k.Prev, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Enter, k.Tab},
		{k.Prev, k.Next},
		{k.Quit},
	}
}

type shellModel struct {
	engine  *engine.Engine
	graph   *memgraph.Graph
	params  map[string]value.Value
	input   textinput.Model
	results table.Model
	plan    string
	help    help.Model
	keys    keyMap

	history []string
	histPos int

	width      int
	height     int
	message    string
	messageErr bool
	startTime  time.Time
	queries    int
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func newShellModel(e *engine.Engine, g *memgraph.Graph, params map[string]value.Value) shellModel {
	ti := textinput.New()
	ti.Placeholder = "MATCH (n:Person) RETURN n"
	ti.Prompt = "cypher> "
	ti.CharLimit = 2000
	ti.Width = 80
	ti.Focus()

	return shellModel{
		engine:    e,
		graph:     g,
		params:    params,
		input:     ti,
		results:   tableModel(nil, nil, false),
		help:      help.New(),
		keys:      keys,
		startTime: time.Now(),
	}
}

func (m shellModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
	)
}

func (m shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-12, 20)

	case tickMsg:
		m.engine.Metrics().UpdateSystemMetrics(m.startTime)
		return m, tickCmd()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			if m.input.Focused() {
				m.input.Blur()
				m.results.Focus()
			} else {
				m.results.Blur()
				m.input.Focus()
			}
			return m, nil

		case m.input.Focused() && key.Matches(msg, m.keys.Enter):
			m.execute(m.input.Value())
			return m, nil

		case m.input.Focused() && key.Matches(msg, m.keys.Prev):
			m.recall(-1)
			return m, nil

		case m.input.Focused() && key.Matches(msg, m.keys.Next):
			m.recall(1)
			return m, nil
		}
	}

	if m.input.Focused() {
		m.input, cmd = m.input.Update(msg)
	} else {
		m.results, cmd = m.results.Update(msg)
	}
	return m, cmd
}

// recall walks the query history; stepping past the newest entry clears
// the input
func (m *shellModel) recall(step int) {
	if len(m.history) == 0 {
		return
	}
	m.histPos = min(max(m.histPos+step, 0), len(m.history))
	if m.histPos == len(m.history) {
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[m.histPos])
	m.input.CursorEnd()
}

func (m *shellModel) execute(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		m.message = "Query cannot be empty"
		m.messageErr = true
		return
	}
	m.history = append(m.history, query)
	m.histPos = len(m.history)
	m.input.SetValue("")
	m.queries++

	start := time.Now()
	rows, err := m.engine.Run(context.Background(), query, m.params)
	if err != nil {
		m.message = err.Error()
		m.messageErr = true
		return
	}
	var out [][]result.Value
	for ; rows.Valid(); rows.Next() {
		out = append(out, rows.Row())
	}
	err = rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	elapsed := time.Since(start)

	header := rows.Header()
	m.plan = ""
	if len(out) == 1 && len(header) == 1 && strings.HasPrefix(header[0], "@") && header[0] != "@summary" {
		m.plan = cell(out[0][0])
		m.results = tableModel(nil, nil, false)
	} else {
		m.results = tableModel(header, out, !m.input.Focused())
	}

	if err != nil {
		m.message = fmt.Sprintf("%v (after %d rows)", err, len(out))
		m.messageErr = true
		return
	}
	m.message = footer(rows, len(out)) + " in " + elapsed.Round(time.Microsecond).String()
	m.messageErr = false
}

func (m shellModel) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Cypher Shell"))
	s.WriteString("  ")
	s.WriteString(helpStyle.Render(fmt.Sprintf("%d vertices, %d edges, %d queries, up %s",
		m.graph.VertexCount(), m.graph.EdgeCount(), m.queries,
		time.Since(m.startTime).Round(time.Second))))
	s.WriteString("\n\n")
	s.WriteString(m.input.View())
	s.WriteString("\n")

	switch {
	case m.plan != "":
		s.WriteString(contentStyle.Render(planStyle.Render(strings.TrimRight(m.plan, "\n"))))
	case len(m.results.Columns()) > 0:
		s.WriteString(contentStyle.Render(headerStyle.Render("Results") + "\n" + m.results.View()))
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

package spinner

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	glyphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F6821F"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#01FAC6")).Bold(true)
)

// StatusMsg replaces the status line, e.g. when the pipeline moves from
// resolving to building.
type StatusMsg string

// DoneMsg finishes the spinner with a final message.
type DoneMsg string

// Model is a single-line activity indicator whose status text follows the
// pipeline stage.
type Model struct {
	spin     spinner.Model
	status   string
	final    string
	quitting bool
}

func New(status string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = glyphStyle
	return Model{spin: s, status: status}
}

func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case StatusMsg:
		m.status = string(msg)
		return m, nil

	case DoneMsg:
		m.final = string(msg)
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
}

func (m Model) View() string {
	if m.final != "" {
		return doneStyle.Render("✔ "+m.final) + "\n"
	}
	str := fmt.Sprintf("%s %s", m.spin.View(), m.status)
	if m.quitting {
		return str + "\n"
	}
	return str
}

package watch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	apiURL string

	width  int
	height int

	health    healthMsg
	connected bool
	lastCheck time.Time
	lastError string

	spinner spinner.Model
	theme   Theme
}

// New creates a new watch TUI model.
func New(apiURL string) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &Model{
		apiURL:  apiURL,
		spinner: sp,
		theme:   NewDefaultTheme(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg { return fetchHealth(m.apiURL) },
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })

	case healthMsg:
		m.health = msg
		m.connected = true
		m.lastCheck = time.Now()
		m.lastError = ""
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.apiURL)
		})

	case errMsg:
		m.connected = false
		m.lastError = msg.Error()
		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.apiURL)
		})

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Connecting to pdfrelay..."
	}

	header := m.renderHeader()
	ops := m.renderOperations()

	var errBar string
	if m.lastError != "" {
		errBar = m.theme.StatusFailed.Render(" last error: " + m.lastError)
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(" [q] Quit")

	parts := []string{header, ops}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

func (m Model) renderHeader() string {
	var status string
	if m.connected {
		status = m.theme.StatusOK.Render("HEALTHY")
	} else {
		status = m.theme.StatusFailed.Render("CONNECTING " + m.spinner.View())
	}

	uptime := time.Duration(m.health.UptimeSeconds) * time.Second
	line := fmt.Sprintf("%s  uptime %s  artifacts %d  pending expiries %d",
		status, uptime, m.health.ArtifactsLive, m.health.ExpiriesPending)

	title := m.theme.Title.Render("PDFRELAY " + m.apiURL)
	return m.theme.Border.Width(m.width - 6).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, " "+line),
	)
}

func (m Model) renderOperations() string {
	var b strings.Builder
	b.WriteString(m.theme.Header.Render("OPERATIONS") + "\n")

	if len(m.health.OperationsServed) == 0 {
		b.WriteString(m.theme.Dim.Render("  No operations served yet..."))
	} else {
		kinds := make([]string, 0, len(m.health.OperationsServed))
		for k := range m.health.OperationsServed {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			b.WriteString(fmt.Sprintf("  %-20s %s\n",
				k, m.theme.Highlight.Render(fmt.Sprintf("%d", m.health.OperationsServed[k]))))
		}
	}

	return m.theme.Border.Width(m.width - 6).Render(b.String())
}

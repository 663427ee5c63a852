package remote

import (
	"fmt"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jypelle/busboard/apimodel"
	"github.com/jypelle/busboard/internal/tool"
	"strings"
	"time"
)

const (
	pollInterval        = time.Second
	confirmPollInterval = 250 * time.Millisecond
	confirmTimeout      = 5 * time.Second
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#005F87")).Padding(0, 2)
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFAA00"))
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#44FF44"))
)

type Config struct {
	ControlFile string
	StatusFile  string
}

// statusMsg carries a nil status when the file is missing or torn
type statusMsg struct {
	status *apimodel.Status
}

type tickMsg time.Time

type pendingCommand struct {
	modeToken apimodel.ModeToken
	deadline  time.Time
	// status update time when the command was sent
	sentUpdated string
}

// Model is the remote control screen: last known status, a menu, and the
// outcome of the last command.
type Model struct {
	config Config
	keys   KeyMap

	status   *apimodel.Status
	pending  *pendingCommand
	message  string
	quitting bool

	now             func() time.Time
	readStatus      func(filename string) (*apimodel.Status, error)
	sendCommand     func(filename string, modeToken apimodel.ModeToken) error
	commandConsumed func(filename string) bool
}

func NewModel(config Config) Model {
	return Model{
		config:      config,
		keys:        DefaultKeyMap(),
		now:             time.Now,
		readStatus:      ReadStatus,
		sendCommand:     SendCommand,
		commandConsumed: isCommandConsumed,
	}
}

// isCommandConsumed tells if the server removed the command file
func isCommandConsumed(filename string) bool {
	exists, err := tool.IsFileExists(filename)
	return err == nil && !exists
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		return m.readStatusMsg()
	}
}

func (m Model) readStatusMsg() tea.Msg {
	status, err := m.readStatus(m.config.StatusFile)
	if err != nil {
		return statusMsg{}
	}
	return statusMsg{status: status}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tickMsg:
		return m, tea.Batch(m.fetchStatus(), tick())
	case statusMsg:
		m.status = msg.status
		if m.checkPending() {
			return m, tea.Tick(confirmPollInterval, func(time.Time) tea.Msg {
				return m.readStatusMsg()
			})
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetchStatus()
	}

	for _, mb := range m.keys.modeBindings() {
		if !key.Matches(msg, mb.binding) {
			continue
		}
		if err := m.sendCommand(m.config.ControlFile, mb.modeToken); err != nil {
			m.pending = nil
			m.message = fmt.Sprintf("Unable to send command: %v", err)
			return m, nil
		}
		m.pending = &pendingCommand{modeToken: mb.modeToken, deadline: m.now().Add(confirmTimeout)}
		if m.status != nil {
			m.pending.sentUpdated = m.status.Updated
		}
		m.message = fmt.Sprintf("-> Switching to %s...", mb.modeToken)
		return m, m.fetchStatus()
	}
	return m, nil
}

// checkPending settles the last command against the status, true while still waiting.
// A matching mode only counts once the server has read the command.
func (m *Model) checkPending() bool {
	if m.pending == nil {
		return false
	}
	if m.status != nil && m.status.Mode == m.pending.modeToken &&
		(m.status.Updated != m.pending.sentUpdated || m.commandConsumed(m.config.ControlFile)) {
		m.message = fmt.Sprintf("Mode changed to %s", m.pending.modeToken)
		m.pending = nil
		return false
	}
	if !m.now().Before(m.pending.deadline) {
		m.message = fmt.Sprintf("Mode %s not confirmed after %s", m.pending.modeToken, confirmTimeout)
		m.pending = nil
		return false
	}
	return true
}

func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	rule := ruleStyle.Render(strings.Repeat("-", 40))
	var b strings.Builder
	b.WriteString(titleStyle.Render("BUS DISPLAY REMOTE CONTROL") + "\n\n")
	for _, line := range StatusLines(m.status) {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + rule + "\n")
	b.WriteString("  1) Bus              3) Welcome\n")
	b.WriteString("  2) Bus opposite     4) Blank\n")
	b.WriteString("  5) Exit             r) Refresh\n")
	b.WriteString(rule + "\n")
	if m.message != "" {
		b.WriteString("\n" + messageStyle.Render(m.message) + "\n")
	}
	return b.String()
}

// StatusLines describes a status, nil when the server never published one
func StatusLines(status *apimodel.Status) []string {
	if status == nil {
		return []string{warnStyle.Render("Status unknown (service may not be running)")}
	}

	updated := "Last update: " + status.Updated
	if status.IsTest {
		updated += warnStyle.Render(" [TEST DATA]")
	}
	lines := []string{updated, strings.Repeat("-", 40)}

	switch status.Mode {
	case apimodel.BusModeToken, apimodel.BusOppositeModeToken:
		lines = append(lines, fmt.Sprintf("Screen: %s -> %s", orDefault(status.Line, "BUS"), orDefault(status.Direction, string(status.Mode))))
		if len(status.Departures) == 0 {
			lines = append(lines, "  No departures")
		}
		for i, departure := range status.Departures {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, departure))
		}
	case apimodel.WelcomeModeToken:
		lines = append(lines,
			"Screen: WELCOME",
			"  Greeting: "+orDefault(status.Greeting, "?"),
			"  Time: "+orDefault(status.Time, "?"),
			"  Date: "+orDefault(status.Date, "?"),
		)
		if status.Weather != nil {
			lines = append(lines, fmt.Sprintf("  Weather: Mat %s | Ap-m %s | Soir %s",
				orDefault(status.Weather.Morning, "?"),
				orDefault(status.Weather.Afternoon, "?"),
				orDefault(status.Weather.Evening, "?"),
			))
		}
	case apimodel.BlankModeToken:
		lines = append(lines, "Screen: BLANK (white)")
	default:
		lines = append(lines, "Screen: "+orDefault(string(status.Mode), "unknown"))
	}

	stats := fmt.Sprintf("Api %s: %d ok, %d failed", status.ApiStats.Date, status.ApiStats.Success, status.ApiStats.Failed)
	if status.ApiStats.LastError != nil {
		stats += " (" + *status.ApiStats.LastError + ")"
	}
	lines = append(lines, mutedStyle.Render(stats))
	return lines
}

func orDefault(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gatescan/terminal/internal/gateway"
	"github.com/gatescan/terminal/internal/model"
	"github.com/gatescan/terminal/internal/session"
	"github.com/gatescan/terminal/internal/workflow"
)

// refreshMsg asks the model to re-read the controller snapshot. Sent by the
// controller's notify hook and by finished commands.
type refreshMsg struct{}

// Refresh builds the message the notify hook should send to the program.
func Refresh() tea.Msg {
	return refreshMsg{}
}

// loginResultMsg is the outcome of an asynchronous login call.
type loginResultMsg struct {
	err error
}

// screen selects which top-level view is rendered.
type screen int

const (
	screenLogin screen = iota
	screenScanner
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	activeTab   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("27")).Padding(0, 1)
	inactiveTab = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Padding(0, 1)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
	popupStyle  = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("42")).Padding(1, 3)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model is the operator-facing terminal UI. It renders workflow snapshots
// and translates keystrokes into controller intents; all workflow state
// lives in the controller.
type Model struct {
	ctrl    *workflow.Controller
	client  *gateway.Client
	session session.Store

	screen    screen
	width     int
	loginErr  string
	loggingIn bool

	username textinput.Model
	password textinput.Model
	manual   textinput.Model
	reason   textinput.Model

	loginFocus      int
	promptingReason bool
}

// New creates the terminal UI. If the session store already holds a token the
// login screen is skipped.
func New(ctrl *workflow.Controller, client *gateway.Client, store session.Store) Model {
	username := textinput.New()
	username.Placeholder = "Username"
	username.Focus()

	password := textinput.New()
	password.Placeholder = "Password"
	password.EchoMode = textinput.EchoPassword

	manual := textinput.New()
	manual.Placeholder = "Enter QR code value"

	reason := textinput.New()
	reason.Placeholder = "Rejection reason"

	m := Model{
		ctrl:     ctrl,
		client:   client,
		session:  store,
		screen:   screenLogin,
		username: username,
		password: password,
		manual:   manual,
		reason:   reason,
	}
	if store.Token() != "" {
		m.screen = screenScanner
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case refreshMsg:
		return m, nil
	case loginResultMsg:
		m.loggingIn = false
		if msg.err != nil {
			m.loginErr = msg.err.Error()
			return m, nil
		}
		m.loginErr = ""
		m.screen = screenScanner
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.ctrl.StopScan()
			return m, tea.Quit
		}
		if m.screen == screenLogin {
			return m.updateLogin(msg)
		}
		return m.updateScanner(msg)
	}
	return m, nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyDown, tea.KeyUp:
		m.loginFocus = (m.loginFocus + 1) % 2
		if m.loginFocus == 0 {
			m.username.Focus()
			m.password.Blur()
		} else {
			m.password.Focus()
			m.username.Blur()
		}
		return m, nil
	case tea.KeyEnter:
		if m.loggingIn {
			return m, nil
		}
		username := strings.TrimSpace(m.username.Value())
		password := m.password.Value()
		if username == "" || password == "" {
			m.loginErr = "Username and password are required"
			return m, nil
		}
		m.loggingIn = true
		m.loginErr = ""
		return m, m.loginCmd(username, password)
	}

	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) updateScanner(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.ctrl.Snapshot()

	// The reason prompt captures all input until submitted or aborted.
	if m.promptingReason {
		switch msg.Type {
		case tea.KeyEsc:
			m.promptingReason = false
			m.reason.SetValue("")
			return m, nil
		case tea.KeyEnter:
			reason := m.reason.Value()
			m.promptingReason = false
			m.reason.SetValue("")
			return m, m.rejectCmd(reason)
		}
		var cmd tea.Cmd
		m.reason, cmd = m.reason.Update(msg)
		return m, cmd
	}

	if snap.State == workflow.StateTokenDisplayed {
		switch msg.String() {
		case "enter", "esc", "o":
			return m, m.intentCmd(m.ctrl.Dismiss)
		}
		return m, nil
	}

	if snap.Mode == workflow.ModeManual && m.manual.Focused() {
		switch msg.Type {
		case tea.KeyEnter:
			code := strings.TrimSpace(m.manual.Value())
			m.manual.SetValue("")
			if code == "" {
				return m, nil
			}
			return m, m.submitCmd(code)
		case tea.KeyEsc:
			m.manual.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.manual, cmd = m.manual.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.ctrl.StopScan()
		return m, tea.Quit
	case "s":
		if snap.Mode == workflow.ModeManual {
			m.manual.Focus()
		}
		return m, m.intentCmd(m.ctrl.StartScan)
	case "x":
		return m, m.intentCmd(m.ctrl.StopScan)
	case "m":
		if snap.Mode == workflow.ModeCamera {
			m.manual.Focus()
			return m, m.intentCmd(func() { m.ctrl.SetMode(workflow.ModeManual) })
		}
		m.manual.Blur()
		return m, m.intentCmd(func() { m.ctrl.SetMode(workflow.ModeCamera) })
	case "a":
		if snap.Submission != nil {
			return m, m.approveCmd()
		}
	case "r":
		if snap.Submission != nil {
			m.promptingReason = true
			m.reason.Focus()
		}
	case "c":
		if snap.Submission != nil {
			return m, m.intentCmd(m.ctrl.Cancel)
		}
	case "L":
		_ = m.client.Logout()
		m.screen = screenLogin
		m.username.SetValue("")
		m.password.SetValue("")
		m.loginFocus = 0
		m.username.Focus()
		return m, m.intentCmd(m.ctrl.StopScan)
	}
	return m, nil
}

func (m Model) loginCmd(username, password string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.client.Login(context.Background(), gateway.LoginRequest{
			Username: username,
			Password: password,
		})
		return loginResultMsg{err: err}
	}
}

func (m Model) submitCmd(code string) tea.Cmd {
	return func() tea.Msg {
		m.ctrl.Submit(context.Background(), code)
		return refreshMsg{}
	}
}

func (m Model) approveCmd() tea.Cmd {
	return func() tea.Msg {
		m.ctrl.Approve(context.Background())
		return refreshMsg{}
	}
}

func (m Model) rejectCmd(reason string) tea.Cmd {
	return func() tea.Msg {
		m.ctrl.Reject(context.Background(), reason)
		return refreshMsg{}
	}
}

// intentCmd runs a synchronous controller intent off the render path.
func (m Model) intentCmd(fn func()) tea.Cmd {
	return func() tea.Msg {
		fn()
		return refreshMsg{}
	}
}

func (m Model) View() string {
	if m.screen == screenLogin {
		return m.viewLogin()
	}
	return m.viewScanner()
}

func (m Model) viewLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Gate Scanner — Operator Login"))
	b.WriteString("\n\n")
	b.WriteString(m.username.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")
	if m.loggingIn {
		b.WriteString(labelStyle.Render("Logging in..."))
	} else if m.loginErr != "" {
		b.WriteString(errorStyle.Render(m.loginErr))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("tab: switch field • enter: login • ctrl+c: quit"))
	return boxStyle.Render(b.String())
}

func (m Model) viewScanner() string {
	snap := m.ctrl.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Gate Scanner"))
	b.WriteString("  ")
	if snap.Mode == workflow.ModeCamera {
		b.WriteString(activeTab.Render("Camera Scan") + inactiveTab.Render("Manual Entry"))
	} else {
		b.WriteString(inactiveTab.Render("Camera Scan") + activeTab.Render("Manual Entry"))
	}
	b.WriteString("\n\n")

	switch {
	case snap.State == workflow.StateTokenDisplayed && snap.Token != nil:
		b.WriteString(m.viewTokenPopup(snap.Token))
	case snap.Submission != nil:
		b.WriteString(m.viewReviewCard(snap.Submission))
	default:
		b.WriteString(m.viewScanPane(snap))
	}

	b.WriteString("\n")
	if snap.Loading {
		b.WriteString(labelStyle.Render("Loading..."))
		b.WriteString("\n")
	}
	if snap.Error != "" {
		b.WriteString(errorStyle.Render(snap.Error))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.helpLine(snap)))
	return b.String()
}

func (m Model) viewScanPane(snap workflow.Snapshot) string {
	if snap.Mode == workflow.ModeManual {
		return boxStyle.Render("Manual entry\n\n" + m.manual.View())
	}
	var status string
	switch snap.State {
	case workflow.StateScanning:
		status = okStyle.Render("● Camera on — position QR code in front of the camera")
	case workflow.StateResolving, workflow.StateVerifying:
		status = labelStyle.Render("Processing scan...")
	default:
		status = labelStyle.Render("Camera off — press s to start scanning")
	}
	return boxStyle.Render("Camera scan\n\n" + status)
}

func (m Model) viewReviewCard(sub *model.Submission) string {
	row := func(label, value string) string {
		if value == "" {
			value = "—"
		}
		return labelStyle.Render(fmt.Sprintf("%-14s", label)) + valueStyle.Render(value) + "\n"
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Submission " + sub.ID))
	b.WriteString("\n\n")
	b.WriteString(row("Company", sub.CompanyName))
	b.WriteString(row("Vehicle", sub.VehicleNumber))
	b.WriteString(row("Driver", sub.DriverName))
	b.WriteString(row("Phone", sub.DriverPhone))
	b.WriteString(row("Helper", sub.HelperName))
	b.WriteString(row("Helper phone", sub.HelperPhone))
	b.WriteString(row("Language", sub.PreferredLanguage))
	b.WriteString(row("Documents", strings.Join(sub.Documents, ", ")))
	b.WriteString(row("Status", string(sub.Status)))
	if m.promptingReason {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Reject — ") + m.reason.View())
	}
	return boxStyle.Render(b.String())
}

func (m Model) viewTokenPopup(tok *model.TokenIssuance) string {
	var b strings.Builder
	b.WriteString(okStyle.Render("✔ Token Sent"))
	b.WriteString("\n\n")
	b.WriteString("Token " + titleStyle.Render(tok.TokenNumber) + " was sent to\n")
	b.WriteString(valueStyle.Render(tok.DriverPhone))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Submit your documents at the entry gate."))
	return popupStyle.Render(b.String())
}

func (m Model) helpLine(snap workflow.Snapshot) string {
	if m.promptingReason {
		return "enter: reject • esc: abort"
	}
	switch {
	case snap.State == workflow.StateTokenDisplayed:
		return "enter/o: dismiss"
	case snap.Submission != nil:
		return "a: approve • r: reject • c: cancel • q: quit"
	default:
		return "s: start • x: stop • m: toggle mode • L: logout • q: quit"
	}
}

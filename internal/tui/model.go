package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/craftpanel/internal/model"
)

// DefaultCallTimeout bounds every controller call made from the UI.
const DefaultCallTimeout = 5 * time.Second

// TickMsg is sent every update interval.
type TickMsg time.Time

type pollResultMsg struct {
	status model.Status
	lines  []string
	err    error
}

type actionResultMsg struct {
	notice string
	err    error
}

// Config holds the console options.
type Config struct {
	UpdateInterval time.Duration
	CallTimeout    time.Duration
}

// ConsoleModel is the console page: a scrolling tail of the server console,
// a status bar and a command input line.
type ConsoleModel struct {
	ctrl model.Controller
	keys KeyMap
	help help.Model

	updateInterval time.Duration
	callTimeout    time.Duration

	viewport viewport.Model
	input    textinput.Model

	status model.Status
	lines  []string
	notice string
	err    error

	width, height int
	follow        bool
	pollInFlight  bool
}

// NewConsoleModel creates the console model over ctrl.
func NewConsoleModel(ctrl model.Controller, conf ...Config) *ConsoleModel {
	var c Config
	if len(conf) > 0 {
		c = conf[0]
	}
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = model.DefaultUpdateInterval
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "command"
	input.CharLimit = 1024
	input.Focus()

	return &ConsoleModel{
		ctrl:           ctrl,
		keys:           DefaultKeyMap(),
		help:           help.New(),
		updateInterval: c.UpdateInterval,
		callTimeout:    c.CallTimeout,
		viewport:       viewport.New(80, 20),
		input:          input,
		follow:         true,
	}
}

// ID implements Page.
func (m *ConsoleModel) ID() string { return "console" }

// Init implements Page.
func (m *ConsoleModel) Init() tea.Cmd {
	m.pollInFlight = true
	return tea.Batch(textinput.Blink, m.pollCmd(), m.tickCmd())
}

func (m *ConsoleModel) tickCmd() tea.Cmd {
	return tea.Tick(m.updateInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m *ConsoleModel) callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.callTimeout)
}

// pollCmd fetches status and the console snapshot in one round.
func (m *ConsoleModel) pollCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := m.callCtx()
		defer cancel()
		st, err := ctrl.Status(ctx)
		if err != nil {
			return pollResultMsg{err: err}
		}
		lines, err := ctrl.RecentLines(ctx)
		if err != nil {
			return pollResultMsg{err: err}
		}
		return pollResultMsg{status: st, lines: lines}
	}
}

func (m *ConsoleModel) startCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := m.callCtx()
		defer cancel()
		res, err := ctrl.Start(ctx)
		if err != nil {
			return actionResultMsg{err: err}
		}
		if res.AlreadyRunning {
			return actionResultMsg{notice: "already running"}
		}
		return actionResultMsg{notice: "started"}
	}
}

func (m *ConsoleModel) stopCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := m.callCtx()
		defer cancel()
		if err := ctrl.Stop(ctx); err != nil {
			return actionResultMsg{err: err}
		}
		return actionResultMsg{notice: "stop requested"}
	}
}

func (m *ConsoleModel) sendCmd(command string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := m.callCtx()
		defer cancel()
		if err := ctrl.SendCommand(ctx, command); err != nil {
			return actionResultMsg{err: err}
		}
		return actionResultMsg{notice: "sent: " + command}
	}
}

// Status returns the last polled status.
func (m *ConsoleModel) Status() model.Status { return m.status }

// Lines returns the last polled console snapshot.
func (m *ConsoleModel) Lines() []string { return m.lines }

// Following reports whether the viewport tracks the newest line.
func (m *ConsoleModel) Following() bool { return m.follow }

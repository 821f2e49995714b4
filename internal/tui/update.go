package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// chromeHeight is the number of rows outside the viewport: status bar,
// input line and help line.
const chromeHeight = 3

// Update implements Page.
func (m *ConsoleModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		if m.pollInFlight {
			return m.tickCmd()
		}
		m.pollInFlight = true
		return tea.Batch(m.pollCmd(), m.tickCmd())

	case pollResultMsg:
		m.pollInFlight = false
		if msg.err != nil {
			m.err = msg.err
			return nil
		}
		m.err = nil
		m.status = msg.status
		m.setLines(msg.lines)
		return nil

	case actionResultMsg:
		m.err = msg.err
		if msg.err == nil {
			m.notice = msg.notice
		}
		if m.pollInFlight {
			return nil
		}
		m.pollInFlight = true
		return m.pollCmd()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *ConsoleModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Send):
		command := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if command == "" {
			return nil
		}
		m.follow = true
		return m.sendCmd(command)
	case key.Matches(msg, m.keys.Start):
		return m.startCmd()
	case key.Matches(msg, m.keys.Stop):
		return m.stopCmd()
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfPageUp()
		m.follow = m.viewport.AtBottom()
		return nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfPageDown()
		m.follow = m.viewport.AtBottom()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *ConsoleModel) resize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(1, width)
	m.viewport.Height = max(1, height-chromeHeight)
	m.input.Width = max(1, width-len(m.input.Prompt)-1)
	m.help.Width = width
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// setLines replaces the viewport content. The view stays pinned to the
// newest line unless the operator scrolled away from it.
func (m *ConsoleModel) setLines(lines []string) {
	m.lines = lines
	m.viewport.SetContent(renderLines(lines))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

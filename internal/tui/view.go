package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/craftpanel/internal/model"
)

// View implements Page.
func (m *ConsoleModel) View(width, height int) string {
	if width > 0 && (width != m.width || height != m.height) {
		m.resize(width, height)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatusBar(),
		m.viewport.View(),
		m.input.View(),
		m.help.View(m.keys),
	)
}

func (m *ConsoleModel) renderStatusBar() string {
	var state string
	if m.status.Running {
		state = runningStyle.Render(fmt.Sprintf(" RUNNING pid %d ", m.status.PID))
		if !m.status.StartedAt.IsZero() {
			up := time.Since(m.status.StartedAt).Truncate(time.Second)
			state += statusBarStyle.Render("up " + up.String() + " ")
		}
	} else {
		state = stoppedStyle.Render(" STOPPED ")
	}

	var right string
	switch {
	case m.err != nil:
		right = errorStyle.Render(" " + m.err.Error() + " ")
	case m.notice != "":
		right = noticeStyle.Render(" " + m.notice + " ")
	}
	if !m.follow {
		right = noticeStyle.Render(" [scrolled] ") + right
	}

	gap := m.width - lipgloss.Width(state) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return state + statusBarStyle.Render(strings.Repeat(" ", gap)) + right
}

// renderLines joins the console snapshot, dimming panel-generated lines.
func renderLines(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if strings.HasPrefix(line, model.SystemLinePrefix) {
			b.WriteString(systemLine.Render(line))
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}

package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorNavy  = lipgloss.Color("#1B2A4A")
	ColorWhite = lipgloss.Color("#FFFFFF")
	ColorGreen = lipgloss.Color("#49E209")
	ColorRed   = lipgloss.Color("#FF4444")
	ColorGray  = lipgloss.Color("#8A8A8A")
	ColorAmber = lipgloss.Color("214")
)

var (
	statusBarStyle = lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorWhite)
	runningStyle   = lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorGreen).Bold(true)
	stoppedStyle   = lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorRed).Bold(true)
	noticeStyle    = lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorGray)
	errorStyle     = lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorAmber)
	systemLine     = lipgloss.NewStyle().Foreground(ColorGray)
)

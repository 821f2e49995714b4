package tui

import tea "github.com/charmbracelet/bubbletea"

// Page is a full-screen view hosted by App.
type Page interface {
	ID() string
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View(width, height int) string
}

// App is the top-level Bubble Tea model. It tracks the terminal size and
// forwards everything else to the active page.
type App struct {
	page   Page
	width  int
	height int
}

// NewApp creates an App showing p.
func NewApp(p Page) *App {
	return &App{page: p}
}

func (a *App) Init() tea.Cmd {
	return a.page.Init()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		a.width = wsm.Width
		a.height = wsm.Height
	}
	return a, a.page.Update(msg)
}

func (a *App) View() string {
	return a.page.View(a.width, a.height)
}

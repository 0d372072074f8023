package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// App wraps the Bubbletea program.
type App struct {
	program *tea.Program
	model   Model
}

// New creates the demo TUI application.
func New(deps Deps) *App {
	return &App{model: NewModel(deps)}
}

// Run starts the TUI and blocks until it exits.
func (a *App) Run() error {
	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)
	_, err := a.program.Run()
	return err
}

// Quit asks a running program to shut down. Safe to call from another
// goroutine.
func (a *App) Quit() {
	if a.program != nil {
		a.program.Quit()
	}
}

package cli

import (
	tea "github.com/charmbracelet/bubbletea"

	coreapp "loom/internal/core/app"
	"loom/internal/core/ports"
)

func runUI(app *coreapp.App) error {
	m := initialModel()
	p := tea.NewProgram(m, tea.WithAltScreen())

	app.SetUpdateHandler(func(update ports.WatchUpdate) {
		p.Send(buildMsg{update: update})
	})

	go func() {
		p.Send(buildMsg{update: app.CurrentUpdate()})
	}()

	_, err := p.Run()
	app.SetUpdateHandler(nil)
	return err
}

// Package tui is the terminal front end of the list. It drives a
// client.Controller, so it works against a local database or a running server.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"todoblock/internal/client"
	"todoblock/internal/i18n"
)

type Options struct {
	InstanceID int64
	Localizer  *i18n.Localizer
	Location   *time.Location
	NoColor    bool
}

// New builds the controller the TUI uses: destructive actions are confirmed
// by the TUI's own modal.
func New(t client.Transport, opts Options) tea.Model {
	ctrl := client.New(t, opts.InstanceID, client.WithConfirm(ModalConfirm))
	return newListModel(ctrl, opts.Localizer, opts.Location)
}

func Run(t client.Transport, opts Options) error {
	ApplyColorProfile(opts.NoColor)
	_, err := tea.NewProgram(New(t, opts), tea.WithAltScreen()).Run()
	return err
}

package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"todoblock/internal/i18n"
)

type keyMap struct {
	Up              key.Binding
	Down            key.Binding
	Toggle          key.Binding
	Add             key.Binding
	Edit            key.Binding
	Delete          key.Binding
	Pin             key.Binding
	HideDone        key.Binding
	DeleteCompleted key.Binding
	Group           key.Binding
	Refresh         key.Binding
	Help            key.Binding
	Quit            key.Binding
}

func newKeyMap(l *i18n.Localizer) keyMap {
	return keyMap{
		Up:              key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:            key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:          key.NewBinding(key.WithKeys("x", " "), key.WithHelp("x", l.String("toggle"))),
		Add:             key.NewBinding(key.WithKeys("a"), key.WithHelp("a", l.String("additem"))),
		Edit:            key.NewBinding(key.WithKeys("e"), key.WithHelp("e", l.String("edititem"))),
		Delete:          key.NewBinding(key.WithKeys("d"), key.WithHelp("d", l.String("deleteitem"))),
		Pin:             key.NewBinding(key.WithKeys("p"), key.WithHelp("p", l.String("pin"))),
		HideDone:        key.NewBinding(key.WithKeys("h"), key.WithHelp("h", l.String("hidecompleted"))),
		DeleteCompleted: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", l.String("deletecompleted"))),
		Group:           key.NewBinding(key.WithKeys("0", "1", "2", "3", "4", "5"), key.WithHelp("0-5", l.String("group"))),
		Refresh:         key.NewBinding(key.WithKeys("r"), key.WithHelp("r", l.String("refresh"))),
		Help:            key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:            key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.Delete, k.HideDone, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.Pin},
		{k.Add, k.Edit, k.Delete, k.DeleteCompleted},
		{k.HideDone, k.Group, k.Refresh, k.Help, k.Quit},
	}
}

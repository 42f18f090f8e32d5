package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Run      key.Binding
	Next     key.Binding
	Prev     key.Binding
	Close    key.Binding
	Focus    key.Binding
	Command  key.Binding
	Activate key.Binding
	Up       key.Binding
	Down     key.Binding
	Cancel   key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Run:      key.NewBinding(key.WithKeys("ctrl+r", "f5"), key.WithHelp("ctrl+r", "run")),
		Next:     key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "next tab")),
		Prev:     key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "prev tab")),
		Close:    key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("ctrl+w", "close tab")),
		Focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "sidebar/editor")),
		Command:  key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "command")),
		Activate: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Up:       key.NewBinding(key.WithKeys("up", "k")),
		Down:     key.NewBinding(key.WithKeys("down", "j")),
		Cancel:   key.NewBinding(key.WithKeys("esc")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Next, k.Prev, k.Close, k.Focus, k.Command, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Activate}}
}

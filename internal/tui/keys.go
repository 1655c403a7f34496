package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next       key.Binding
	Prev       key.Binding
	Submit     key.Binding
	ToggleList key.Binding
	Help       key.Binding
	Close      key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Follow     key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next:       key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:       key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		ToggleList: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "followers/following")),
		Help:       key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
		Close:      key.NewBinding(key.WithKeys("esc", "f1", "?", "q")),
		ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll log")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown")),
		Follow:     key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "follow log")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Submit, k.ToggleList, k.ScrollUp, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Submit},
		{k.ToggleList, k.ScrollUp, k.Follow},
		{k.Help, k.Quit},
	}
}

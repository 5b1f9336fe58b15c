package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	TogglePlay key.Binding
	SeekBack   key.Binding
	SeekFwd    key.Binding
	SeekTo     key.Binding
	OrbitLeft  key.Binding
	OrbitRight key.Binding
	OrbitUp    key.Binding
	OrbitDown  key.Binding
	ZoomIn     key.Binding
	ZoomOut    key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	TogglePlay: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
	SeekBack:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "-5s")),
	SeekFwd:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "+5s")),
	SeekTo: key.NewBinding(
		key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
		key.WithHelp("0-9", "jump"),
	),
	OrbitLeft:  key.NewBinding(key.WithKeys("a"), key.WithHelp("wasd", "orbit")),
	OrbitRight: key.NewBinding(key.WithKeys("d")),
	OrbitUp:    key.NewBinding(key.WithKeys("w")),
	OrbitDown:  key.NewBinding(key.WithKeys("s")),
	ZoomIn:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "zoom")),
	ZoomOut:    key.NewBinding(key.WithKeys("-", "_")),
	Quit:       key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

func isQuit(msg tea.KeyMsg) bool {
	return key.Matches(msg, keys.Quit)
}

func helpText() string {
	bindings := []key.Binding{
		keys.TogglePlay, keys.SeekBack, keys.SeekFwd, keys.SeekTo,
		keys.OrbitLeft, keys.ZoomIn, keys.Quit,
	}
	s := ""
	for i, b := range bindings {
		if i > 0 {
			s += "  "
		}
		h := b.Help()
		s += h.Key + " " + h.Desc
	}
	return s
}

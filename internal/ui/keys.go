package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next     key.Binding
	Prev     key.Binding
	Mute     key.Binding
	BetYes   key.Binding
	BetNo    key.Binding
	Generate key.Binding
	Candles  key.Binding
	Retry    key.Binding
	Debug    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Next:     key.NewBinding(key.WithKeys("j", "down", " "), key.WithHelp("j/↓", "next")),
	Prev:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "prev")),
	Mute:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
	BetYes:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "bet yes")),
	BetNo:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "bet no")),
	Generate: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "generate")),
	Candles:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "chart")),
	Retry:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
	Debug:    key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "debug")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.BetYes, k.BetNo, k.Mute, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Mute},
		{k.BetYes, k.BetNo, k.Generate, k.Candles},
		{k.Retry, k.Debug, k.Help, k.Quit},
	}
}

package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings of the demo.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding

	// Screen lifecycle
	Recreate     key.Binding
	Finish       key.Binding
	ProcessDeath key.Binding
	Background   key.Binding
	ToggleRetain key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		// Global
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),

		// Screen lifecycle
		Recreate: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Recreate screen (config change)"),
		),
		Finish: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "Finish screen, open a new one"),
		),
		ProcessDeath: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Simulate process death"),
		),
		Background: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Stop/start screen"),
		),
		ToggleRetain: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Toggle don't keep screens"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Recreate, k.Finish, k.ProcessDeath, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Lifecycle
		{k.Recreate, k.Finish, k.ProcessDeath},
		{k.Background, k.ToggleRetain},
		// General
		{k.CycleTheme, k.Help, k.Quit},
	}
}

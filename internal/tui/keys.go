package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds all key bindings for the TUI.
type keyMap struct {
	Quit     key.Binding
	Refresh  key.Binding
	Search   key.Binding
	Escape   key.Binding
	Help     key.Binding
	Gauges   key.Binding
	Details  key.Binding
	View     key.Binding
	PrevPage key.Binding
	NextPage key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "poll now"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Escape: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Gauges: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "toggle gauges"),
	),
	Details: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "toggle details"),
	),
	View: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "metrics/latency"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "prev page"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "next page"),
	),
}

const helpText = "q: quit  r: poll now  /: search  1-6: sort  ←→: page  g: gauges  d: details  tab: latency  ?: help"

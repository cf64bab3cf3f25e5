package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Keybinding modes accepted in config.yaml
const (
	ModeVim      = "vim"
	ModeStandard = "standard"
)

// KeyMap defines keybindings for the TUI
type KeyMap struct {
	mode string

	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Home    key.Binding
	End     key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Delete  key.Binding
	Search  key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// NewKeyMap creates a keymap for mode. Anything but "standard" selects vim.
func NewKeyMap(mode string) *KeyMap {
	if mode != ModeStandard {
		mode = ModeVim
	}

	k := &KeyMap{
		mode:    mode,
		Up:      key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		Down:    key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		Left:    key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "previous value")),
		Right:   key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next value")),
		Home:    key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "first item")),
		End:     key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "last item")),
		Confirm: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Delete:  key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}

	if mode == ModeVim {
		k.Up.SetKeys("up", "k")
		k.Down.SetKeys("down", "j")
		k.Left.SetKeys("left", "h")
		k.Right.SetKeys("right", "l")
		k.Home.SetKeys("home", "g")
		k.End.SetKeys("end", "G")
	}
	return k
}

// Mode returns the current keybinding mode
func (k *KeyMap) Mode() string {
	return k.mode
}

func (k *KeyMap) IsUp(msg tea.KeyMsg) bool      { return key.Matches(msg, k.Up) }
func (k *KeyMap) IsDown(msg tea.KeyMsg) bool    { return key.Matches(msg, k.Down) }
func (k *KeyMap) IsLeft(msg tea.KeyMsg) bool    { return key.Matches(msg, k.Left) }
func (k *KeyMap) IsRight(msg tea.KeyMsg) bool   { return key.Matches(msg, k.Right) }
func (k *KeyMap) IsHome(msg tea.KeyMsg) bool    { return key.Matches(msg, k.Home) }
func (k *KeyMap) IsEnd(msg tea.KeyMsg) bool     { return key.Matches(msg, k.End) }
func (k *KeyMap) IsConfirm(msg tea.KeyMsg) bool { return key.Matches(msg, k.Confirm) }
func (k *KeyMap) IsCancel(msg tea.KeyMsg) bool  { return key.Matches(msg, k.Cancel) }
func (k *KeyMap) IsDelete(msg tea.KeyMsg) bool  { return key.Matches(msg, k.Delete) }
func (k *KeyMap) IsSearch(msg tea.KeyMsg) bool  { return key.Matches(msg, k.Search) }
func (k *KeyMap) IsHelp(msg tea.KeyMsg) bool    { return key.Matches(msg, k.Help) }
func (k *KeyMap) IsQuit(msg tea.KeyMsg) bool    { return key.Matches(msg, k.Quit) }

// NavigationHelp returns help text for navigation keys
func (k *KeyMap) NavigationHelp() string {
	if k.mode == ModeVim {
		return "j/k: navigate  1-3: switch view"
	}
	return "↑/↓: navigate  1-3: switch view"
}

// FullHelp returns complete help text
func (k *KeyMap) FullHelp() string {
	nav := `Navigation:
  ↑/↓     Move up/down
  ←/→     Change value (settings)
  Home    First item
  End     Last item`
	if k.mode == ModeVim {
		nav = `Navigation:
  j/k     Move down/up
  h/l     Change value (settings)
  g/G     First/last item`
	}

	return nav + `
  1/2/3   Mods, Profiles, Settings

Mods:
  enter   Install
  space   Enable/disable
  d       Uninstall
  u       Update
  /       Search
  r       Refresh catalog

Profiles:
  enter   Apply
  a       Set active
  n       New from enabled mods
  d       Delete

Settings:
  a       Toggle modding API

  ?       Help
  q       Quit`
}

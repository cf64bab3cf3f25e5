// Package views holds the screens of the terminal UI.
package views

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Keys classifies navigation key presses. The keybinding mode decides
// which keys count.
type Keys interface {
	IsUp(msg tea.KeyMsg) bool
	IsDown(msg tea.KeyMsg) bool
	IsLeft(msg tea.KeyMsg) bool
	IsRight(msg tea.KeyMsg) bool
	IsHome(msg tea.KeyMsg) bool
	IsEnd(msg tea.KeyMsg) bool
	IsConfirm(msg tea.KeyMsg) bool
	IsCancel(msg tea.KeyMsg) bool
	IsDelete(msg tea.KeyMsg) bool
	IsSearch(msg tea.KeyMsg) bool
}

// moveCursor applies a navigation key to a cursor over n items, wrapping
// at both ends. It reports whether msg was a navigation key.
func moveCursor(keys Keys, msg tea.KeyMsg, cur, n int) (int, bool) {
	if n == 0 {
		return 0, keys.IsUp(msg) || keys.IsDown(msg) || keys.IsHome(msg) || keys.IsEnd(msg)
	}
	switch {
	case keys.IsUp(msg):
		cur--
		if cur < 0 {
			cur = n - 1
		}
	case keys.IsDown(msg):
		cur++
		if cur >= n {
			cur = 0
		}
	case keys.IsHome(msg):
		cur = 0
	case keys.IsEnd(msg):
		cur = n - 1
	default:
		return cur, false
	}
	return cur, true
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("69")).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(lipgloss.Color("205")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(lipgloss.Color("241"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(6)

	newStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

package tui_test

import (
	"testing"

	"butterfly/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestKeyMap_VimMode(t *testing.T) {
	km := tui.NewKeyMap("vim")

	assert.Equal(t, tui.ModeVim, km.Mode())
	assert.True(t, km.IsUp(runeKey('k')))
	assert.True(t, km.IsDown(runeKey('j')))
	assert.True(t, km.IsLeft(runeKey('h')))
	assert.True(t, km.IsRight(runeKey('l')))
	assert.True(t, km.IsHome(runeKey('g')))
	assert.True(t, km.IsEnd(runeKey('G')))
	assert.True(t, km.IsConfirm(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.True(t, km.IsCancel(tea.KeyMsg{Type: tea.KeyEsc}))
	assert.True(t, km.IsQuit(runeKey('q')))
	assert.True(t, km.IsQuit(tea.KeyMsg{Type: tea.KeyCtrlC}))
}

func TestKeyMap_StandardMode(t *testing.T) {
	km := tui.NewKeyMap("standard")

	assert.Equal(t, tui.ModeStandard, km.Mode())
	assert.True(t, km.IsUp(tea.KeyMsg{Type: tea.KeyUp}))
	assert.True(t, km.IsDown(tea.KeyMsg{Type: tea.KeyDown}))
	assert.True(t, km.IsLeft(tea.KeyMsg{Type: tea.KeyLeft}))
	assert.True(t, km.IsRight(tea.KeyMsg{Type: tea.KeyRight}))
	assert.True(t, km.IsHome(tea.KeyMsg{Type: tea.KeyHome}))

	assert.False(t, km.IsUp(runeKey('k')))
	assert.False(t, km.IsDown(runeKey('j')))
	assert.False(t, km.IsHome(runeKey('g')))
}

func TestKeyMap_SharedKeys(t *testing.T) {
	for _, mode := range []string{"vim", "standard"} {
		km := tui.NewKeyMap(mode)
		assert.True(t, km.IsUp(tea.KeyMsg{Type: tea.KeyUp}), mode)
		assert.True(t, km.IsDown(tea.KeyMsg{Type: tea.KeyDown}), mode)
		assert.True(t, km.IsConfirm(tea.KeyMsg{Type: tea.KeySpace}), mode)
		assert.True(t, km.IsDelete(runeKey('d')), mode)
		assert.True(t, km.IsDelete(tea.KeyMsg{Type: tea.KeyDelete}), mode)
		assert.True(t, km.IsSearch(runeKey('/')), mode)
		assert.True(t, km.IsHelp(runeKey('?')), mode)
	}
}

func TestKeyMap_Help(t *testing.T) {
	assert.Contains(t, tui.NewKeyMap("vim").NavigationHelp(), "j/k")
	assert.Contains(t, tui.NewKeyMap("standard").NavigationHelp(), "↑/↓")
	assert.Contains(t, tui.NewKeyMap("vim").FullHelp(), "g/G")
	assert.Contains(t, tui.NewKeyMap("standard").FullHelp(), "Home")
}

func TestKeyMap_DefaultsToVim(t *testing.T) {
	assert.Equal(t, tui.ModeVim, tui.NewKeyMap("").Mode())
	assert.Equal(t, tui.ModeVim, tui.NewKeyMap("emacs").Mode())
	assert.True(t, tui.NewKeyMap("").IsUp(runeKey('k')))
}

package views_test

import (
	"testing"

	"butterfly/internal/domain"
	"butterfly/internal/tui"
	"butterfly/internal/tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProfiles() []domain.Profile {
	return []domain.Profile{
		{Name: "Speedrun", Mods: []string{"QoL"}},
		{Name: "Randomizer", Mods: []string{"Randomizer", "Vasi"}},
	}
}

func updateProfiles(t *testing.T, p views.Profiles, msg tea.Msg) (views.Profiles, tea.Cmd) {
	t.Helper()
	next, cmd := p.Update(msg)
	return next.(views.Profiles), cmd
}

func TestProfiles_InitialState(t *testing.T) {
	p := views.NewProfiles(tui.NewKeyMap("vim"), sampleProfiles(), "Speedrun")

	assert.Equal(t, 0, p.Selected())
	assert.Equal(t, 2, p.ProfileCount())
	view := p.View()
	assert.Contains(t, view, "Speedrun [active]")
	assert.Contains(t, view, "1: QoL")
}

func TestProfiles_Empty(t *testing.T) {
	p := views.NewProfiles(tui.NewKeyMap("vim"), nil, "")

	assert.Nil(t, p.SelectedProfile())
	assert.Contains(t, p.View(), "No profiles yet")

	_, cmd := updateProfiles(t, p, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestProfiles_Navigate(t *testing.T) {
	p := views.NewProfiles(tui.NewKeyMap("vim"), sampleProfiles(), "")

	p, _ = updateProfiles(t, p, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, p.Selected())
	assert.Contains(t, p.View(), "2: Randomizer, Vasi")

	p, _ = updateProfiles(t, p, key('j'))
	assert.Equal(t, 0, p.Selected())
}

func TestProfiles_Actions(t *testing.T) {
	tests := []struct {
		name   string
		key    tea.KeyMsg
		expect tea.Msg
	}{
		{"apply", tea.KeyMsg{Type: tea.KeyEnter}, views.ApplyProfileMsg{Name: "Randomizer"}},
		{"use", key('a'), views.UseProfileMsg{Name: "Randomizer"}},
		{"delete", key('d'), views.DeleteProfileMsg{Name: "Randomizer"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := views.NewProfiles(tui.NewKeyMap("vim"), sampleProfiles(), "")
			p, _ = updateProfiles(t, p, key('j'))

			_, cmd := updateProfiles(t, p, tt.key)
			require.NotNil(t, cmd)
			assert.Equal(t, tt.expect, cmd())
		})
	}
}

func TestProfiles_Create(t *testing.T) {
	p := views.NewProfiles(tui.NewKeyMap("vim"), sampleProfiles(), "")

	p, _ = updateProfiles(t, p, key('n'))
	require.True(t, p.IsCreating())
	assert.Contains(t, p.View(), "New profile")

	// Empty names are not submitted
	p, cmd := updateProfiles(t, p, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.True(t, p.IsCreating())

	for _, r := range "Boss rush" {
		p, _ = updateProfiles(t, p, key(r))
	}
	p, cmd = updateProfiles(t, p, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, p.IsCreating())
	require.NotNil(t, cmd)
	assert.Equal(t, views.CreateProfileMsg{Name: "Boss rush"}, cmd())
}

func TestProfiles_CreateCancel(t *testing.T) {
	p := views.NewProfiles(tui.NewKeyMap("vim"), sampleProfiles(), "")

	p, _ = updateProfiles(t, p, key('n'))
	p, _ = updateProfiles(t, p, key('x'))
	p, cmd := updateProfiles(t, p, tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, p.IsCreating())
	assert.Nil(t, cmd)
}

func TestProfiles_SetProfilesClampsCursor(t *testing.T) {
	p := views.NewProfiles(tui.NewKeyMap("vim"), sampleProfiles(), "")
	p, _ = updateProfiles(t, p, key('G'))
	require.Equal(t, 1, p.Selected())

	p = p.SetProfiles(sampleProfiles()[:1], "Speedrun")
	assert.Equal(t, 0, p.Selected())
	assert.Contains(t, p.View(), "[active]")
}

package views

import (
	"fmt"
	"strings"

	"butterfly/internal/domain"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ApplyProfileMsg is sent to enable a profile's mods and make it active
type ApplyProfileMsg struct {
	Name string
}

// UseProfileMsg is sent to mark a profile active without touching mods
type UseProfileMsg struct {
	Name string
}

// DeleteProfileMsg is sent to delete a profile
type DeleteProfileMsg struct {
	Name string
}

// CreateProfileMsg is sent to create a profile from the enabled mods
type CreateProfileMsg struct {
	Name string
}

var activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

// Profiles is the profile management view
type Profiles struct {
	keys      Keys
	profiles  []domain.Profile
	active    string
	selected  int
	creating  bool
	nameInput textinput.Model
}

// NewProfiles creates the profiles view
func NewProfiles(keys Keys, profiles []domain.Profile, active string) Profiles {
	ti := textinput.New()
	ti.Placeholder = "Profile name..."
	ti.CharLimit = 50
	ti.Width = 30

	return Profiles{
		keys:      keys,
		profiles:  profiles,
		active:    active,
		nameInput: ti,
	}
}

// SetProfiles replaces the listed profiles, keeping the cursor in range
func (p Profiles) SetProfiles(profiles []domain.Profile, active string) Profiles {
	p.profiles = profiles
	p.active = active
	if p.selected >= len(profiles) {
		p.selected = max(len(profiles)-1, 0)
	}
	return p
}

// Selected returns the cursor position
func (p Profiles) Selected() int {
	return p.selected
}

// ProfileCount returns the number of profiles
func (p Profiles) ProfileCount() int {
	return len(p.profiles)
}

// IsCreating reports whether the name prompt is open
func (p Profiles) IsCreating() bool {
	return p.creating
}

// SelectedProfile returns the profile under the cursor
func (p Profiles) SelectedProfile() *domain.Profile {
	if len(p.profiles) == 0 || p.selected >= len(p.profiles) {
		return nil
	}
	prof := p.profiles[p.selected]
	return &prof
}

// Init implements tea.Model
func (p Profiles) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (p Profiles) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if p.creating {
			return p.handleCreateMode(msg)
		}
		return p.handleKeyPress(msg)
	}
	return p, nil
}

func (p Profiles) handleCreateMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		p.creating = false
		p.nameInput.Reset()
		p.nameInput.Blur()
		return p, nil

	case tea.KeyEnter:
		name := strings.TrimSpace(p.nameInput.Value())
		if name == "" {
			return p, nil
		}
		p.creating = false
		p.nameInput.Reset()
		p.nameInput.Blur()
		return p, func() tea.Msg { return CreateProfileMsg{Name: name} }
	}

	var cmd tea.Cmd
	p.nameInput, cmd = p.nameInput.Update(msg)
	return p, cmd
}

func (p Profiles) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if sel, ok := moveCursor(p.keys, msg, p.selected, len(p.profiles)); ok {
		p.selected = sel
		return p, nil
	}

	if msg.String() == "n" {
		p.creating = true
		return p, p.nameInput.Focus()
	}

	prof := p.SelectedProfile()
	if prof == nil {
		return p, nil
	}
	name := prof.Name

	switch {
	case msg.String() == "a":
		return p, func() tea.Msg { return UseProfileMsg{Name: name} }
	case p.keys.IsConfirm(msg):
		return p, func() tea.Msg { return ApplyProfileMsg{Name: name} }
	case p.keys.IsDelete(msg):
		return p, func() tea.Msg { return DeleteProfileMsg{Name: name} }
	}
	return p, nil
}

// View implements tea.Model
func (p Profiles) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Profiles") + "\n")

	if p.creating {
		b.WriteString("New profile from enabled mods: " + p.nameInput.View() + "\n\n")
		b.WriteString(infoStyle.Render("enter: create  esc: cancel"))
		return b.String()
	}

	if len(p.profiles) == 0 {
		b.WriteString(itemStyle.Render("No profiles yet.") + "\n\n")
		b.WriteString(infoStyle.Render("Press 'n' to save the enabled mods as a profile.") + "\n")
		return b.String()
	}

	for i, prof := range p.profiles {
		cursor := "  "
		style := itemStyle
		if i == p.selected {
			cursor = "▸ "
			style = selectedStyle
		}

		line := style.Render(cursor + prof.Name)
		if prof.Name == p.active {
			line += activeStyle.Render(" [active]")
		}
		b.WriteString(line + "\n")

		if i == p.selected {
			mods := "no mods"
			if len(prof.Mods) > 0 {
				mods = strings.Join(prof.Mods, ", ")
			}
			b.WriteString(detailStyle.Render(fmt.Sprintf("%d: %s", len(prof.Mods), mods)) + "\n")
		}
	}

	b.WriteString(helpStyle.Render("enter: apply  a: set active  n: new  d: delete"))
	return b.String()
}

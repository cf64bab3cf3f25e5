package views

import (
	"fmt"
	"slices"
	"strings"

	"butterfly/internal/domain"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// InstallModMsg is sent when the user wants to install a mod
type InstallModMsg struct {
	Name string
}

// ToggleModMsg is sent to enable or disable an installed mod
type ToggleModMsg struct {
	Name   string
	Enable bool
}

// UninstallModMsg is sent to uninstall a mod
type UninstallModMsg struct {
	Name string
}

// UpdateModMsg is sent to reinstall an outdated mod
type UpdateModMsg struct {
	Name string
}

// Mods lists the catalog with each mod's install state
type Mods struct {
	keys          Keys
	records       []domain.LocalModRecord
	visible       []int // Indexes into records that match the filter
	newMods       []string
	outdated      []string
	search        textinput.Model
	searchFocused bool
	selected      int
	width         int
	height        int
}

// NewMods creates the catalog view
func NewMods(keys Keys, records []domain.LocalModRecord) Mods {
	ti := textinput.New()
	ti.Placeholder = "Search mods..."
	ti.CharLimit = 100
	ti.Width = 40

	m := Mods{
		keys:    keys,
		records: records,
		search:  ti,
		width:   80,
		height:  24,
	}
	m.applyFilter()
	return m
}

// SetRecords replaces the listed catalog, keeping the cursor in range
func (m Mods) SetRecords(records []domain.LocalModRecord) Mods {
	m.records = records
	m.applyFilter()
	return m
}

// SetMarks flags mods that are new to the catalog or have an update
func (m Mods) SetMarks(newMods, outdated []string) Mods {
	m.newMods = newMods
	m.outdated = outdated
	return m
}

// Selected returns the cursor position within the visible mods
func (m Mods) Selected() int {
	return m.selected
}

// VisibleCount returns how many mods match the filter
func (m Mods) VisibleCount() int {
	return len(m.visible)
}

// Filter returns the current search text
func (m Mods) Filter() string {
	return m.search.Value()
}

// IsSearchFocused reports whether key presses go to the search box
func (m Mods) IsSearchFocused() bool {
	return m.searchFocused
}

// SelectedMod returns the mod under the cursor
func (m Mods) SelectedMod() *domain.LocalModRecord {
	if len(m.visible) == 0 || m.selected >= len(m.visible) {
		return nil
	}
	r := m.records[m.visible[m.selected]]
	return &r
}

func (m *Mods) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.search.Value()))
	var visible []int
	for i, r := range m.records {
		if query == "" || matches(r, query) {
			visible = append(visible, i)
		}
	}
	m.visible = visible
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func matches(r domain.LocalModRecord, query string) bool {
	if strings.Contains(strings.ToLower(r.Name), query) ||
		strings.Contains(strings.ToLower(r.Description), query) {
		return true
	}
	return slices.ContainsFunc(r.Tags, func(tag string) bool {
		return strings.EqualFold(tag, query)
	})
}

// Init implements tea.Model
func (m Mods) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Mods) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searchFocused {
			return m.handleSearchKey(msg)
		}
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	if m.searchFocused {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Mods) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		m.searchFocused = false
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.selected = 0
	m.applyFilter()
	return m, cmd
}

func (m Mods) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if sel, ok := moveCursor(m.keys, msg, m.selected, len(m.visible)); ok {
		m.selected = sel
		return m, nil
	}

	if m.keys.IsSearch(msg) {
		m.searchFocused = true
		return m, m.search.Focus()
	}
	if m.keys.IsCancel(msg) && m.search.Value() != "" {
		m.search.Reset()
		m.applyFilter()
		return m, nil
	}

	mod := m.SelectedMod()
	if mod == nil {
		return m, nil
	}
	name := mod.Name

	switch {
	case msg.String() == " ":
		if mod.Installed {
			enable := !mod.Enabled
			return m, func() tea.Msg { return ToggleModMsg{Name: name, Enable: enable} }
		}
	case m.keys.IsConfirm(msg) || msg.String() == "i":
		if !mod.Installed {
			return m, func() tea.Msg { return InstallModMsg{Name: name} }
		}
	case m.keys.IsDelete(msg):
		if mod.Installed {
			return m, func() tea.Msg { return UninstallModMsg{Name: name} }
		}
	case msg.String() == "u":
		if mod.Installed && slices.Contains(m.outdated, name) {
			return m, func() tea.Msg { return UpdateModMsg{Name: name} }
		}
	}
	return m, nil
}

// View implements tea.Model
func (m Mods) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Mods") + "\n")

	if m.searchFocused || m.search.Value() != "" {
		b.WriteString(m.search.View() + "\n\n")
	}

	if len(m.records) == 0 {
		b.WriteString(itemStyle.Render("The catalog is empty.") + "\n\n")
		b.WriteString(infoStyle.Render("Press r to fetch it, or run 'butterfly sync'") + "\n")
		return b.String()
	}
	if len(m.visible) == 0 {
		b.WriteString(itemStyle.Render("No mods match the search.") + "\n")
		return b.String()
	}

	installed := 0
	for _, r := range m.records {
		if r.Installed {
			installed++
		}
	}
	b.WriteString(infoStyle.Render(fmt.Sprintf("%d mods, %d installed", len(m.records), installed)) + "\n\n")

	start, end := m.window()
	for i := start; i < end; i++ {
		r := m.records[m.visible[i]]

		status := "[ ]"
		switch {
		case r.Installed && r.Enabled:
			status = "[✓]"
		case r.Installed:
			status = "[-]"
		}

		cursor := "  "
		style := itemStyle
		if i == m.selected {
			cursor = "▸ "
			style = selectedStyle
		} else if !r.Installed {
			style = dimStyle
		}

		line := fmt.Sprintf("%s%s %s %s", cursor, status, r.Name, r.Version)
		if slices.Contains(m.outdated, r.Name) {
			line += " (update)"
		}
		b.WriteString(style.Render(line))
		if slices.Contains(m.newMods, r.Name) {
			b.WriteString(" " + newStyle.Render("New!"))
		}
		b.WriteString("\n")

		if i == m.selected {
			if r.Description != "" {
				b.WriteString(detailStyle.Render(r.Description) + "\n")
			}
			if len(r.Dependencies) > 0 {
				b.WriteString(detailStyle.Render("Dependencies: "+strings.Join(r.Dependencies, ", ")) + "\n")
			}
			if r.Repository != "" {
				b.WriteString(detailStyle.Render(r.Repository) + "\n")
			}
		}
	}

	b.WriteString(helpStyle.Render("/: search  enter: install  space: enable/disable  d: uninstall  u: update  r: refresh"))
	return b.String()
}

// window returns the range of visible rows that fits the screen
func (m Mods) window() (int, int) {
	rows := max(m.height-12, 5)
	if len(m.visible) <= rows {
		return 0, len(m.visible)
	}
	start := max(m.selected-rows/2, 0)
	end := start + rows
	if end > len(m.visible) {
		end = len(m.visible)
		start = end - rows
	}
	return start, end
}

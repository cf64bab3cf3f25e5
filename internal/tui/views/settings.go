package views

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Choices offered for the editable preferences
var (
	LanguageOptions = []string{"English", "Chinese"}
	ThemeOptions    = []string{"Dark", "Light"}
)

// SettingsData holds the values shown on the settings screen
type SettingsData struct {
	Language    string
	Theme       string
	ModsPath    string
	APIState    string
	Keybindings string
}

// SettingsChangedMsg is sent when the language or theme is changed
type SettingsChangedMsg struct {
	Language string
	Theme    string
}

// ToggleAPIMsg is sent to switch between the modded and vanilla assembly
type ToggleAPIMsg struct{}

type settingItem struct {
	name        string
	description string
	options     []string
	current     int
}

func newSettingItem(name, description string, options []string, value string) settingItem {
	i := slices.Index(options, value)
	if i < 0 && value != "" {
		options = append([]string{value}, options...)
		i = 0
	}
	return settingItem{name: name, description: description, options: options, current: max(i, 0)}
}

func (it settingItem) value() string {
	return it.options[it.current]
}

// Settings is the preferences view
type Settings struct {
	keys     Keys
	data     SettingsData
	items    []settingItem
	selected int
}

// NewSettings creates the settings view
func NewSettings(keys Keys, data SettingsData) Settings {
	return Settings{
		keys: keys,
		data: data,
		items: []settingItem{
			newSettingItem("Language", "Display language", slices.Clone(LanguageOptions), data.Language),
			newSettingItem("Theme", "Color theme", slices.Clone(ThemeOptions), data.Theme),
		},
	}
}

// Selected returns the cursor position
func (s Settings) Selected() int {
	return s.selected
}

// Data returns the values as currently chosen
func (s Settings) Data() SettingsData {
	return s.data
}

// SetStatus refreshes the read-only values, keeping the cursor
func (s Settings) SetStatus(modsPath, apiState string) Settings {
	s.data.ModsPath = modsPath
	s.data.APIState = apiState
	return s
}

// Init implements tea.Model
func (s Settings) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s Settings) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	if sel, ok := moveCursor(s.keys, key, s.selected, len(s.items)); ok {
		s.selected = sel
		return s, nil
	}

	switch {
	case key.String() == "a":
		return s, func() tea.Msg { return ToggleAPIMsg{} }
	case s.keys.IsRight(key) || s.keys.IsConfirm(key):
		return s.cycle(1)
	case s.keys.IsLeft(key):
		return s.cycle(-1)
	}
	return s, nil
}

func (s Settings) cycle(step int) (tea.Model, tea.Cmd) {
	items := slices.Clone(s.items)
	item := &items[s.selected]
	item.current = (item.current + step + len(item.options)) % len(item.options)
	s.items = items

	s.data.Language = s.items[0].value()
	s.data.Theme = s.items[1].value()

	changed := SettingsChangedMsg{Language: s.data.Language, Theme: s.data.Theme}
	return s, func() tea.Msg { return changed }
}

var (
	valueStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	selectedOptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	descStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).PaddingLeft(4)
)

// View implements tea.Model
func (s Settings) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Settings") + "\n\n")

	for i, item := range s.items {
		cursor := "  "
		style := itemStyle
		if i == s.selected {
			cursor = "▸ "
			style = selectedStyle
		}

		b.WriteString(style.Render(fmt.Sprintf("%s%s: %s", cursor, item.name, valueStyle.Render(item.value()))) + "\n")
		b.WriteString(descStyle.Render(item.description) + "\n")

		if i == s.selected {
			b.WriteString("    Options: ")
			for j, opt := range item.options {
				if j == item.current {
					b.WriteString(selectedOptionStyle.Render("[" + opt + "]"))
				} else {
					b.WriteString(infoStyle.Render(" " + opt + " "))
				}
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	modsPath := s.data.ModsPath
	if modsPath == "" {
		modsPath = "not set (run 'butterfly settings detect')"
	}
	b.WriteString(infoStyle.Render("Mods folder:  "+modsPath) + "\n")
	b.WriteString(infoStyle.Render("Modding API:  "+s.data.APIState) + "\n")
	b.WriteString(infoStyle.Render("Keybindings:  "+s.data.Keybindings+" (config.yaml)") + "\n")

	b.WriteString(helpStyle.Render("←/→ or enter: change value  a: toggle modding API"))
	return b.String()
}

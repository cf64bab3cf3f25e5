// Package tui is the interactive terminal front end.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"butterfly/internal/core"
	"butterfly/internal/domain"
	"butterfly/internal/tui/views"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gitlab.com/tozd/go/errors"
)

// ViewType represents different screens in the TUI
type ViewType int

const (
	ViewMods ViewType = iota
	ViewProfiles
	ViewSettings
)

// NavigateMsg is sent to change views
type NavigateMsg struct {
	View ViewType
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Err error
}

// Backend is the application state the TUI drives. *core.Service
// implements it.
type Backend interface {
	Settings() domain.Settings
	CatalogEntry(name string) (domain.LocalModRecord, error)
	SyncCatalog(ctx context.Context) (*core.SyncResult, error)
	InstallCatalogMod(ctx context.Context, name string) error
	StartInstallMod(ctx context.Context, name, version, hash, link string) (*core.InstallHandle, error)
	EnableMod(ctx context.Context, name string) error
	DisableMod(ctx context.Context, name string) error
	UninstallMod(ctx context.Context, name string) error
	UpdateMod(ctx context.Context, entry domain.ModManifestEntry) error
	FetchEnabledMods() ([]domain.LocalModRecord, error)
	FetchProfiles() ([]domain.Profile, string)
	CreateProfile(ctx context.Context, name string, mods []string) error
	DeleteProfile(ctx context.Context, name string) error
	SetProfile(ctx context.Context, name string) error
	ApplyProfile(ctx context.Context, name string) ([]string, error)
	SetLanguage(ctx context.Context, language string) error
	SetTheme(ctx context.Context, theme, path string) error
	APIStatus() (domain.APIState, error)
	ToggleAPI(ctx context.Context) (bool, error)
}

// opDoneMsg reports the outcome of a backend operation
type opDoneMsg struct {
	status string
	err    error
}

// syncDoneMsg carries a catalog sync result
type syncDoneMsg struct {
	res *core.SyncResult
	err error
}

// installStartedMsg hands over the progress handle of a running install
type installStartedMsg struct {
	handle *core.InstallHandle
}

// updateDoneMsg reports a finished mod update
type updateDoneMsg struct {
	name string
	err  error
}

type progressTickMsg struct{}

// progressInterval is how often a running install is polled
const progressInterval = 100 * time.Millisecond

// App is the main TUI application model
type App struct {
	ctx         context.Context
	backend     Backend
	keys        *KeyMap
	currentView ViewType
	width       int
	height      int
	status      string
	err         error
	showHelp    bool
	syncing     bool

	newMods  []string
	outdated []string

	mods     views.Mods
	profiles views.Profiles
	settings views.Settings

	install *core.InstallHandle
	bar     progress.Model
}

// NewApp creates the TUI model. keybindings is "vim" or "standard".
// A nil backend renders empty screens.
func NewApp(ctx context.Context, backend Backend, keybindings string) App {
	keys := NewKeyMap(keybindings)
	a := App{
		ctx:         ctx,
		backend:     backend,
		keys:        keys,
		currentView: ViewMods,
		width:       80,
		height:      24,
		mods:        views.NewMods(keys, nil),
		profiles:    views.NewProfiles(keys, nil, ""),
		settings:    views.NewSettings(keys, views.SettingsData{Keybindings: keys.Mode()}),
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
	if backend != nil {
		st := backend.Settings()
		a.settings = views.NewSettings(keys, views.SettingsData{
			Language:    st.Language,
			Theme:       st.Theme,
			Keybindings: keys.Mode(),
		})
		a.reload()
	}
	return a
}

// CurrentView returns the current view type
func (a App) CurrentView() ViewType {
	return a.currentView
}

// Status returns the last status line, or the error text
func (a App) Status() string {
	if a.err != nil {
		return a.err.Error()
	}
	return a.status
}

// Installing reports whether an install is in progress
func (a App) Installing() bool {
	return a.install != nil
}

// reload refreshes every view from the backend
func (a *App) reload() {
	if a.backend == nil {
		return
	}
	st := a.backend.Settings()
	a.mods = a.mods.SetRecords(st.Catalog).SetMarks(a.newMods, a.outdated)

	profiles, active := a.backend.FetchProfiles()
	a.profiles = a.profiles.SetProfiles(profiles, active)

	api := "unknown"
	if state, err := a.backend.APIStatus(); err == nil {
		api = state.String()
	}
	a.settings = a.settings.SetStatus(st.ModsPath, api)
}

// Init implements tea.Model
func (a App) Init() tea.Cmd {
	if a.backend == nil {
		return nil
	}
	return a.syncCmd()
}

// Update implements tea.Model
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.bar.Width = min(max(msg.Width-20, 10), 60)
		return a.updateCurrentView(msg)

	case NavigateMsg:
		a.currentView = msg.View
		return a, nil

	case ErrorMsg:
		a.err = msg.Err
		return a, nil

	case opDoneMsg:
		a.err = msg.err
		if msg.err == nil {
			a.status = msg.status
		}
		a.reload()
		return a, nil

	case syncDoneMsg:
		a.syncing = false
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		a.newMods = msg.res.New
		a.outdated = msg.res.Outdated
		a.status = fmt.Sprintf("%d mods in catalog", len(msg.res.Catalog))
		if msg.res.FromCache {
			a.status += fmt.Sprintf(" (offline, cached %s)", msg.res.CachedAt.Local().Format(time.DateTime))
		}
		a.reload()
		return a, nil

	case installStartedMsg:
		a.install = msg.handle
		a.err = nil
		a.status = "Installing " + msg.handle.Mod
		return a, tickProgress()

	case progressTickMsg:
		return a.pollInstall()

	case updateDoneMsg:
		a.err = msg.err
		if msg.err == nil {
			a.outdated = slices.DeleteFunc(slices.Clone(a.outdated), func(n string) bool { return n == msg.name })
			a.status = "Updated " + msg.name
		}
		a.reload()
		return a, nil

	case views.InstallModMsg:
		return a, a.installCmd(msg.Name)

	case views.ToggleModMsg:
		return a, a.toggleCmd(msg.Name, msg.Enable)

	case views.UninstallModMsg:
		return a, a.opCmd("Uninstalled "+msg.Name, func(ctx context.Context, b Backend) error {
			return b.UninstallMod(ctx, msg.Name)
		})

	case views.UpdateModMsg:
		return a, a.updateCmd(msg.Name)

	case views.ApplyProfileMsg:
		return a, a.applyProfileCmd(msg.Name)

	case views.UseProfileMsg:
		return a, a.opCmd("Active profile: "+msg.Name, func(ctx context.Context, b Backend) error {
			return b.SetProfile(ctx, msg.Name)
		})

	case views.DeleteProfileMsg:
		return a, a.opCmd("Deleted profile "+msg.Name, func(ctx context.Context, b Backend) error {
			return b.DeleteProfile(ctx, msg.Name)
		})

	case views.CreateProfileMsg:
		return a, a.opCmd("Created profile "+msg.Name, func(ctx context.Context, b Backend) error {
			enabled, err := b.FetchEnabledMods()
			if err != nil {
				return err
			}
			names := make([]string, len(enabled))
			for i, m := range enabled {
				names[i] = m.Name
			}
			return b.CreateProfile(ctx, msg.Name, names)
		})

	case views.SettingsChangedMsg:
		return a, a.opCmd("Settings saved", func(ctx context.Context, b Backend) error {
			if err := b.SetLanguage(ctx, msg.Language); err != nil {
				return err
			}
			return b.SetTheme(ctx, msg.Theme, b.Settings().ThemePath)
		})

	case views.ToggleAPIMsg:
		return a, a.toggleAPICmd()
	}

	return a.updateCurrentView(msg)
}

// typing reports whether the current view is capturing text input
func (a App) typing() bool {
	switch a.currentView {
	case ViewMods:
		return a.mods.IsSearchFocused()
	case ViewProfiles:
		return a.profiles.IsCreating()
	}
	return false
}

func (a App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		if a.install != nil {
			a.install.Cancel()
		}
		return a, tea.Quit
	}
	if a.typing() {
		return a.updateCurrentView(msg)
	}

	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch {
	case a.keys.IsQuit(msg):
		if a.install != nil {
			a.install.Cancel()
		}
		return a, tea.Quit

	case a.keys.IsHelp(msg):
		a.showHelp = true
		return a, nil
	}

	switch msg.String() {
	case "1":
		a.currentView = ViewMods
		return a, nil

	case "2":
		a.currentView = ViewProfiles
		return a, nil

	case "3":
		a.currentView = ViewSettings
		return a, nil

	case "r":
		if a.backend == nil || a.syncing {
			return a, nil
		}
		a.syncing = true
		a.status = "Fetching catalog..."
		return a, a.syncCmd()
	}

	return a.updateCurrentView(msg)
}

func (a App) updateCurrentView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		m   tea.Model
		cmd tea.Cmd
	)

	switch a.currentView {
	case ViewMods:
		m, cmd = a.mods.Update(msg)
		a.mods = m.(views.Mods)
	case ViewProfiles:
		m, cmd = a.profiles.Update(msg)
		a.profiles = m.(views.Profiles)
	case ViewSettings:
		m, cmd = a.settings.Update(msg)
		a.settings = m.(views.Settings)
	}

	return a, cmd
}

func tickProgress() tea.Cmd {
	return tea.Tick(progressInterval, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}

func (a App) pollInstall() (tea.Model, tea.Cmd) {
	h := a.install
	if h == nil {
		return a, nil
	}
	select {
	case <-h.Done():
	default:
		return a, tickProgress()
	}

	a.install = nil
	if err := h.Err(); err != nil {
		a.err = err
	} else {
		a.err = nil
		a.status = "Installed " + h.Mod
	}
	a.reload()
	return a, nil
}

// opCmd runs fn against the backend off the UI loop
func (a App) opCmd(status string, fn func(ctx context.Context, b Backend) error) tea.Cmd {
	if a.backend == nil {
		return nil
	}
	ctx, b := a.ctx, a.backend
	return func() tea.Msg {
		return opDoneMsg{status: status, err: fn(ctx, b)}
	}
}

func (a App) syncCmd() tea.Cmd {
	ctx, b := a.ctx, a.backend
	return func() tea.Msg {
		res, err := b.SyncCatalog(ctx)
		return syncDoneMsg{res: res, err: err}
	}
}

// installCmd installs the dependencies of name, then starts name's own
// install and hands its handle back for progress polling
func (a App) installCmd(name string) tea.Cmd {
	if a.backend == nil {
		return nil
	}
	if a.install != nil {
		return func() tea.Msg {
			return ErrorMsg{Err: errors.Errorf("already installing %s", a.install.Mod)}
		}
	}
	ctx, b := a.ctx, a.backend
	return func() tea.Msg {
		rec, err := b.CatalogEntry(name)
		if err != nil {
			return opDoneMsg{err: err}
		}
		for _, dep := range rec.Dependencies {
			if err := b.InstallCatalogMod(ctx, dep); err != nil {
				return opDoneMsg{err: errors.Errorf("installing dependency %s: %w", dep, err)}
			}
		}
		h, err := b.StartInstallMod(ctx, rec.Name, rec.Version, rec.SHA256, rec.Link)
		if err != nil {
			return opDoneMsg{err: err}
		}
		return installStartedMsg{handle: h}
	}
}

func (a App) toggleCmd(name string, enable bool) tea.Cmd {
	if enable {
		return a.opCmd("Enabled "+name, func(ctx context.Context, b Backend) error {
			return b.EnableMod(ctx, name)
		})
	}
	return a.opCmd("Disabled "+name, func(ctx context.Context, b Backend) error {
		return b.DisableMod(ctx, name)
	})
}

func (a App) updateCmd(name string) tea.Cmd {
	if a.backend == nil {
		return nil
	}
	ctx, b := a.ctx, a.backend
	return func() tea.Msg {
		rec, err := b.CatalogEntry(name)
		if err != nil {
			return updateDoneMsg{name: name, err: err}
		}
		return updateDoneMsg{name: name, err: b.UpdateMod(ctx, rec.ModManifestEntry)}
	}
}

func (a App) applyProfileCmd(name string) tea.Cmd {
	if a.backend == nil {
		return nil
	}
	ctx, b := a.ctx, a.backend
	return func() tea.Msg {
		missing, err := b.ApplyProfile(ctx, name)
		if err != nil {
			return opDoneMsg{err: err}
		}
		status := "Applied profile " + name
		if len(missing) > 0 {
			status += " (not installed: " + strings.Join(missing, ", ") + ")"
		}
		return opDoneMsg{status: status}
	}
}

func (a App) toggleAPICmd() tea.Cmd {
	if a.backend == nil {
		return nil
	}
	ctx, b := a.ctx, a.backend
	return func() tea.Msg {
		enabled, err := b.ToggleAPI(ctx)
		if err != nil {
			return opDoneMsg{err: err}
		}
		if enabled {
			return opDoneMsg{status: "Modding API enabled"}
		}
		return opDoneMsg{status: "Modding API disabled"}
	}
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

// View implements tea.Model
func (a App) View() string {
	header := headerStyle.Render("butterfly - Hollow Knight mod manager")

	tabs := []string{"[1]Mods", "[2]Profiles", "[3]Settings"}
	var tabBar strings.Builder
	for i, tab := range tabs {
		if ViewType(i) == a.currentView {
			tabBar.WriteString(activeTabStyle.Render(tab) + "  ")
		} else {
			tabBar.WriteString(tabStyle.Render(tab) + "  ")
		}
	}

	content := a.renderCurrentView()
	if a.showHelp {
		content = a.keys.FullHelp()
	}

	var status string
	switch {
	case a.install != nil:
		status = fmt.Sprintf("Installing %s %s", a.install.Mod, a.bar.ViewAs(float64(a.install.Percent())/100))
	case a.err != nil:
		status = errStyle.Render(fmt.Sprintf("Error: %v", a.err))
	case a.status != "":
		status = statusStyle.Render(a.status)
	}

	footer := footerStyle.Render(a.keys.NavigationHelp() + "  r: refresh  ?: help  q: quit")

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s\n%s", header, tabBar.String(), content, status, footer)
}

func (a App) renderCurrentView() string {
	switch a.currentView {
	case ViewMods:
		return a.mods.View()
	case ViewProfiles:
		return a.profiles.View()
	case ViewSettings:
		return a.settings.View()
	default:
		return "Unknown view"
	}
}

// Run starts the TUI and blocks until it exits
func Run(ctx context.Context, backend Backend, keybindings string) error {
	app := NewApp(ctx, backend, keybindings)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

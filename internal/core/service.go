package core

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"butterfly/internal/domain"
	"butterfly/internal/locate"
	"butterfly/internal/source/modlinks"
	"butterfly/internal/storage/config"
	"butterfly/internal/storage/db"
	"butterfly/internal/storage/settings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ServiceConfig holds configuration for the core service
type ServiceConfig struct {
	ConfigDir  string // Directory holding config.yaml
	ConfigFile string // Explicit config file, overrides ConfigDir
	DataDir    string // Directory for Settings.json and the database

	// Optional overrides, mostly for tests
	HTTPClient *http.Client
	Catalog    CatalogFetcher
}

// CatalogFetcher retrieves the remote mod catalog and API manifest
type CatalogFetcher interface {
	FetchMods(ctx context.Context) ([]domain.ModManifestEntry, error)
	APIFetcher
}

// Service is the application state object behind every command
type Service struct {
	config   *config.Config
	db       *db.DB
	store    *settings.Store
	engine   *Engine
	profiles *ProfileManager
	api      *APIManager
	catalog  CatalogFetcher

	configDir string
	dataDir   string
}

// NewService loads config and settings, opens the database and wires the engine.
// Corrupt settings are replaced with defaults.
func NewService(ctx context.Context, cfg ServiceConfig) (*Service, error) {
	var (
		appConfig *config.Config
		err       error
	)
	if cfg.ConfigFile != "" {
		appConfig, err = config.LoadFile(cfg.ConfigFile)
	} else {
		appConfig, err = config.Load(cfg.ConfigDir)
	}
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, domain.FilesystemError("", cfg.DataDir, err)
	}

	database, err := db.New(filepath.Join(cfg.DataDir, db.FileName))
	if err != nil {
		return nil, errors.Errorf("opening database: %w", err)
	}

	store, err := settings.Recover(ctx, filepath.Join(cfg.DataDir, settings.FileName))
	if err != nil {
		database.Close()
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	catalog := cfg.Catalog
	if catalog == nil {
		catalog = modlinks.NewClient(httpClient,
			modlinks.WithURLs(appConfig.ModLinksURL, appConfig.APILinksURL),
			modlinks.WithTimeout(appConfig.CatalogTimeout),
		)
	}

	engine := NewEngine(store, EngineOptions{
		VerifyHashes:    appConfig.VerifyHashes,
		DownloadTimeout: appConfig.DownloadTimeout,
		Workers:         appConfig.Workers,
		HTTPClient:      httpClient,
		History:         database,
	})

	return &Service{
		config:    appConfig,
		db:        database,
		store:     store,
		engine:    engine,
		profiles:  NewProfileManager(store, engine),
		api:       NewAPIManager(engine, catalog),
		catalog:   catalog,
		configDir: cfg.ConfigDir,
		dataDir:   cfg.DataDir,
	}, nil
}

// Close releases resources held by the service
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Config returns the loaded application config
func (s *Service) Config() *config.Config {
	return s.config
}

// Engine returns the lifecycle engine
func (s *Service) Engine() *Engine {
	return s.engine
}

// Settings returns a snapshot of the persisted settings
func (s *Service) Settings() domain.Settings {
	return s.store.Snapshot()
}

// SettingsPath returns the location of Settings.json
func (s *Service) SettingsPath() string {
	return s.store.Path()
}

// InstallMod downloads and installs a catalog mod, blocking until done
func (s *Service) InstallMod(ctx context.Context, name, version, hash, link string) error {
	return s.engine.Install(ctx, InstallRequest{Name: name, Version: version, SHA256: hash, Link: link})
}

// StartInstallMod begins an install and returns its progress handle
func (s *Service) StartInstallMod(ctx context.Context, name, version, hash, link string) (*InstallHandle, error) {
	return s.engine.StartInstall(ctx, InstallRequest{Name: name, Version: version, SHA256: hash, Link: link})
}

// InstallCatalogMod installs a mod by catalog name, dependencies first
func (s *Service) InstallCatalogMod(ctx context.Context, name string) error {
	return s.engine.InstallWithDependencies(ctx, name)
}

// CatalogEntry looks up a catalog record by name
func (s *Service) CatalogEntry(name string) (domain.LocalModRecord, error) {
	snap := s.store.Snapshot()
	i := domain.FindRecord(snap.Catalog, name)
	if i < 0 {
		return domain.LocalModRecord{}, domain.NotFoundError("mod", name)
	}
	return snap.Catalog[i], nil
}

// EnableMod moves a disabled mod back into the mods root
func (s *Service) EnableMod(ctx context.Context, name string) error {
	return s.engine.Enable(ctx, name)
}

// DisableMod moves a mod into Disabled
func (s *Service) DisableMod(ctx context.Context, name string) error {
	return s.engine.Disable(ctx, name)
}

// UninstallMod removes a mod from disk
func (s *Service) UninstallMod(ctx context.Context, name string) error {
	return s.engine.Uninstall(ctx, name)
}

// CheckForUpdate reports whether the stored version of name differs from version
func (s *Service) CheckForUpdate(name, version string) bool {
	return s.engine.CheckForUpdate(name, version)
}

// FetchInstalledMods returns catalog mods present on disk
func (s *Service) FetchInstalledMods() ([]domain.LocalModRecord, error) {
	return s.engine.InstalledMods()
}

// FetchEnabledMods returns catalog mods that are enabled on disk
func (s *Service) FetchEnabledMods() ([]domain.LocalModRecord, error) {
	return s.engine.EnabledMods()
}

// FetchDownloadProgress returns the percent of the most recent install
func (s *Service) FetchDownloadProgress() int {
	return s.engine.Progress().Latest()
}

// InstallProgress returns the handle for a specific install
func (s *Service) InstallProgress(id uuid.UUID) (*InstallHandle, bool) {
	return s.engine.Progress().Get(id)
}

// CreateProfile adds a profile
func (s *Service) CreateProfile(ctx context.Context, name string, mods []string) error {
	return s.profiles.Create(ctx, name, mods)
}

// DeleteProfile removes a profile
func (s *Service) DeleteProfile(ctx context.Context, name string) error {
	return s.profiles.Delete(ctx, name)
}

// SetProfile sets the active profile; "" clears it
func (s *Service) SetProfile(ctx context.Context, name string) error {
	return s.profiles.Set(ctx, name)
}

// FetchProfiles returns all profiles and the active profile name
func (s *Service) FetchProfiles() ([]domain.Profile, string) {
	return s.profiles.List()
}

// ApplyProfile enables exactly the profile's installed mods and makes it active
func (s *Service) ApplyProfile(ctx context.Context, name string) ([]string, error) {
	return s.profiles.Apply(ctx, name)
}

// ExportProfiles encodes the named profiles, or all of them
func (s *Service) ExportProfiles(names []string) ([]byte, error) {
	return s.profiles.Export(names)
}

// ImportProfiles adds profiles from exported data
func (s *Service) ImportProfiles(ctx context.Context, data []byte) ([]string, error) {
	return s.profiles.Import(ctx, data)
}

// ReconcileCatalog merges a remote catalog into local state
func (s *Service) ReconcileCatalog(ctx context.Context, remote []domain.ModManifestEntry) (*ReconcileResult, error) {
	return s.engine.Reconcile(ctx, remote)
}

// SyncResult describes where a synced catalog came from
type SyncResult struct {
	*ReconcileResult
	FromCache bool
	CachedAt  time.Time
}

// SyncCatalog fetches the remote catalog, caches it and reconciles local
// state against it. When the fetch fails with a network error and a cached
// catalog exists, the cache is used instead.
func (s *Service) SyncCatalog(ctx context.Context) (*SyncResult, error) {
	log := zerolog.Ctx(ctx)

	remote, fetchErr := s.catalog.FetchMods(ctx)
	if fetchErr == nil {
		if err := s.db.SaveCatalog(ctx, remote); err != nil {
			log.Warn().Err(err).Msg("caching catalog")
		}
		res, err := s.engine.Reconcile(ctx, remote)
		if err != nil {
			return nil, err
		}
		return &SyncResult{ReconcileResult: res}, nil
	}

	if !errors.Is(fetchErr, domain.ErrNetwork) {
		return nil, fetchErr
	}

	cached, at, err := s.db.LoadCatalog(ctx)
	if err != nil {
		return nil, errors.Errorf("loading cached catalog: %w (fetch failed: %s)", err, fetchErr.Error())
	}
	if len(cached) == 0 {
		return nil, fetchErr
	}

	log.Warn().Err(fetchErr).Time("cached_at", at).Msg("catalog unreachable, using cached copy")
	res, err := s.engine.Reconcile(ctx, cached)
	if err != nil {
		return nil, err
	}
	return &SyncResult{ReconcileResult: res, FromCache: true, CachedAt: at}, nil
}

// Outdated lists installed catalog mods whose remote version differs,
// using a fresh catalog fetch
func (s *Service) Outdated(ctx context.Context) ([]domain.ModManifestEntry, error) {
	remote, err := s.catalog.FetchMods(ctx)
	if err != nil {
		return nil, err
	}
	root, err := s.engine.ModsRoot()
	if err != nil {
		return nil, err
	}

	var out []domain.ModManifestEntry
	for _, entry := range remote {
		if domain.ValidModName(entry.Name) != nil || !s.engine.Inspector().IsInstalled(root, entry.Name) {
			continue
		}
		if s.engine.CheckForUpdate(entry.Name, entry.Version) {
			out = append(out, entry)
		}
	}
	return out, nil
}

// UpdateMod reinstalls an installed mod at the given catalog entry's version
func (s *Service) UpdateMod(ctx context.Context, entry domain.ModManifestEntry) error {
	if err := s.engine.Uninstall(ctx, entry.Name); err != nil {
		return err
	}
	return s.engine.Install(ctx, InstallRequest{Name: entry.Name, Version: entry.Version, SHA256: entry.SHA256, Link: entry.Link})
}

// SetLanguage stores the display language
func (s *Service) SetLanguage(ctx context.Context, language string) error {
	language = strings.TrimSpace(language)
	if language == "" {
		return errors.New("language cannot be empty")
	}
	return s.store.Update(ctx, func(st *domain.Settings) error {
		st.Language = language
		return nil
	})
}

// SetTheme stores the theme name and an optional custom stylesheet path.
// An empty path clears the custom stylesheet.
func (s *Service) SetTheme(ctx context.Context, theme, path string) error {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return errors.New("theme cannot be empty")
	}
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return domain.FilesystemError("", path, err)
		}
		if info.IsDir() {
			return domain.FilesystemError("", path, errors.New("theme path is a directory"))
		}
	}
	return s.store.Update(ctx, func(st *domain.Settings) error {
		st.Theme = theme
		st.ThemePath = path
		return nil
	})
}

// ThemeData is the active theme and its custom stylesheet, if any
type ThemeData struct {
	Theme string
	Path  string
	CSS   string
}

// ThemeData returns the active theme and reads its stylesheet
func (s *Service) ThemeData() (ThemeData, error) {
	snap := s.store.Snapshot()
	td := ThemeData{Theme: snap.Theme, Path: snap.ThemePath}
	if td.Path == "" {
		return td, nil
	}
	data, err := os.ReadFile(td.Path)
	if err != nil {
		return td, domain.FilesystemError("", td.Path, err)
	}
	td.CSS = string(data)
	return td, nil
}

// SetModsRoot stores the mods root, creating the Mods folder when its
// parent exists
func (s *Service) SetModsRoot(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("mods path cannot be empty")
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return domain.FilesystemError("", path, err)
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		return domain.FilesystemError("", path, errors.Errorf("parent folder missing: %w", domain.ErrModsRootMissing))
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return domain.FilesystemError("", path, err)
	}

	if err := s.store.Update(ctx, func(st *domain.Settings) error {
		st.ModsPath = path
		return nil
	}); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("path", path).Msg("mods path set")
	return nil
}

// DetectModsRoot resolves the mods root with r and stores it
func (s *Service) DetectModsRoot(ctx context.Context, r locate.Resolver) (string, error) {
	root, err := r.ResolveModsRoot()
	if err != nil {
		return "", err
	}
	if err := s.SetModsRoot(ctx, root); err != nil {
		return "", err
	}
	return root, nil
}

// InstallManual installs a local .dll or .zip and returns the mod name
func (s *Service) InstallManual(ctx context.Context, path string) (string, error) {
	return s.engine.InstallManual(ctx, path)
}

// ManualMods lists mod folders the catalog does not know about
func (s *Service) ManualMods() ([]domain.ManualMod, error) {
	return s.engine.ManualMods()
}

// Readme returns an installed mod's readme text
func (s *Service) Readme(name string) (string, error) {
	return s.engine.Readme(name)
}

// History returns recent lifecycle operations, newest first
func (s *Service) History(ctx context.Context, mod string, limit int) ([]domain.HistoryEntry, error) {
	return s.db.History(ctx, mod, limit)
}

// APIStatus reports the modding API state
func (s *Service) APIStatus() (domain.APIState, error) {
	return s.api.Status()
}

// ToggleAPI swaps between the modded and vanilla assembly
func (s *Service) ToggleAPI(ctx context.Context) (bool, error) {
	return s.api.Toggle(ctx)
}

// InstallAPI downloads and installs the modding API
func (s *Service) InstallAPI(ctx context.Context) error {
	return s.api.Install(ctx)
}

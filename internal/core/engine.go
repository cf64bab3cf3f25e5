package core

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"butterfly/internal/domain"
	"butterfly/internal/modfs"
	"butterfly/internal/storage/settings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultDownloadTimeout bounds a single mod download
const DefaultDownloadTimeout = 10 * time.Minute

// HistoryRecorder journals lifecycle operations
type HistoryRecorder interface {
	RecordHistory(ctx context.Context, entry domain.HistoryEntry) error
}

// EngineOptions configures an Engine
type EngineOptions struct {
	VerifyHashes    bool
	DownloadTimeout time.Duration // Zero means DefaultDownloadTimeout
	Workers         int           // Zero means one per CPU
	HTTPClient      *http.Client  // Nil means http.DefaultClient
	History         HistoryRecorder
}

// InstallRequest names a catalog mod to install
type InstallRequest struct {
	Name    string
	Version string
	SHA256  string // Empty skips verification
	Link    string
}

// Engine performs mod lifecycle operations against the mods root recorded
// in the settings store
type Engine struct {
	store      *settings.Store
	inspector  *modfs.Inspector
	downloader *Downloader
	extractor  *Extractor
	resolver   *DependencyResolver
	pool       *Pool
	progress   *ProgressTracker
	history    HistoryRecorder

	verifyHashes    bool
	downloadTimeout time.Duration
}

// NewEngine creates an engine over store
func NewEngine(store *settings.Store, opts EngineOptions) *Engine {
	timeout := opts.DownloadTimeout
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}
	return &Engine{
		store:           store,
		inspector:       modfs.NewInspector(),
		downloader:      NewDownloader(opts.HTTPClient),
		extractor:       NewExtractor(),
		resolver:        NewDependencyResolver(),
		pool:            NewPool(opts.Workers),
		progress:        NewProgressTracker(),
		history:         opts.History,
		verifyHashes:    opts.VerifyHashes,
		downloadTimeout: timeout,
	}
}

// Inspector returns the engine's filesystem inspector
func (e *Engine) Inspector() *modfs.Inspector {
	return e.inspector
}

// Progress returns the tracker holding install handles
func (e *Engine) Progress() *ProgressTracker {
	return e.progress
}

// ModsRoot returns the configured mods root, failing if it is unset or
// not an existing directory
func (e *Engine) ModsRoot() (string, error) {
	root := e.store.Snapshot().ModsPath
	if root == "" {
		return "", domain.FilesystemError("", root, errors.Errorf("mods path is not set: %w", domain.ErrModsRootMissing))
	}
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.FilesystemError("", root, domain.ErrModsRootMissing)
		}
		return "", domain.FilesystemError("", root, err)
	}
	if !info.IsDir() {
		return "", domain.FilesystemError("", root, domain.ErrModsRootMissing)
	}
	return root, nil
}

// Install installs a mod and blocks until it finishes or ctx is done.
// Cancelling ctx cancels the install.
func (e *Engine) Install(ctx context.Context, req InstallRequest) error {
	h, err := e.StartInstall(ctx, req)
	if err != nil {
		return err
	}
	if err := h.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			h.Cancel()
		}
		return err
	}
	return nil
}

// StartInstall begins installing a mod and returns its progress handle.
// A mod already present on disk is marked enabled (and enabled in place
// if it was disabled) without downloading; the returned handle is then
// already complete.
func (e *Engine) StartInstall(ctx context.Context, req InstallRequest) (*InstallHandle, error) {
	log := zerolog.Ctx(ctx)

	if err := domain.ValidModName(req.Name); err != nil {
		return nil, err
	}

	root, err := e.ModsRoot()
	if err != nil {
		return nil, domain.WithMod(err, req.Name)
	}
	e.progress.Prune()

	if e.inspector.IsInstalled(root, req.Name) {
		h := newInstallHandle(req.Name, nil)
		e.progress.add(h)

		if e.inspector.IsEnabled(root, req.Name) {
			log.Info().Str("mod", req.Name).Msg("mod already installed and enabled")
			err = e.markInstalled(ctx, req, false)
		} else {
			log.Info().Str("mod", req.Name).Msg("mod already installed, enabling in place")
			err = e.Enable(ctx, req.Name)
			if err == nil {
				err = e.markInstalled(ctx, req, false)
			}
		}
		h.finish(err)
		return h, err
	}

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.downloadTimeout)
	h := newInstallHandle(req.Name, cancel)
	e.progress.add(h)

	log.Debug().Str("mod", req.Name).Str("request", h.ID.String()).Msg("queueing install")

	e.pool.Go(jobCtx, func() {
		err := e.runInstall(jobCtx, h, root, req)
		e.record(jobCtx, domain.ActionInstall, req.Name, req.Version, err)
		h.finish(err)
	}, func(err error) {
		h.finish(errors.Errorf("install of %s not started: %w", req.Name, err))
	})

	return h, nil
}

func (e *Engine) runInstall(ctx context.Context, h *InstallHandle, root string, req InstallRequest) error {
	log := zerolog.Ctx(ctx).With().Str("mod", req.Name).Str("request", h.ID.String()).Logger()

	modDir := e.inspector.ModPath(root, req.Name)
	created := !modfs.Exists(modDir)
	if err := os.MkdirAll(modDir, 0755); err != nil {
		return domain.FilesystemError(req.Name, modDir, err)
	}

	dest := filepath.Join(modDir, e.downloadName(req))
	verify := e.verifyHashes && req.SHA256 != ""

	// Drop the folder this install created if no download completed
	downloaded := false
	defer func() {
		if !downloaded && created {
			if err := modfs.RemoveAll(modDir); err != nil {
				log.Warn().Err(err).Msg("removing incomplete mod folder")
			}
		}
	}()

	// A mismatched download is retried once before giving up.
	const attempts = 2
	for attempt := 1; ; attempt++ {
		result, err := e.downloader.Download(ctx, req.Link, dest, func(p DownloadProgress) {
			h.setPercent(min(p.Percent, 99))
		})
		if err != nil {
			return domain.WithMod(err, req.Name)
		}

		if !verify || strings.EqualFold(result.Checksum, req.SHA256) {
			break
		}

		_ = os.Remove(dest)
		if attempt == attempts {
			return domain.IntegrityError(req.Name, dest, strings.ToLower(req.SHA256), result.Checksum)
		}
		log.Warn().
			Str("want", req.SHA256).
			Str("got", result.Checksum).
			Msg("checksum mismatch, downloading again")
	}

	downloaded = true

	if err := e.extractor.Unpack(ctx, dest, modDir); err != nil {
		return domain.WithMod(err, req.Name)
	}

	if err := e.markInstalled(ctx, req, true); err != nil {
		return err
	}

	log.Info().Str("version", req.Version).Msg("mod installed")
	return nil
}

// downloadName is temp<ext> for archives and the URL's last path segment otherwise
func (e *Engine) downloadName(req InstallRequest) string {
	base := ""
	if u, err := url.Parse(req.Link); err == nil {
		base = path.Base(u.Path)
	}
	if base == "" || base == "/" || base == "." || base == ".." {
		base = req.Name + ".dll"
	}
	if e.extractor.CanExtract(base) {
		return "temp" + strings.ToLower(path.Ext(base))
	}
	return base
}

// markInstalled records the mod as installed and enabled. With fromRequest
// the version, link and hash are taken from req; a record is created if
// none exists either way.
func (e *Engine) markInstalled(ctx context.Context, req InstallRequest, fromRequest bool) error {
	if err := domain.ValidModName(req.Name); err != nil {
		return err
	}
	return e.store.Update(ctx, func(s *domain.Settings) error {
		i := domain.FindRecord(s.Catalog, req.Name)
		if i < 0 {
			s.Catalog = append(s.Catalog, domain.LocalModRecord{
				ModManifestEntry: domain.ModManifestEntry{Name: req.Name},
			})
			i = len(s.Catalog) - 1
			fromRequest = true
		}
		rec := &s.Catalog[i]
		if fromRequest {
			rec.Version = req.Version
			rec.Link = req.Link
			rec.SHA256 = req.SHA256
		}
		rec.Installed = true
		rec.Enabled = true
		return nil
	})
}

// Enable moves a disabled mod back under the mods root. A mod that is not
// disabled is left alone with a warning.
func (e *Engine) Enable(ctx context.Context, name string) error {
	if err := domain.ValidModName(name); err != nil {
		return err
	}
	root, err := e.ModsRoot()
	if err != nil {
		return domain.WithMod(err, name)
	}

	enabledPath := e.inspector.ModPath(root, name)
	disabledPath := e.inspector.DisabledPath(root, name)

	if e.inspector.IsConflicted(root, name) {
		return domain.FilesystemError(name, enabledPath, errors.Errorf("a disabled copy also exists at %s", disabledPath))
	}

	if !modfs.Exists(disabledPath) {
		zerolog.Ctx(ctx).Warn().Str("mod", name).Str("path", disabledPath).Msg("mod is not disabled, nothing to enable")
		return e.syncRecord(ctx, root, name)
	}

	if err := modfs.Move(disabledPath, enabledPath); err != nil {
		err = domain.WithMod(err, name)
		e.record(ctx, domain.ActionEnable, name, "", err)
		return err
	}
	e.record(ctx, domain.ActionEnable, name, "", nil)
	return e.syncRecord(ctx, root, name)
}

// Disable moves an enabled mod into the Disabled folder. A mod that is not
// enabled is left alone with a warning.
func (e *Engine) Disable(ctx context.Context, name string) error {
	if err := domain.ValidModName(name); err != nil {
		return err
	}
	root, err := e.ModsRoot()
	if err != nil {
		return domain.WithMod(err, name)
	}

	disabledRoot := filepath.Join(root, domain.DisabledFolderName)
	if err := os.MkdirAll(disabledRoot, 0755); err != nil {
		return domain.FilesystemError(name, disabledRoot, err)
	}

	enabledPath := e.inspector.ModPath(root, name)
	disabledPath := e.inspector.DisabledPath(root, name)

	if e.inspector.IsConflicted(root, name) {
		return domain.FilesystemError(name, disabledPath, errors.Errorf("an enabled copy also exists at %s", enabledPath))
	}

	if !modfs.Exists(enabledPath) {
		zerolog.Ctx(ctx).Warn().Str("mod", name).Str("path", enabledPath).Msg("mod is not enabled, nothing to disable")
		return e.syncRecord(ctx, root, name)
	}

	if err := modfs.Move(enabledPath, disabledPath); err != nil {
		err = domain.WithMod(err, name)
		e.record(ctx, domain.ActionDisable, name, "", err)
		return err
	}
	e.record(ctx, domain.ActionDisable, name, "", nil)
	return e.syncRecord(ctx, root, name)
}

// Uninstall removes a mod's folder, enabled or disabled. The catalog
// record is kept with installed and enabled cleared.
func (e *Engine) Uninstall(ctx context.Context, name string) error {
	if err := domain.ValidModName(name); err != nil {
		return err
	}
	root, err := e.ModsRoot()
	if err != nil {
		return domain.WithMod(err, name)
	}

	removed := false
	for _, p := range []string{e.inspector.ModPath(root, name), e.inspector.DisabledPath(root, name)} {
		if !modfs.Exists(p) {
			continue
		}
		if err := modfs.RemoveAll(p); err != nil {
			err = domain.WithMod(err, name)
			e.record(ctx, domain.ActionUninstall, name, "", err)
			return err
		}
		removed = true
	}

	if !removed {
		zerolog.Ctx(ctx).Warn().Str("mod", name).Msg("mod is not installed, nothing to uninstall")
	} else {
		e.record(ctx, domain.ActionUninstall, name, "", nil)
	}
	return e.syncRecord(ctx, root, name)
}

// syncRecord sets an existing record's flags from disk
func (e *Engine) syncRecord(ctx context.Context, root, name string) error {
	installed := e.inspector.IsInstalled(root, name)
	enabled := e.inspector.IsEnabled(root, name)

	snap := e.store.Snapshot()
	i := domain.FindRecord(snap.Catalog, name)
	if i < 0 || (snap.Catalog[i].Installed == installed && snap.Catalog[i].Enabled == enabled) {
		return nil
	}

	return e.store.Update(ctx, func(s *domain.Settings) error {
		if i := domain.FindRecord(s.Catalog, name); i >= 0 {
			s.Catalog[i].Installed = installed
			s.Catalog[i].Enabled = enabled
		}
		return nil
	})
}

// CheckForUpdate reports whether a record for name exists with a version
// different from remoteVersion
func (e *Engine) CheckForUpdate(name, remoteVersion string) bool {
	snap := e.store.Snapshot()
	i := domain.FindRecord(snap.Catalog, name)
	return i >= 0 && snap.Catalog[i].Version != remoteVersion
}

// InstalledMods returns catalog records whose folder exists on disk
func (e *Engine) InstalledMods() ([]domain.LocalModRecord, error) {
	return e.filterCatalog(e.inspector.IsInstalled)
}

// EnabledMods returns catalog records that are enabled on disk
func (e *Engine) EnabledMods() ([]domain.LocalModRecord, error) {
	return e.filterCatalog(e.inspector.IsEnabled)
}

func (e *Engine) filterCatalog(keep func(root, name string) bool) ([]domain.LocalModRecord, error) {
	root, err := e.ModsRoot()
	if err != nil {
		return nil, err
	}
	var out []domain.LocalModRecord
	for _, r := range e.store.Snapshot().Catalog {
		if domain.ValidModName(r.Name) == nil && keep(root, r.Name) {
			r.Installed = e.inspector.IsInstalled(root, r.Name)
			r.Enabled = e.inspector.IsEnabled(root, r.Name)
			out = append(out, r)
		}
	}
	return out, nil
}

// InstallWithDependencies installs name and every catalog mod it depends
// on, dependencies first
func (e *Engine) InstallWithDependencies(ctx context.Context, name string) error {
	snap := e.store.Snapshot()
	catalog := make([]domain.ModManifestEntry, len(snap.Catalog))
	for i, r := range snap.Catalog {
		catalog[i] = r.ModManifestEntry
	}

	order, err := e.resolver.Resolve(catalog, name)
	if err != nil {
		return errors.Errorf("resolving dependencies of %s: %w", name, err)
	}

	for _, m := range order {
		if err := e.Install(ctx, InstallRequest{Name: m.Name, Version: m.Version, SHA256: m.SHA256, Link: m.Link}); err != nil {
			return err
		}
	}
	return nil
}

// InstallManual installs a local .dll or .zip as <root>/<stem>. A .dll is
// copied in as <stem>.dll; a .zip is extracted and left untouched at its
// source. A placeholder record is added when the catalog has none.
func (e *Engine) InstallManual(ctx context.Context, src string) (string, error) {
	root, err := e.ModsRoot()
	if err != nil {
		return "", err
	}

	base := filepath.Base(src)
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if err := domain.ValidModName(stem); err != nil {
		return "", err
	}
	modDir := e.inspector.ModPath(root, stem)

	switch ext {
	case ".dll":
		if err := modfs.CopyFile(src, filepath.Join(modDir, stem+".dll")); err != nil {
			return "", domain.WithMod(err, stem)
		}
	case ".zip":
		if err := e.extractor.Extract(ctx, src, modDir); err != nil {
			return "", domain.WithMod(err, stem)
		}
	default:
		return "", domain.ExtractError(stem, src, errors.Errorf("unsupported file type %q", ext))
	}

	err = e.store.Update(ctx, func(s *domain.Settings) error {
		i := domain.FindRecord(s.Catalog, stem)
		if i >= 0 {
			s.Catalog[i].Installed = true
			s.Catalog[i].Enabled = e.inspector.IsEnabled(root, stem)
			return nil
		}
		s.Catalog = append(s.Catalog, domain.LocalModRecord{
			ModManifestEntry: domain.ModManifestEntry{
				Name:        stem,
				Description: domain.NoDescription,
				Version:     domain.UnknownVersion,
			},
			Installed: true,
			Enabled:   e.inspector.IsEnabled(root, stem),
		})
		return nil
	})
	if err != nil {
		return "", err
	}

	e.record(ctx, domain.ActionInstall, stem, domain.UnknownVersion, nil)
	zerolog.Ctx(ctx).Info().Str("mod", stem).Str("source", src).Msg("manual mod installed")
	return stem, nil
}

// ManualMods lists mod folders on disk that the catalog does not know about
func (e *Engine) ManualMods() ([]domain.ManualMod, error) {
	root, err := e.ModsRoot()
	if err != nil {
		return nil, err
	}
	snap := e.store.Snapshot()
	known := make([]string, 0, len(snap.Catalog))
	for _, r := range snap.Catalog {
		if r.Version != domain.UnknownVersion {
			known = append(known, r.Name)
		}
	}
	return e.inspector.ManualMods(root, known)
}

// Readme returns the contents of an installed mod's readme, or "" if it has none
func (e *Engine) Readme(name string) (string, error) {
	if err := domain.ValidModName(name); err != nil {
		return "", err
	}
	root, err := e.ModsRoot()
	if err != nil {
		return "", err
	}
	p, err := e.inspector.FindReadme(root, name)
	if err != nil || p == "" {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", domain.FilesystemError(name, p, err)
	}
	return string(data), nil
}

func (e *Engine) record(ctx context.Context, action domain.HistoryAction, mod, version string, opErr error) {
	if e.history == nil {
		return
	}
	entry := domain.HistoryEntry{
		ID:      uuid.NewString(),
		Mod:     mod,
		Version: version,
		Action:  action,
		At:      time.Now().UTC(),
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	if err := e.history.RecordHistory(ctx, entry); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("mod", mod).Msg("recording history")
	}
}

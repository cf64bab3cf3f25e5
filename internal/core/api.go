package core

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"butterfly/internal/domain"
	"butterfly/internal/modfs"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Assembly names inside the game's Managed folder
const (
	AssemblyFile        = "Assembly-CSharp.dll"
	VanillaAssemblyFile = AssemblyFile + ".vanilla"
	ModdedAssemblyFile  = AssemblyFile + ".modded"
)

// Release downloads used when the API manifest has no link for this OS
var defaultAPILinks = map[string]string{
	"linux":   "https://github.com/hk-modding/api/releases/latest/download/ModdingApiLinux.zip",
	"darwin":  "https://github.com/hk-modding/api/releases/latest/download/ModdingApiMac.zip",
	"windows": "https://github.com/hk-modding/api/releases/latest/download/ModdingApiWin.zip",
}

// APIFetcher retrieves the modding API manifest
type APIFetcher interface {
	FetchAPI(ctx context.Context) (*domain.APIManifest, error)
}

// APIManager installs and toggles the modding API in the game's Managed
// folder, the parent of the mods root
type APIManager struct {
	engine  *Engine
	fetcher APIFetcher
	goos    string
}

// NewAPIManager creates an API manager
func NewAPIManager(engine *Engine, fetcher APIFetcher) *APIManager {
	return &APIManager{engine: engine, fetcher: fetcher, goos: runtime.GOOS}
}

// ManagedDir returns the folder holding the game assemblies
func (m *APIManager) ManagedDir() (string, error) {
	root, err := m.engine.ModsRoot()
	if err != nil {
		return "", err
	}
	return filepath.Dir(filepath.Clean(root)), nil
}

// Status reports whether the API is installed and which assembly is live
func (m *APIManager) Status() (domain.APIState, error) {
	managed, err := m.ManagedDir()
	if err != nil {
		return domain.APINotInstalled, err
	}
	vanilla := modfs.Exists(filepath.Join(managed, VanillaAssemblyFile))
	modded := modfs.Exists(filepath.Join(managed, ModdedAssemblyFile))

	switch {
	case vanilla && modded:
		return domain.APINotInstalled, domain.FilesystemError("", managed, errors.New("both vanilla and modded assembly backups exist"))
	case vanilla:
		return domain.APIEnabled, nil
	case modded:
		return domain.APIDisabled, nil
	default:
		return domain.APINotInstalled, nil
	}
}

// Toggle swaps the live assembly with its backup and returns whether the
// API is now enabled. When the API was never installed it is installed.
func (m *APIManager) Toggle(ctx context.Context) (bool, error) {
	state, err := m.Status()
	if err != nil {
		return false, err
	}
	managed, err := m.ManagedDir()
	if err != nil {
		return false, err
	}

	live := filepath.Join(managed, AssemblyFile)
	vanilla := filepath.Join(managed, VanillaAssemblyFile)
	modded := filepath.Join(managed, ModdedAssemblyFile)
	log := zerolog.Ctx(ctx)

	switch state {
	case domain.APIEnabled:
		if err := swap(live, modded, vanilla); err != nil {
			return true, err
		}
		log.Info().Msg("modding API disabled")
		m.engine.record(ctx, domain.ActionAPI, "", "disabled", nil)
		return false, nil
	case domain.APIDisabled:
		if err := swap(live, vanilla, modded); err != nil {
			return false, err
		}
		log.Info().Msg("modding API enabled")
		m.engine.record(ctx, domain.ActionAPI, "", "enabled", nil)
		return true, nil
	default:
		log.Warn().Msg("no assembly backups found, installing modding API")
		if err := m.Install(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
}

// swap moves live to backup, then restore to live
func swap(live, backup, restore string) error {
	if err := os.Rename(live, backup); err != nil {
		return domain.FilesystemError("", live, err)
	}
	if err := os.Rename(restore, live); err != nil {
		if rerr := os.Rename(backup, live); rerr != nil {
			return domain.FilesystemError("", restore, errors.Join(err, rerr))
		}
		return domain.FilesystemError("", restore, err)
	}
	return nil
}

// placeAssembly decides where a freshly downloaded modded assembly goes.
// With no backup yet the live vanilla assembly is moved aside first. When
// the API is disabled the live file is vanilla, so the new assembly
// replaces the .modded backup instead. Otherwise the live file is replaced.
func placeAssembly(managed string) (string, error) {
	live := filepath.Join(managed, AssemblyFile)
	vanilla := filepath.Join(managed, VanillaAssemblyFile)
	modded := filepath.Join(managed, ModdedAssemblyFile)

	switch {
	case modfs.Exists(modded):
		return modded, nil
	case modfs.Exists(vanilla):
		return live, nil
	default:
		if err := os.Rename(live, vanilla); err != nil {
			return "", domain.FilesystemError("", live, err)
		}
		return live, nil
	}
}

// Install downloads the API for this OS and copies each of its files into
// the Managed folder when missing or different. The original assembly is
// kept as the vanilla backup.
func (m *APIManager) Install(ctx context.Context) (err error) {
	defer func() { m.engine.record(ctx, domain.ActionAPI, "", "install", err) }()

	managed, err := m.ManagedDir()
	if err != nil {
		return err
	}

	manifest, err := m.fetcher.FetchAPI(ctx)
	if err != nil {
		return err
	}

	for _, file := range manifest.Files {
		if !filepath.IsLocal(file) {
			return domain.FilesystemError("", file, errors.New("API file escapes the Managed folder"))
		}
	}

	link, ok := manifest.Links.ForOS(m.goos)
	if !ok {
		u, known := defaultAPILinks[m.goos]
		if !known {
			return errors.Errorf("modding API is not available for %s", m.goos)
		}
		link = domain.APILink{URL: u}
	}

	tmp, err := os.MkdirTemp("", "butterfly-api-*")
	if err != nil {
		return domain.FilesystemError("", os.TempDir(), err)
	}
	defer os.RemoveAll(tmp)

	archive := filepath.Join(tmp, "api.zip")
	result, err := m.engine.downloader.Download(ctx, link.URL, archive, nil)
	if err != nil {
		return err
	}
	if m.engine.verifyHashes && link.SHA256 != "" && !strings.EqualFold(result.Checksum, link.SHA256) {
		return domain.IntegrityError("", archive, strings.ToLower(link.SHA256), result.Checksum)
	}

	unpacked := filepath.Join(tmp, "files")
	if err := m.engine.extractor.Extract(ctx, archive, unpacked); err != nil {
		return err
	}

	log := zerolog.Ctx(ctx)
	for _, file := range manifest.Files {
		src := filepath.Join(unpacked, file)
		dst := filepath.Join(managed, file)

		if modfs.Exists(dst) {
			same, err := sameContent(src, dst)
			if err != nil {
				return err
			}
			if same {
				continue
			}
			if file == AssemblyFile {
				target, err := placeAssembly(managed)
				if err != nil {
					return err
				}
				dst = target
			}
		}

		if err := modfs.Move(src, dst); err != nil {
			return err
		}
		log.Debug().Str("file", file).Msg("installed API file")
	}

	log.Info().Str("version", manifest.Version).Msg("modding API installed")
	return nil
}

func sameContent(a, b string) (bool, error) {
	sumA, err := modfs.FileSHA256(a)
	if err != nil {
		return false, err
	}
	sumB, err := modfs.FileSHA256(b)
	if err != nil {
		return false, err
	}
	return sumA == sumB, nil
}

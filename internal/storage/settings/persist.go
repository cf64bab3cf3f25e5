// Package settings persists the aggregate Settings document to disk.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"butterfly/internal/domain"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// FileName is the settings file name inside the data directory
const FileName = "Settings.json"

type fileSettings struct {
	CurrentProfile string        `json:"Current Profile"`
	Language       string        `json:"Language"`
	ModsPath       string        `json:"Mods Path"`
	ModLinks       fileModLinks  `json:"Mod Links"`
	Profiles       []fileProfile `json:"Profiles"`
	Theme          string        `json:"Theme"`
	ThemePath      string        `json:"Theme Path"`
}

type fileModLinks struct {
	Manifest []fileRecord `json:"Manifest"`
}

type fileProfile struct {
	Name string   `json:"Name"`
	Mods []string `json:"Mods"`
}

type fileLink struct {
	SHA256 string `json:"SHA256"`
	URL    string `json:"$value"`
}

type fileDependencies struct {
	Dependency []string `json:"Dependency"`
}

type fileTags struct {
	Tag []string `json:"Tag"`
}

type fileRecord struct {
	Name         string           `json:"Name"`
	Description  string           `json:"Description"`
	Version      string           `json:"Version"`
	Link         fileLink         `json:"Link"`
	Dependencies fileDependencies `json:"Dependencies"`
	Repository   string           `json:"Repository"`
	Tags         *fileTags        `json:"Tags,omitempty"`
	Enabled      bool             `json:"Enabled"`
	Installed    bool             `json:"Installed"`
}

func toFile(s domain.Settings) fileSettings {
	out := fileSettings{
		CurrentProfile: s.CurrentProfile,
		Language:       s.Language,
		ModsPath:       s.ModsPath,
		Theme:          s.Theme,
		ThemePath:      s.ThemePath,
		Profiles:       make([]fileProfile, 0, len(s.Profiles)),
		ModLinks:       fileModLinks{Manifest: make([]fileRecord, 0, len(s.Catalog))},
	}
	for _, p := range s.Profiles {
		mods := p.Mods
		if mods == nil {
			mods = []string{}
		}
		out.Profiles = append(out.Profiles, fileProfile{Name: p.Name, Mods: mods})
	}
	for _, r := range s.Catalog {
		deps := r.Dependencies
		if deps == nil {
			deps = []string{}
		}
		rec := fileRecord{
			Name:         r.Name,
			Description:  r.Description,
			Version:      r.Version,
			Link:         fileLink{SHA256: r.SHA256, URL: r.Link},
			Dependencies: fileDependencies{Dependency: deps},
			Repository:   r.Repository,
			Enabled:      r.Enabled,
			Installed:    r.Installed,
		}
		if r.Tags != nil {
			rec.Tags = &fileTags{Tag: r.Tags}
		}
		out.ModLinks.Manifest = append(out.ModLinks.Manifest, rec)
	}
	return out
}

func fromFile(f fileSettings) domain.Settings {
	s := domain.Settings{
		CurrentProfile: f.CurrentProfile,
		Language:       f.Language,
		ModsPath:       f.ModsPath,
		Theme:          f.Theme,
		ThemePath:      f.ThemePath,
	}
	for _, p := range f.Profiles {
		s.Profiles = append(s.Profiles, domain.Profile{Name: p.Name, Mods: nilIfEmpty(p.Mods)})
	}
	for _, r := range f.ModLinks.Manifest {
		rec := domain.LocalModRecord{
			ModManifestEntry: domain.ModManifestEntry{
				Name:         r.Name,
				Description:  r.Description,
				Version:      r.Version,
				Link:         r.Link.URL,
				SHA256:       r.Link.SHA256,
				Dependencies: nilIfEmpty(r.Dependencies.Dependency),
				Repository:   r.Repository,
			},
			Installed: r.Installed,
			Enabled:   r.Enabled,
		}
		if r.Tags != nil {
			rec.Tags = r.Tags.Tag
			if rec.Tags == nil {
				rec.Tags = []string{}
			}
		}
		s.Catalog = append(s.Catalog, rec)
	}
	return s
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

// Load reads settings from path. A missing file yields defaults.
// Trailing bytes after the first JSON document are ignored with a warning.
func Load(ctx context.Context, path string) (domain.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DefaultSettings(), nil
		}
		return domain.Settings{}, domain.FilesystemError("", path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return domain.Settings{}, domain.CorruptSettingsError(path, errors.New("file is empty"))
	}

	// Keys missing from the document keep their defaults; explicit values,
	// empty strings included, are taken as written.
	dec := json.NewDecoder(bytes.NewReader(data))
	f := fileSettings{Language: domain.DefaultLanguage, Theme: domain.DefaultTheme}
	if err := dec.Decode(&f); err != nil {
		return domain.Settings{}, domain.CorruptSettingsError(path, err)
	}

	if trailing := bytes.TrimSpace(data[dec.InputOffset():]); len(trailing) > 0 {
		zerolog.Ctx(ctx).Warn().
			Str("path", path).
			Int64("offset", dec.InputOffset()).
			Int("trailing_bytes", len(trailing)).
			Msg("ignoring trailing data after settings document")
	}

	return fromFile(f), nil
}

// Save writes settings to path atomically: a temp file in the same
// directory is synced and renamed over the target.
func Save(path string, s domain.Settings) error {
	data, err := json.MarshalIndent(toFile(s), "", "  ")
	if err != nil {
		return errors.Errorf("marshaling settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return domain.FilesystemError("", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return domain.FilesystemError("", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domain.FilesystemError("", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return domain.FilesystemError("", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return domain.FilesystemError("", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return domain.FilesystemError("", path, err)
	}
	return nil
}

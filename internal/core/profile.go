package core

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"strings"

	"butterfly/internal/domain"
	"butterfly/internal/storage/settings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// ProfileManager handles profile CRUD operations and switching
type ProfileManager struct {
	store  *settings.Store
	engine *Engine
}

// NewProfileManager creates a new profile manager
func NewProfileManager(store *settings.Store, engine *Engine) *ProfileManager {
	return &ProfileManager{store: store, engine: engine}
}

// Create adds a profile. Names must be unique and non-empty.
func (pm *ProfileManager) Create(ctx context.Context, name string, mods []string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("profile name cannot be empty")
	}

	return pm.store.Update(ctx, func(s *domain.Settings) error {
		if domain.FindProfile(s.Profiles, name) >= 0 {
			return errors.Errorf("%w: %s", domain.ErrProfileExists, name)
		}
		s.Profiles = append(s.Profiles, domain.Profile{Name: name, Mods: cloneMods(mods)})
		return nil
	})
}

// Delete removes a profile, clearing the active profile if it was active
func (pm *ProfileManager) Delete(ctx context.Context, name string) error {
	return pm.store.Update(ctx, func(s *domain.Settings) error {
		i := domain.FindProfile(s.Profiles, name)
		if i < 0 {
			return domain.NotFoundError("profile", name)
		}
		s.Profiles = slices.Delete(s.Profiles, i, i+1)
		if s.CurrentProfile == name {
			s.CurrentProfile = ""
		}
		return nil
	})
}

// Set makes name the active profile. The empty name clears it.
func (pm *ProfileManager) Set(ctx context.Context, name string) error {
	return pm.store.Update(ctx, func(s *domain.Settings) error {
		if name != "" && domain.FindProfile(s.Profiles, name) < 0 {
			return domain.NotFoundError("profile", name)
		}
		s.CurrentProfile = name
		return nil
	})
}

// List returns all profiles and the active profile name
func (pm *ProfileManager) List() ([]domain.Profile, string) {
	snap := pm.store.Snapshot()
	return snap.Profiles, snap.CurrentProfile
}

// Get retrieves a specific profile
func (pm *ProfileManager) Get(name string) (domain.Profile, error) {
	snap := pm.store.Snapshot()
	i := domain.FindProfile(snap.Profiles, name)
	if i < 0 {
		return domain.Profile{}, domain.NotFoundError("profile", name)
	}
	return snap.Profiles[i], nil
}

// Apply activates a profile: its installed mods are enabled and every other
// installed catalog mod is disabled. Mods the profile names that are not
// installed are skipped and returned.
func (pm *ProfileManager) Apply(ctx context.Context, name string) ([]string, error) {
	profile, err := pm.Get(name)
	if err != nil {
		return nil, err
	}

	root, err := pm.engine.ModsRoot()
	if err != nil {
		return nil, err
	}
	in := pm.engine.Inspector()
	log := zerolog.Ctx(ctx)

	var missing []string
	for _, mod := range profile.Mods {
		if domain.ValidModName(mod) != nil || !in.IsInstalled(root, mod) {
			log.Warn().Str("profile", name).Str("mod", mod).Msg("profile mod is not installed")
			missing = append(missing, mod)
			continue
		}
		if err := pm.engine.Enable(ctx, mod); err != nil {
			return missing, errors.Errorf("enabling %s: %w", mod, err)
		}
	}

	for _, rec := range pm.store.Snapshot().Catalog {
		if slices.Contains(profile.Mods, rec.Name) || domain.ValidModName(rec.Name) != nil || !in.IsEnabled(root, rec.Name) {
			continue
		}
		if err := pm.engine.Disable(ctx, rec.Name); err != nil {
			return missing, errors.Errorf("disabling %s: %w", rec.Name, err)
		}
	}

	if err := pm.Set(ctx, name); err != nil {
		return missing, err
	}
	return missing, nil
}

// Export encodes the named profiles (all when names is empty) as YAML
func (pm *ProfileManager) Export(names []string) ([]byte, error) {
	profiles, _ := pm.List()

	out := domain.ExportedProfiles{Profiles: []domain.Profile{}}
	for _, p := range profiles {
		if len(names) == 0 || slices.Contains(names, p.Name) {
			out.Profiles = append(out.Profiles, p)
		}
	}
	for _, n := range names {
		if domain.FindProfile(out.Profiles, n) < 0 {
			return nil, domain.NotFoundError("profile", n)
		}
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, errors.Errorf("encoding profiles: %w", err)
	}
	return data, nil
}

// Import adds profiles from YAML or JSON data. Profiles whose names are
// already taken are skipped. Returns the imported names.
func (pm *ProfileManager) Import(ctx context.Context, data []byte) ([]string, error) {
	var in domain.ExportedProfiles
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &in); err != nil {
			return nil, errors.Errorf("parsing profiles: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, errors.Errorf("parsing profiles: %w", err)
	}

	var imported []string
	err := pm.store.Update(ctx, func(s *domain.Settings) error {
		imported = imported[:0]
		for _, p := range in.Profiles {
			name := strings.TrimSpace(p.Name)
			if name == "" || domain.FindProfile(s.Profiles, name) >= 0 {
				zerolog.Ctx(ctx).Warn().Str("profile", p.Name).Msg("skipping profile on import")
				continue
			}
			s.Profiles = append(s.Profiles, domain.Profile{Name: name, Mods: cloneMods(p.Mods)})
			imported = append(imported, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return imported, nil
}

// cloneMods copies a mod list, normalising empty lists to nil
func cloneMods(mods []string) []string {
	if len(mods) == 0 {
		return nil
	}
	return slices.Clone(mods)
}

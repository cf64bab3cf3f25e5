package core

import (
	"context"

	"butterfly/internal/domain"

	"github.com/rs/zerolog"
)

// ReconcileResult is the outcome of merging a remote catalog into local state
type ReconcileResult struct {
	Catalog  []domain.LocalModRecord
	New      []string // Remote names the previous local catalog did not have
	Outdated []string // Installed mods whose stored version differs from the remote one
}

// Reconcile replaces the local catalog with remote, taking each entry's
// installed and enabled flags from disk. Local records the remote catalog
// no longer lists are kept at the end while their folder still exists.
// The catalog is swapped in a single store update.
func (e *Engine) Reconcile(ctx context.Context, remote []domain.ModManifestEntry) (*ReconcileResult, error) {
	root, err := e.ModsRoot()
	if err != nil {
		return nil, err
	}

	var result ReconcileResult
	err = e.store.Update(ctx, func(s *domain.Settings) error {
		previous := make(map[string]domain.LocalModRecord, len(s.Catalog))
		for _, r := range s.Catalog {
			previous[r.Name] = r
		}

		seen := make(map[string]bool, len(remote))
		merged := make([]domain.LocalModRecord, 0, len(remote))
		var newNames, outdated []string

		for _, entry := range remote {
			if seen[entry.Name] {
				continue
			}
			seen[entry.Name] = true
			if err := domain.ValidModName(entry.Name); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("skipping catalog entry")
				continue
			}

			rec := domain.LocalModRecord{
				ModManifestEntry: entry.Clone(),
				Installed:        e.inspector.IsInstalled(root, entry.Name),
				Enabled:          e.inspector.IsEnabled(root, entry.Name),
			}
			merged = append(merged, rec)

			prev, known := previous[entry.Name]
			switch {
			case !known:
				newNames = append(newNames, entry.Name)
			case rec.Installed && prev.Version != entry.Version:
				outdated = append(outdated, entry.Name)
			}
		}

		for _, r := range s.Catalog {
			if seen[r.Name] || domain.ValidModName(r.Name) != nil || !e.inspector.IsInstalled(root, r.Name) {
				continue
			}
			r.Installed = true
			r.Enabled = e.inspector.IsEnabled(root, r.Name)
			merged = append(merged, r)
		}

		s.Catalog = merged
		result = ReconcileResult{
			Catalog:  domain.Settings{Catalog: merged}.Clone().Catalog,
			New:      newNames,
			Outdated: outdated,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Int("mods", len(result.Catalog)).
		Int("new", len(result.New)).
		Int("outdated", len(result.Outdated)).
		Msg("catalog reconciled")

	return &result, nil
}

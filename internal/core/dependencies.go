package core

import (
	"slices"

	"butterfly/internal/domain"

	"gitlab.com/tozd/go/errors"
)

// DependencyResolver orders catalog mods so dependencies come first
type DependencyResolver struct{}

// NewDependencyResolver creates a new dependency resolver
func NewDependencyResolver() *DependencyResolver {
	return &DependencyResolver{}
}

// Resolve returns name and its transitive dependencies from catalog, in
// install order (dependencies first, name last). Returns ErrDependencyLoop
// on a cycle and a not-found error when a dependency is not in catalog.
func (r *DependencyResolver) Resolve(catalog []domain.ModManifestEntry, name string) ([]domain.ModManifestEntry, error) {
	byName := make(map[string]*domain.ModManifestEntry, len(catalog))
	for i := range catalog {
		byName[catalog[i].Name] = &catalog[i]
	}

	// 0 = unvisited, 1 = visiting (in stack), 2 = visited
	state := make(map[string]int)
	var result []domain.ModManifestEntry

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case 2:
			return nil
		case 1:
			return errors.WithDetails(domain.ErrDependencyLoop, "chain", append(slices.Clone(path), name))
		}

		mod, ok := byName[name]
		if !ok {
			return domain.NotFoundError("dependency", name)
		}

		state[name] = 1
		chain := append(slices.Clone(path), name)
		for _, dep := range mod.Dependencies {
			if err := visit(dep, chain); err != nil {
				return err
			}
		}
		state[name] = 2
		result = append(result, mod.Clone())
		return nil
	}

	if err := visit(name, nil); err != nil {
		return nil, err
	}
	return result, nil
}

// Missing returns, per mod, the dependency names absent from catalog
func (r *DependencyResolver) Missing(catalog []domain.ModManifestEntry) map[string][]string {
	available := make(map[string]bool, len(catalog))
	for _, m := range catalog {
		available[m.Name] = true
	}

	missing := make(map[string][]string)
	for _, m := range catalog {
		for _, dep := range m.Dependencies {
			if !available[dep] {
				missing[m.Name] = append(missing[m.Name], dep)
			}
		}
	}
	return missing
}

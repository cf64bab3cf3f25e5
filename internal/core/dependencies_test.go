package core_test

import (
	"testing"

	"butterfly/internal/core"
	"butterfly/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(name string, deps ...string) domain.ModManifestEntry {
	return domain.ModManifestEntry{Name: name, Version: "1.0", Link: "https://example.com/" + name + ".zip", Dependencies: deps}
}

func names(entries []domain.ModManifestEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestResolver_Resolve_NoDeps(t *testing.T) {
	order, err := core.NewDependencyResolver().Resolve([]domain.ModManifestEntry{entry("A")}, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names(order))
}

func TestResolver_Resolve_Chain(t *testing.T) {
	catalog := []domain.ModManifestEntry{entry("A", "B"), entry("B", "C"), entry("C"), entry("Unrelated")}

	order, err := core.NewDependencyResolver().Resolve(catalog, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, names(order))
}

func TestResolver_Resolve_Diamond(t *testing.T) {
	// A -> B, A -> C, B -> D, C -> D
	catalog := []domain.ModManifestEntry{entry("A", "B", "C"), entry("B", "D"), entry("C", "D"), entry("D")}

	order, err := core.NewDependencyResolver().Resolve(catalog, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "B", "C", "A"}, names(order))
}

func TestResolver_Resolve_Cycle(t *testing.T) {
	catalog := []domain.ModManifestEntry{entry("A", "B"), entry("B", "C"), entry("C", "A")}

	_, err := core.NewDependencyResolver().Resolve(catalog, "A")
	assert.ErrorIs(t, err, domain.ErrDependencyLoop)
}

func TestResolver_Resolve_MissingDependency(t *testing.T) {
	_, err := core.NewDependencyResolver().Resolve([]domain.ModManifestEntry{entry("A", "Ghost")}, "A")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "Ghost")
}

func TestResolver_Resolve_UnknownTarget(t *testing.T) {
	_, err := core.NewDependencyResolver().Resolve(nil, "A")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolver_Missing(t *testing.T) {
	catalog := []domain.ModManifestEntry{entry("A", "B", "Ghost"), entry("B"), entry("C", "Phantom")}

	missing := core.NewDependencyResolver().Missing(catalog)
	assert.Equal(t, map[string][]string{
		"A": {"Ghost"},
		"C": {"Phantom"},
	}, missing)
}

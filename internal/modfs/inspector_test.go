package modfs_test

import (
	"os"
	"path/filepath"
	"testing"

	"butterfly/internal/domain"
	"butterfly/internal/modfs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	p := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(p, 0755))
	return p
}

func touch(t *testing.T, parts ...string) string {
	t.Helper()
	p := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	return p
}

func TestInspector_States(t *testing.T) {
	root := t.TempDir()
	mkdir(t, root, "Enabled")
	mkdir(t, root, "Disabled", "Off")
	mkdir(t, root, "Both")
	mkdir(t, root, "Disabled", "Both")
	touch(t, root, "NotADir")

	in := modfs.NewInspector()

	tests := []struct {
		name      string
		installed bool
		enabled   bool
	}{
		{"Enabled", true, true},
		{"Off", true, false},
		{"Both", true, false},
		{"Missing", false, false},
		{"NotADir", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.installed, in.IsInstalled(root, tt.name))
			assert.Equal(t, tt.enabled, in.IsEnabled(root, tt.name))
			assert.Equal(t, tt.name == "Both", in.IsConflicted(root, tt.name))
		})
	}
}

func TestInspector_MissingRoot(t *testing.T) {
	in := modfs.NewInspector()
	root := filepath.Join(t.TempDir(), "gone")
	assert.False(t, in.IsInstalled(root, "A"))
	assert.False(t, in.IsEnabled(root, "A"))
}

func TestInspector_SeesExternalChanges(t *testing.T) {
	root := t.TempDir()
	in := modfs.NewInspector()

	assert.False(t, in.IsEnabled(root, "A"))
	mkdir(t, root, "A")
	assert.True(t, in.IsEnabled(root, "A"))
	require.NoError(t, os.RemoveAll(filepath.Join(root, "A")))
	assert.False(t, in.IsInstalled(root, "A"))
}

func TestInspector_ManualMods(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "Custom", "Custom.dll")
	touch(t, root, "Known", "Known.dll")
	touch(t, root, "NoDll", "readme.txt")
	touch(t, root, "Disabled", "Sleepy", "Sleepy.DLL")
	touch(t, root, "loose.dll")

	in := modfs.NewInspector()
	mods, err := in.ManualMods(root, []string{"Known"})
	require.NoError(t, err)

	assert.Equal(t, []domain.ManualMod{
		{Name: "Custom", Enabled: true},
		{Name: "Sleepy", Enabled: false},
	}, mods)
}

func TestInspector_ManualModsMissingRoot(t *testing.T) {
	in := modfs.NewInspector()
	mods, err := in.ManualMods(filepath.Join(t.TempDir(), "nope"), nil)
	require.NoError(t, err)
	assert.Empty(t, mods)
}

func TestInspector_FindReadme(t *testing.T) {
	root := t.TempDir()
	want := touch(t, root, "A", "README.md")
	touch(t, root, "Disabled", "B", "ReadMe.txt")
	mkdir(t, root, "C")

	in := modfs.NewInspector()

	got, err := in.FindReadme(root, "A")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = in.FindReadme(root, "B")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Disabled", "B", "ReadMe.txt"), got)

	got, err = in.FindReadme(root, "C")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = in.FindReadme(root, "Missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

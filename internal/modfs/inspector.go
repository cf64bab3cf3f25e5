// Package modfs inspects and mutates mod directories under a mods root.
package modfs

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"butterfly/internal/domain"
)

// Inspector answers questions about on-disk mod state. Every call stats
// the filesystem afresh; nothing is cached.
type Inspector struct{}

// NewInspector creates a new inspector
func NewInspector() *Inspector {
	return &Inspector{}
}

// ModPath returns the enabled location of a mod
func (i *Inspector) ModPath(root, name string) string {
	return filepath.Join(root, name)
}

// DisabledPath returns the disabled location of a mod
func (i *Inspector) DisabledPath(root, name string) string {
	return filepath.Join(root, domain.DisabledFolderName, name)
}

// IsInstalled reports whether the mod exists enabled or disabled
func (i *Inspector) IsInstalled(root, name string) bool {
	return dirExists(i.ModPath(root, name)) || dirExists(i.DisabledPath(root, name))
}

// IsEnabled reports whether the mod exists under root and has no copy in
// the Disabled folder
func (i *Inspector) IsEnabled(root, name string) bool {
	return dirExists(i.ModPath(root, name)) && !dirExists(i.DisabledPath(root, name))
}

// IsConflicted reports whether both an enabled and a disabled copy exist
func (i *Inspector) IsConflicted(root, name string) bool {
	return dirExists(i.ModPath(root, name)) && dirExists(i.DisabledPath(root, name))
}

// ManualMods lists mod folders under root and root/Disabled that are not in
// known and contain at least one .dll. Sorted by name, enabled first on ties.
func (i *Inspector) ManualMods(root string, known []string) ([]domain.ManualMod, error) {
	var mods []domain.ManualMod

	scan := func(dir string, enabled bool) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return domain.FilesystemError("", dir, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			name := e.Name()
			if enabled && name == domain.DisabledFolderName {
				continue
			}
			if slices.Contains(known, name) {
				continue
			}
			if hasDLL(filepath.Join(dir, name)) {
				mods = append(mods, domain.ManualMod{Name: name, Enabled: enabled})
			}
		}
		return nil
	}

	if err := scan(root, true); err != nil {
		return nil, err
	}
	if err := scan(filepath.Join(root, domain.DisabledFolderName), false); err != nil {
		return nil, err
	}

	slices.SortStableFunc(mods, func(a, b domain.ManualMod) int {
		return strings.Compare(a.Name, b.Name)
	})
	return mods, nil
}

// FindReadme returns the path of the first readme.txt or readme.md in the
// mod's folder, matching case-insensitively. Empty if none.
func (i *Inspector) FindReadme(root, name string) (string, error) {
	dir := i.ModPath(root, name)
	if !dirExists(dir) {
		dir = i.DisabledPath(root, name)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.NotFoundError("mod", name)
		}
		return "", domain.FilesystemError(name, dir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(e.Name()) {
		case "readme.txt", "readme.md":
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func hasDLL(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".dll") {
			return true
		}
	}
	return false
}

package domain

import (
	"path/filepath"
	"slices"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ModManifestEntry is one mod as published in the remote catalog
type ModManifestEntry struct {
	Name         string   // Unique within a catalog fetch
	Description  string
	Version      string   // Opaque; compared by string equality only
	Link         string   // Download URL
	SHA256       string   // Hex digest; empty means unchecked
	Dependencies []string // Mod names, in order
	Repository   string
	Tags         []string // nil when the catalog carries no tag set
}

// Clone returns a deep copy of the entry
func (m ModManifestEntry) Clone() ModManifestEntry {
	m.Dependencies = slices.Clone(m.Dependencies)
	m.Tags = slices.Clone(m.Tags)
	return m
}

// LocalModRecord is the persisted counterpart of a manifest entry
type LocalModRecord struct {
	ModManifestEntry
	Installed bool
	Enabled   bool
}

// Clone returns a deep copy of the record
func (r LocalModRecord) Clone() LocalModRecord {
	r.ModManifestEntry = r.ModManifestEntry.Clone()
	return r
}

// ManualMod is a mod folder on disk that the catalog does not know about
type ManualMod struct {
	Name    string
	Enabled bool
}

// Manual-install placeholders for records created without catalog metadata
const (
	UnknownVersion     = "Unknown"
	NoDescription      = "No description available."
	DisabledFolderName = "Disabled"
)

// FindRecord returns the index of the record named name, or -1
func FindRecord(catalog []LocalModRecord, name string) int {
	for i := range catalog {
		if catalog[i].Name == name {
			return i
		}
	}
	return -1
}

// ValidModName checks that name can be used as a single folder directly
// under the mods root. The Disabled folder name is reserved.
func ValidModName(name string) error {
	var reason string
	switch {
	case strings.TrimSpace(name) == "":
		reason = "name is empty"
	case name == "." || name == "..":
		reason = "name is a relative path element"
	case strings.ContainsAny(name, `/\`) || filepath.VolumeName(name) != "":
		reason = "name contains a path separator"
	case strings.EqualFold(name, DisabledFolderName):
		reason = "name is reserved for disabled mods"
	default:
		return nil
	}
	return FilesystemError(name, "", errors.Errorf("%w: %s", ErrInvalidModName, reason))
}

package domain

import "slices"

// Profile is a named set of mods meant to be enabled together
type Profile struct {
	Name string   `yaml:"Name" json:"Name"`
	Mods []string `yaml:"Mods" json:"Mods"` // Mod names, in order
}

// ExportedProfiles is the portable format for sharing profiles
type ExportedProfiles struct {
	Profiles []Profile `yaml:"Profiles" json:"Profiles"`
}

// FindProfile returns the index of the profile named name, or -1
func FindProfile(profiles []Profile, name string) int {
	for i := range profiles {
		if profiles[i].Name == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the profile
func (p Profile) Clone() Profile {
	p.Mods = slices.Clone(p.Mods)
	return p
}

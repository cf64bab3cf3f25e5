package domain

// Default preference values for a fresh settings file
const (
	DefaultLanguage = "English"
	DefaultTheme    = "Dark"
)

// Settings is the aggregate persisted root
type Settings struct {
	CurrentProfile string // Empty means no profile
	Language       string
	ModsPath       string
	Theme          string
	ThemePath      string // Optional user stylesheet
	Profiles       []Profile
	Catalog        []LocalModRecord
}

// DefaultSettings returns the settings used when no file exists yet
func DefaultSettings() Settings {
	return Settings{
		Language: DefaultLanguage,
		Theme:    DefaultTheme,
	}
}

// Clone returns a deep copy so callers can mutate freely
func (s Settings) Clone() Settings {
	if s.Profiles != nil {
		profiles := make([]Profile, len(s.Profiles))
		for i, p := range s.Profiles {
			profiles[i] = p.Clone()
		}
		s.Profiles = profiles
	}
	if s.Catalog != nil {
		catalog := make([]LocalModRecord, len(s.Catalog))
		for i, r := range s.Catalog {
			catalog[i] = r.Clone()
		}
		s.Catalog = catalog
	}
	return s
}

package domain

import "runtime"

// APILink is a platform download for the modding API
type APILink struct {
	URL    string
	SHA256 string
}

// PlatformLinks holds one API download per supported OS
type PlatformLinks struct {
	Linux   APILink
	Mac     APILink
	Windows APILink
}

// ForOS returns the link for goos ("linux", "darwin", "windows")
func (l PlatformLinks) ForOS(goos string) (APILink, bool) {
	switch goos {
	case "linux":
		return l.Linux, l.Linux.URL != ""
	case "darwin":
		return l.Mac, l.Mac.URL != ""
	case "windows":
		return l.Windows, l.Windows.URL != ""
	default:
		return APILink{}, false
	}
}

// Current returns the link for the running OS
func (l PlatformLinks) Current() (APILink, bool) {
	return l.ForOS(runtime.GOOS)
}

// APIManifest describes the modding API runtime patch
type APIManifest struct {
	Version string
	Links   PlatformLinks
	Files   []string // File names that make up the patch, relative to Managed
}

// APIState is the installation state of the modding API
type APIState int

const (
	APINotInstalled APIState = iota
	APIEnabled
	APIDisabled
)

func (s APIState) String() string {
	switch s {
	case APIEnabled:
		return "enabled"
	case APIDisabled:
		return "disabled"
	default:
		return "not installed"
	}
}

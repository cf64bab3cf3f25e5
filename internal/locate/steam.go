package locate

import (
	"os"
	"path/filepath"
	"strconv"

	"gitlab.com/tozd/go/errors"
)

// SteamAppID is Hollow Knight's Steam application id
const SteamAppID = "367520"

// SteamResolver reads Steam library folders and the game's app manifest
type SteamResolver struct {
	Roots []string
}

// NewSteamResolver searches the Steam roots present on this machine
func NewSteamResolver() *SteamResolver {
	return &SteamResolver{Roots: SteamRoots()}
}

// SteamRoots returns existing Steam installation roots in search order.
// STEAM_ROOT, when set, is checked first.
func SteamRoots() []string {
	var candidates []string
	if p := os.Getenv("STEAM_ROOT"); p != "" {
		candidates = append(candidates, p)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".steam", "steam"),
			filepath.Join(home, ".local", "share", "Steam"),
			filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", ".local", "share", "Steam"),
			filepath.Join(home, "Library", "Application Support", "Steam"),
		)
	}
	for _, drive := range driveRoots() {
		candidates = append(candidates,
			filepath.Join(drive, "Program Files (x86)", "Steam"),
			filepath.Join(drive, "Program Files", "Steam"),
		)
	}

	var out []string
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			out = append(out, p)
		}
	}
	return out
}

// LibraryPaths lists the library folders of a Steam root. A root without
// libraryfolders.vdf is its own single library.
func LibraryPaths(steamRoot string) ([]string, error) {
	vdfPath := filepath.Join(steamRoot, "steamapps", "libraryfolders.vdf")
	f, err := os.Open(vdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{steamRoot}, nil
		}
		return nil, errors.Errorf("reading libraryfolders: %w", err)
	}
	defer f.Close()

	doc, err := ParseKeyValues(f)
	if err != nil {
		return nil, errors.Errorf("parsing %s: %w", vdfPath, err)
	}

	folders, ok := doc.Block("libraryfolders")
	if !ok {
		return []string{steamRoot}, nil
	}
	var paths []string
	for i := 0; ; i++ {
		entry, ok := folders.Block(strconv.Itoa(i))
		if !ok {
			break
		}
		if p := entry.String("path"); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return []string{steamRoot}, nil
	}
	return paths, nil
}

// GameDir returns the game's install folder inside a library, using the
// app manifest's installdir when present
func GameDir(library string) (string, bool) {
	steamapps := filepath.Join(library, "steamapps")
	installDir := GameFolder

	if f, err := os.Open(filepath.Join(steamapps, "appmanifest_"+SteamAppID+".acf")); err == nil {
		doc, err := ParseKeyValues(f)
		f.Close()
		if err == nil {
			if state, ok := doc.Block("AppState"); ok && state.String("installdir") != "" {
				installDir = state.String("installdir")
			}
		}
	}

	dir := filepath.Join(steamapps, "common", installDir)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, true
	}
	return "", false
}

func (s *SteamResolver) ResolveModsRoot() (string, error) {
	for _, root := range s.Roots {
		libraries, err := LibraryPaths(root)
		if err != nil {
			continue
		}
		for _, lib := range libraries {
			game, ok := GameDir(lib)
			if !ok {
				continue
			}
			if mods, err := ModsRootFromGameDir(game); err == nil {
				return mods, nil
			}
		}
	}
	return "", errors.Errorf("steam libraries: %w", ErrNotFound)
}

// Package locate finds the Hollow Knight mods root on disk.
package locate

import (
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

// ErrNotFound is returned when no resolver could find the game
var ErrNotFound = errors.New("hollow knight installation not found")

// GameFolder is the install folder name used by Steam and GOG
const GameFolder = "Hollow Knight"

// ManagedSuffixes are the paths from a game folder to its Managed folder,
// for GOG, Steam and macOS bundles respectively.
var ManagedSuffixes = []string{
	filepath.Join("Hollow Knight_Data", "Managed"),
	filepath.Join("hollow_knight_Data", "Managed"),
	filepath.Join("Contents", "Resources", "Data", "Managed"),
}

// Resolver finds the mods root
type Resolver interface {
	ResolveModsRoot() (string, error)
}

// Prompter asks the user for a path
type Prompter interface {
	PromptPath(title string) (string, error)
}

// ResolverFunc adapts a function to Resolver
type ResolverFunc func() (string, error)

func (f ResolverFunc) ResolveModsRoot() (string, error) { return f() }

// ModsRootFromGameDir returns <managed>/Mods for the first Managed suffix
// that exists under gameDir. The Mods folder itself need not exist.
func ModsRootFromGameDir(gameDir string) (string, error) {
	for _, suffix := range ManagedSuffixes {
		managed := filepath.Join(gameDir, suffix)
		if info, err := os.Stat(managed); err == nil && info.IsDir() {
			return filepath.Join(managed, "Mods"), nil
		}
	}
	return "", errors.Errorf("no Managed folder under %s: %w", gameDir, ErrNotFound)
}

// Chain tries each resolver in order and returns the first success
type Chain []Resolver

func (c Chain) ResolveModsRoot() (string, error) {
	var errs []error
	for _, r := range c {
		root, err := r.ResolveModsRoot()
		if err == nil {
			return root, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", ErrNotFound
	}
	return "", errors.Join(errs...)
}

// StaticResolver checks the well-known Steam and GOG install folders below
// each base directory
type StaticResolver struct {
	Bases []string
}

// knownInstallDirs are relative to a drive root or the user data dir
var knownInstallDirs = []string{
	filepath.Join("Program Files", "Steam", "steamapps", "common", GameFolder),
	filepath.Join("Program Files (x86)", "Steam", "steamapps", "common", GameFolder),
	filepath.Join("Program Files", "GOG Galaxy", "Games", GameFolder),
	filepath.Join("Program Files (x86)", "GOG Galaxy", "Games", GameFolder),
	filepath.Join("Steam", "steamapps", "common", GameFolder),
	filepath.Join("GOG Galaxy", "Games", GameFolder),
}

// NewStaticResolver uses the user data directory and, on Windows, the
// drive roots as bases
func NewStaticResolver() *StaticResolver {
	var bases []string
	if home, err := os.UserHomeDir(); err == nil {
		bases = append(bases, filepath.Join(home, ".local", "share"), filepath.Join(home, "Library", "Application Support"))
	}
	bases = append(bases, driveRoots()...)
	return &StaticResolver{Bases: bases}
}

func (s *StaticResolver) ResolveModsRoot() (string, error) {
	for _, base := range s.Bases {
		for _, dir := range knownInstallDirs {
			game := filepath.Join(base, dir)
			if root, err := ModsRootFromGameDir(game); err == nil {
				return root, nil
			}
		}
	}
	return "", errors.Errorf("static install paths: %w", ErrNotFound)
}

func driveRoots() []string {
	if filepath.Separator != '\\' {
		return nil
	}
	var roots []string
	for c := 'A'; c <= 'Z'; c++ {
		root := string(c) + ":\\"
		if _, err := os.Stat(root); err == nil {
			roots = append(roots, root)
		}
	}
	return roots
}

// PromptResolver asks the user for the game folder
type PromptResolver struct {
	Prompter Prompter
}

func (p PromptResolver) ResolveModsRoot() (string, error) {
	dir, err := p.Prompter.PromptPath("Select the folder that contains your Hollow Knight executable")
	if err != nil {
		return "", err
	}
	return ModsRootFromGameDir(dir)
}

// Default returns the detection chain used when no mods root is configured
func Default() Chain {
	return Chain{NewSteamResolver(), NewStaticResolver()}
}

package settings

import (
	"context"
	"sync"

	"butterfly/internal/domain"

	"github.com/rs/zerolog"
)

// Store is the single owner of the settings file. Every mutation runs
// under the write lock from read through persist, so concurrent updates
// never interleave.
type Store struct {
	mu       sync.RWMutex
	path     string
	settings domain.Settings
}

// Open loads the settings at path. A corrupt file is reported to the
// caller; use Recover to start over from defaults instead.
func Open(ctx context.Context, path string) (*Store, error) {
	s, err := Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, settings: s}, nil
}

// Recover opens the store at path, falling back to defaults when the
// file is corrupt. The corrupt file is left untouched until the next save.
func Recover(ctx context.Context, path string) (*Store, error) {
	st, err := Open(ctx, path)
	if err == nil {
		return st, nil
	}
	if domain.ErrorKindOf(err) != domain.KindCorruptSettings {
		return nil, err
	}
	zerolog.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("settings unreadable, starting from defaults")
	return &Store{path: path, settings: domain.DefaultSettings()}, nil
}

// NewMemory returns a store seeded with s that persists to path
func NewMemory(path string, s domain.Settings) *Store {
	return &Store{path: path, settings: s.Clone()}
}

// Path returns the backing file path
func (st *Store) Path() string {
	return st.path
}

// Snapshot returns a deep copy of the current settings
func (st *Store) Snapshot() domain.Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.settings.Clone()
}

// Update applies fn to a copy of the settings, persists the result and
// commits it. If fn or the save fails the in-memory state is unchanged.
func (st *Store) Update(ctx context.Context, fn func(*domain.Settings) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.settings.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := Save(st.path, next); err != nil {
		return err
	}
	st.settings = next
	return nil
}

// Save persists the current settings without modifying them
func (st *Store) Save() error {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return Save(st.path, st.settings)
}

package core_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"butterfly/internal/core"
	"butterfly/internal/domain"
	"butterfly/internal/storage/settings"

	"github.com/stretchr/testify/require"
)

// memHistory records history entries in memory
type memHistory struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
}

func (m *memHistory) RecordHistory(_ context.Context, e domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memHistory) actions(mod string) []domain.HistoryAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.HistoryAction
	for _, e := range m.entries {
		if e.Mod == mod {
			out = append(out, e.Action)
		}
	}
	return out
}

type fixture struct {
	root    string
	store   *settings.Store
	engine  *core.Engine
	history *memHistory
}

// newFixture builds an engine over a mods root shaped like a real install,
// <tmp>/games/hk/Mods
func newFixture(t *testing.T, opts core.EngineOptions) *fixture {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "games", "hk", "Mods")
	require.NoError(t, os.MkdirAll(root, 0755))

	s := domain.DefaultSettings()
	s.ModsPath = root
	store := settings.NewMemory(filepath.Join(base, "Butterfly", settings.FileName), s)

	h := &memHistory{}
	if opts.History == nil {
		opts.History = h
	}
	return &fixture{
		root:    root,
		store:   store,
		engine:  core.NewEngine(store, opts),
		history: h,
	}
}

// addRecord appends a catalog record
func (f *fixture) addRecord(t *testing.T, rec domain.LocalModRecord) {
	t.Helper()
	require.NoError(t, f.store.Update(context.Background(), func(s *domain.Settings) error {
		s.Catalog = append(s.Catalog, rec)
		return nil
	}))
}

func (f *fixture) record(t *testing.T, name string) domain.LocalModRecord {
	t.Helper()
	snap := f.store.Snapshot()
	i := domain.FindRecord(snap.Catalog, name)
	require.GreaterOrEqual(t, i, 0, "no record for %s", name)
	return snap.Catalog[i]
}

// placeMod creates <root>/<name>/<name>.dll, or under Disabled when disabled
func (f *fixture) placeMod(t *testing.T, name string, disabled bool) string {
	t.Helper()
	dir := filepath.Join(f.root, name)
	if disabled {
		dir = filepath.Join(f.root, domain.DisabledFolderName, name)
	}
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".dll"), []byte(name), 0644))
	return dir
}

// fileServer serves fixed content per path and counts requests
type fileServer struct {
	*httptest.Server
	mu    sync.Mutex
	files map[string][]byte
	hits  atomic.Int32
}

func newFileServer(t *testing.T, files map[string][]byte) *fileServer {
	t.Helper()
	fs := &fileServer{files: files}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.hits.Add(1)
		fs.mu.Lock()
		content, ok := fs.files[r.URL.Path]
		fs.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.Write(content)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fileServer) set(path string, content []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = content
}

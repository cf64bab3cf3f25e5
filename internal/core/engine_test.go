package core_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"butterfly/internal/core"
	"butterfly/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_InstallZip(t *testing.T) {
	archive := zipBytes(t, map[string]string{
		"QoL.dll":   "mod",
		"README.md": "read me",
	})
	srv := newFileServer(t, map[string][]byte{"/QoL.zip": archive})
	f := newFixture(t, core.EngineOptions{VerifyHashes: true})

	err := f.engine.Install(context.Background(), core.InstallRequest{
		Name:    "QoL",
		Version: "4.5.0.0",
		SHA256:  sha256Hex(archive),
		Link:    srv.URL + "/QoL.zip",
	})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(f.root, "QoL", "QoL.dll"))
	assert.FileExists(t, filepath.Join(f.root, "QoL", "README.md"))
	assert.NoFileExists(t, filepath.Join(f.root, "QoL", "temp.zip"))

	rec := f.record(t, "QoL")
	assert.True(t, rec.Installed)
	assert.True(t, rec.Enabled)
	assert.Equal(t, "4.5.0.0", rec.Version)
	assert.Equal(t, srv.URL+"/QoL.zip", rec.Link)

	assert.Equal(t, 100, f.engine.Progress().Latest())
	assert.Equal(t, []domain.HistoryAction{domain.ActionInstall}, f.history.actions("QoL"))
}

func TestEngine_InstallDLL(t *testing.T) {
	srv := newFileServer(t, map[string][]byte{"/releases/Vasi.dll": []byte("vasi")})
	f := newFixture(t, core.EngineOptions{})

	require.NoError(t, f.engine.Install(context.Background(), core.InstallRequest{
		Name: "Vasi", Version: "1", Link: srv.URL + "/releases/Vasi.dll",
	}))

	data, err := os.ReadFile(filepath.Join(f.root, "Vasi", "Vasi.dll"))
	require.NoError(t, err)
	assert.Equal(t, "vasi", string(data))
}

func TestEngine_InstallUpdatesExistingRecord(t *testing.T) {
	srv := newFileServer(t, map[string][]byte{"/A.dll": []byte("a")})
	f := newFixture(t, core.EngineOptions{})
	f.addRecord(t, domain.LocalModRecord{ModManifestEntry: domain.ModManifestEntry{
		Name: "A", Version: "1", Description: "keep me",
	}})

	require.NoError(t, f.engine.Install(context.Background(), core.InstallRequest{Name: "A", Version: "2", Link: srv.URL + "/A.dll"}))

	rec := f.record(t, "A")
	assert.Equal(t, "2", rec.Version)
	assert.Equal(t, "keep me", rec.Description)
	assert.Len(t, f.store.Snapshot().Catalog, 1)
}

func TestEngine_InstallHashMismatchTwice(t *testing.T) {
	srv := newFileServer(t, map[string][]byte{"/A.dll": []byte("tampered")})
	f := newFixture(t, core.EngineOptions{VerifyHashes: true})

	err := f.engine.Install(context.Background(), core.InstallRequest{
		Name: "A", Version: "1", SHA256: sha256Hex([]byte("genuine")), Link: srv.URL + "/A.dll",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIntegrity)
	assert.Contains(t, err.Error(), `"A"`)
	assert.Equal(t, int32(2), srv.hits.Load())

	assert.NoFileExists(t, filepath.Join(f.root, "A", "A.dll"))
	assert.Less(t, domain.FindRecord(f.store.Snapshot().Catalog, "A"), 0)
	assert.Less(t, f.engine.Progress().Latest(), 100)
}

func TestEngine_InstallHashMismatchThenMatch(t *testing.T) {
	genuine := []byte("genuine")
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := genuine
		if hits.Add(1) == 1 {
			body = []byte("garbled")
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
	}))
	defer srv.Close()

	f := newFixture(t, core.EngineOptions{VerifyHashes: true})
	err := f.engine.Install(context.Background(), core.InstallRequest{
		Name: "A", Version: "1", SHA256: sha256Hex(genuine), Link: srv.URL + "/A.dll",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	data, err := os.ReadFile(filepath.Join(f.root, "A", "A.dll"))
	require.NoError(t, err)
	assert.Equal(t, genuine, data)
}

func TestEngine_InstallHashChecks(t *testing.T) {
	tests := []struct {
		name   string
		verify bool
		hash   string
	}{
		{"verification off", false, "0000"},
		{"empty hash", true, ""},
		{"uppercase hash", true, "upper"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := []byte("content")
			srv := newFileServer(t, map[string][]byte{"/A.dll": content})
			f := newFixture(t, core.EngineOptions{VerifyHashes: tt.verify})

			hash := tt.hash
			if hash == "upper" {
				hash = sha256Hex(content)
				hash = string(toUpper([]byte(hash)))
			}
			require.NoError(t, f.engine.Install(context.Background(), core.InstallRequest{
				Name: "A", Version: "1", SHA256: hash, Link: srv.URL + "/A.dll",
			}))
			assert.Equal(t, int32(1), srv.hits.Load())
		})
	}
}

func toUpper(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

func TestEngine_InstallAlreadyInstalledDoesNotDownload(t *testing.T) {
	srv := newFileServer(t, map[string][]byte{})
	f := newFixture(t, core.EngineOptions{})
	f.placeMod(t, "A", false)

	require.NoError(t, f.engine.Install(context.Background(), core.InstallRequest{Name: "A", Version: "1", Link: srv.URL + "/A.dll"}))
	assert.Equal(t, int32(0), srv.hits.Load())

	rec := f.record(t, "A")
	assert.True(t, rec.Installed)
	assert.True(t, rec.Enabled)
	assert.Equal(t, 100, f.engine.Progress().Latest())
}

func TestEngine_InstallDisabledModEnablesInPlace(t *testing.T) {
	srv := newFileServer(t, map[string][]byte{})
	f := newFixture(t, core.EngineOptions{})
	f.placeMod(t, "A", true)

	require.NoError(t, f.engine.Install(context.Background(), core.InstallRequest{Name: "A", Version: "1", Link: srv.URL + "/A.dll"}))
	assert.Equal(t, int32(0), srv.hits.Load())
	assert.DirExists(t, filepath.Join(f.root, "A"))
	assert.NoDirExists(t, filepath.Join(f.root, "Disabled", "A"))
	assert.True(t, f.record(t, "A").Enabled)
}

func TestEngine_InstallNetworkFailure(t *testing.T) {
	srv := newFileServer(t, map[string][]byte{})
	f := newFixture(t, core.EngineOptions{})

	err := f.engine.Install(context.Background(), core.InstallRequest{Name: "A", Version: "1", Link: srv.URL + "/missing.zip"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Contains(t, err.Error(), "/missing.zip")
	assert.Less(t, domain.FindRecord(f.store.Snapshot().Catalog, "A"), 0)
	assert.Equal(t, []domain.HistoryAction{domain.ActionInstall}, f.history.actions("A"))
}

func TestEngine_InstallCorruptArchive(t *testing.T) {
	srv := newFileServer(t, map[string][]byte{"/A.zip": []byte("not a zip")})
	f := newFixture(t, core.EngineOptions{})

	err := f.engine.Install(context.Background(), core.InstallRequest{Name: "A", Version: "1", Link: srv.URL + "/A.zip"})
	assert.ErrorIs(t, err, domain.ErrExtract)
}

func TestEngine_MissingModsRoot(t *testing.T) {
	f := newFixture(t, core.EngineOptions{})
	require.NoError(t, f.store.Update(context.Background(), func(s *domain.Settings) error {
		s.ModsPath = filepath.Join(f.root, "nope")
		return nil
	}))

	err := f.engine.Install(context.Background(), core.InstallRequest{Name: "A", Link: "http://127.0.0.1:1/A.dll"})
	assert.ErrorIs(t, err, domain.ErrFilesystem)
	assert.ErrorIs(t, err, domain.ErrModsRootMissing)

	assert.ErrorIs(t, f.engine.Enable(context.Background(), "A"), domain.ErrModsRootMissing)
	assert.ErrorIs(t, f.engine.Disable(context.Background(), "A"), domain.ErrModsRootMissing)
	assert.ErrorIs(t, f.engine.Uninstall(context.Background(), "A"), domain.ErrModsRootMissing)

	require.NoError(t, f.store.Update(context.Background(), func(s *domain.Settings) error {
		s.ModsPath = ""
		return nil
	}))
	_, err = f.engine.ModsRoot()
	assert.ErrorIs(t, err, domain.ErrModsRootMissing)
}

func TestEngine_DisableEnableRoundTrip(t *testing.T) {
	f := newFixture(t, core.EngineOptions{})
	f.placeMod(t, "A", false)
	f.addRecord(t, domain.LocalModRecord{ModManifestEntry: domain.ModManifestEntry{Name: "A", Version: "1"}, Installed: true, Enabled: true})
	ctx := context.Background()

	require.NoError(t, f.engine.Disable(ctx, "A"))
	assert.NoDirExists(t, filepath.Join(f.root, "A"))
	assert.FileExists(t, filepath.Join(f.root, "Disabled", "A", "A.dll"))
	rec := f.record(t, "A")
	assert.True(t, rec.Installed)
	assert.False(t, rec.Enabled)

	require.NoError(t, f.engine.Enable(ctx, "A"))
	assert.FileExists(t, filepath.Join(f.root, "A", "A.dll"))
	assert.NoDirExists(t, filepath.Join(f.root, "Disabled", "A"))
	rec = f.record(t, "A")
	assert.True(t, rec.Installed)
	assert.True(t, rec.Enabled)

	assert.Equal(t, []domain.HistoryAction{domain.ActionDisable, domain.ActionEnable}, f.history.actions("A"))
}

func TestEngine_EnableDisableAbsentModIsNoOp(t *testing.T) {
	f := newFixture(t, core.EngineOptions{})
	ctx := context.Background()

	require.NoError(t, f.engine.Enable(ctx, "Ghost"))
	require.NoError(t, f.engine.Disable(ctx, "Ghost"))
	assert.Empty(t, f.store.Snapshot().Catalog)
	assert.Empty(t, f.history.actions("Ghost"))

	// Disabling twice leaves the mod disabled
	f.placeMod(t, "A", false)
	require.NoError(t, f.engine.Disable(ctx, "A"))
	require.NoError(t, f.engine.Disable(ctx, "A"))
	assert.DirExists(t, filepath.Join(f.root, "Disabled", "A"))
}

func TestEngine_Conflicted(t *testing.T) {
	f := newFixture(t, core.EngineOptions{})
	f.placeMod(t, "A", false)
	f.placeMod(t, "A", true)

	assert.ErrorIs(t, f.engine.Enable(context.Background(), "A"), domain.ErrFilesystem)
	assert.ErrorIs(t, f.engine.Disable(context.Background(), "A"), domain.ErrFilesystem)
	assert.DirExists(t, filepath.Join(f.root, "A"))
	assert.DirExists(t, filepath.Join(f.root, "Disabled", "A"))
}

func TestEngine_UninstallIsIdempotent(t *testing.T) {
	f := newFixture(t, core.EngineOptions{})
	f.placeMod(t, "A", true)
	f.addRecord(t, domain.LocalModRecord{ModManifestEntry: domain.ModManifestEntry{Name: "A", Version: "1"}, Installed: true})
	ctx := context.Background()

	require.NoError(t, f.engine.Uninstall(ctx, "A"))
	require.NoError(t, f.engine.Uninstall(ctx, "A"))

	assert.NoDirExists(t, filepath.Join(f.root, "Disabled", "A"))
	rec := f.record(t, "A")
	assert.False(t, rec.Installed)
	assert.False(t, rec.Enabled)
	assert.Equal(t, "1", rec.Version)
	assert.Equal(t, []domain.HistoryAction{domain.ActionUninstall}, f.history.actions("A"))
}

func TestEngine_CheckForUpdate(t *testing.T) {
	f := newFixture(t, core.EngineOptions{})
	f.addRecord(t, domain.LocalModRecord{ModManifestEntry: domain.ModManifestEntry{Name: "A", Version: "1.0"}})

	assert.False(t, f.engine.CheckForUpdate("A", "1.0"))
	assert.True(t, f.engine.CheckForUpdate("A", "1.1"))
	assert.False(t, f.engine.CheckForUpdate("Unknown", "1.0"))
}

func TestEngine_InstalledAndEnabledMods(t *testing.T) {
	f := newFixture(t, core.EngineOptions{})
	for _, n := range []string{"A", "B", "C"} {
		f.addRecord(t, domain.LocalModRecord{ModManifestEntry: domain.ModManifestEntry{Name: n}})
	}
	f.placeMod(t, "A", false)
	f.placeMod(t, "B", true)

	installed, err := f.engine.InstalledMods()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, recordNames(installed))
	for _, r := range installed {
		assert.True(t, r.Installed)
	}

	enabled, err := f.engine.EnabledMods()
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, recordNames(enabled))
}

func recordNames(recs []domain.LocalModRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Name)
	}
	return out
}

func TestEngine_InstallManualDLL(t *testing.T) {
	f := newFixture(t, core.EngineOptions{})
	src := filepath.Join(t.TempDir(), "Custom.dll")
	require.NoError(t, os.WriteFile(src, []byte("custom"), 0644))

	name, err := f.engine.InstallManual(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "Custom", name)
	assert.FileExists(t, filepath.Join(f.root, "Custom", "Custom.dll"))
	assert.FileExists(t, src)

	rec := f.record(t, "Custom")
	assert.Equal(t, domain.UnknownVersion, rec.Version)
	assert.Equal(t, domain.NoDescription, rec.Description)
	assert.True(t, rec.Installed)
	assert.True(t, rec.Enabled)

	// A second install keeps a single record
	_, err = f.engine.InstallManual(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, f.store.Snapshot().Catalog, 1)
}

func TestEngine_InstallManualZip(t *testing.T) {
	f := newFixture(t, core.EngineOptions{})
	src := createTestZip(t, t.TempDir(), map[string]string{"Pack.dll": "x", "data/a.txt": "y"})

	name, err := f.engine.InstallManual(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "test", name)
	assert.FileExists(t, filepath.Join(f.root, "test", "Pack.dll"))
	assert.FileExists(t, filepath.Join(f.root, "test", "data", "a.txt"))
	assert.FileExists(t, src)
}

func TestEngine_InstallManualUnsupported(t *testing.T) {
	f := newFixture(t, core.EngineOptions{})
	src := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	_, err := f.engine.InstallManual(context.Background(), src)
	assert.ErrorIs(t, err, domain.ErrExtract)
	assert.Empty(t, f.store.Snapshot().Catalog)
}

func TestEngine_ManualMods(t *testing.T) {
	f := newFixture(t, core.EngineOptions{})
	f.addRecord(t, domain.LocalModRecord{ModManifestEntry: domain.ModManifestEntry{Name: "Catalog", Version: "1"}})
	f.addRecord(t, domain.LocalModRecord{ModManifestEntry: domain.ModManifestEntry{Name: "Manual", Version: domain.UnknownVersion}})
	f.placeMod(t, "Catalog", false)
	f.placeMod(t, "Manual", false)
	f.placeMod(t, "Other", true)

	mods, err := f.engine.ManualMods()
	require.NoError(t, err)
	assert.Equal(t, []domain.ManualMod{
		{Name: "Manual", Enabled: true},
		{Name: "Other", Enabled: false},
	}, mods)
}

func TestEngine_Readme(t *testing.T) {
	f := newFixture(t, core.EngineOptions{})
	dir := f.placeMod(t, "A", true)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ReadMe.md"), []byte("# A"), 0644))
	f.placeMod(t, "B", false)

	text, err := f.engine.Readme("A")
	require.NoError(t, err)
	assert.Equal(t, "# A", text)

	text, err = f.engine.Readme("B")
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = f.engine.Readme("Missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_InstallWithDependencies(t *testing.T) {
	srv := newFileServer(t, map[string][]byte{
		"/A.dll": []byte("a"),
		"/B.dll": []byte("b"),
	})
	f := newFixture(t, core.EngineOptions{})
	f.addRecord(t, domain.LocalModRecord{ModManifestEntry: domain.ModManifestEntry{Name: "A", Version: "1", Link: srv.URL + "/A.dll", Dependencies: []string{"B"}}})
	f.addRecord(t, domain.LocalModRecord{ModManifestEntry: domain.ModManifestEntry{Name: "B", Version: "1", Link: srv.URL + "/B.dll"}})

	require.NoError(t, f.engine.InstallWithDependencies(context.Background(), "A"))
	assert.FileExists(t, filepath.Join(f.root, "A", "A.dll"))
	assert.FileExists(t, filepath.Join(f.root, "B", "B.dll"))

	f.history.mu.Lock()
	first := f.history.entries[0].Mod
	f.history.mu.Unlock()
	assert.Equal(t, "B", first)
}

func TestEngine_InstallWithDependencies_Cycle(t *testing.T) {
	f := newFixture(t, core.EngineOptions{})
	f.addRecord(t, domain.LocalModRecord{ModManifestEntry: domain.ModManifestEntry{Name: "A", Dependencies: []string{"B"}}})
	f.addRecord(t, domain.LocalModRecord{ModManifestEntry: domain.ModManifestEntry{Name: "B", Dependencies: []string{"A"}}})

	err := f.engine.InstallWithDependencies(context.Background(), "A")
	assert.ErrorIs(t, err, domain.ErrDependencyLoop)
}

func TestEngine_ConcurrentInstalls(t *testing.T) {
	files := map[string][]byte{}
	for _, n := range []string{"A", "B", "C", "D"} {
		files["/"+n+".dll"] = []byte(n)
	}
	srv := newFileServer(t, files)
	f := newFixture(t, core.EngineOptions{Workers: 2})
	ctx := context.Background()

	var handles []*core.InstallHandle
	for _, n := range []string{"A", "B", "C", "D"} {
		h, err := f.engine.StartInstall(ctx, core.InstallRequest{Name: n, Version: "1", Link: srv.URL + "/" + n + ".dll"})
		require.NoError(t, err)
		handles = append(handles, h)
	}
	for _, h := range handles {
		require.NoError(t, h.Wait(ctx))
		assert.Equal(t, 100, h.Percent())
	}

	installed, err := f.engine.InstalledMods()
	require.NoError(t, err)
	assert.Len(t, installed, 4)
}

func TestEngine_CancelInstall(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	f := newFixture(t, core.EngineOptions{})
	h, err := f.engine.StartInstall(context.Background(), core.InstallRequest{Name: "Slow", Version: "1", Link: srv.URL + "/Slow.dll"})
	require.NoError(t, err)

	got, ok := f.engine.Progress().Get(h.ID)
	require.True(t, ok)
	assert.Same(t, h, got)

	h.Cancel()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("install did not stop after cancel")
	}
	assert.Error(t, h.Err())
	assert.Less(t, h.Percent(), 100)
}

func TestEngine_RejectsUnsafeModNames(t *testing.T) {
	srv := newFileServer(t, map[string][]byte{"/x.dll": []byte("x")})
	ctx := context.Background()

	for _, name := range []string{"", ".", "..", "Disabled", "disabled", "../../Escaped", "a/b"} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, core.EngineOptions{})
			f.placeMod(t, "Other", true)
			f.placeMod(t, "Keep", false)

			assert.ErrorIs(t, f.engine.Uninstall(ctx, name), domain.ErrInvalidModName)
			assert.ErrorIs(t, f.engine.Enable(ctx, name), domain.ErrInvalidModName)
			assert.ErrorIs(t, f.engine.Disable(ctx, name), domain.ErrInvalidModName)

			_, err := f.engine.Readme(name)
			assert.ErrorIs(t, err, domain.ErrInvalidModName)

			err = f.engine.Install(ctx, core.InstallRequest{Name: name, Link: srv.URL + "/x.dll"})
			assert.ErrorIs(t, err, domain.ErrInvalidModName)

			assert.DirExists(t, f.root)
			assert.DirExists(t, filepath.Join(f.root, domain.DisabledFolderName, "Other"))
			assert.DirExists(t, filepath.Join(f.root, "Keep"))
			assert.NoDirExists(t, filepath.Join(filepath.Dir(filepath.Dir(f.root)), "Escaped"))
			assert.Empty(t, f.store.Snapshot().Catalog)
			assert.Empty(t, f.history.actions(name))
		})
	}
}

func TestEngine_InstallManualReservedName(t *testing.T) {
	f := newFixture(t, core.EngineOptions{})
	src := filepath.Join(t.TempDir(), "Disabled.dll")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	_, err := f.engine.InstallManual(context.Background(), src)
	assert.ErrorIs(t, err, domain.ErrInvalidModName)
	assert.NoFileExists(t, filepath.Join(f.root, domain.DisabledFolderName, "Disabled.dll"))
}

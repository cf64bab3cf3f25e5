package core_test

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"butterfly/internal/core"
	"butterfly/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zipBytes builds an in-memory zip with the given entries
func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func createTestZip(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(dir, "test.zip")
	require.NoError(t, os.WriteFile(zipPath, zipBytes(t, files), 0644))
	return zipPath
}

func TestExtractor_Unpack_ZipPreservesLayoutAndRemovesArchive(t *testing.T) {
	modDir := filepath.Join(t.TempDir(), "QoL")
	require.NoError(t, os.MkdirAll(modDir, 0755))
	archive := filepath.Join(modDir, "temp.zip")
	require.NoError(t, os.WriteFile(archive, zipBytes(t, map[string]string{
		"QoL.dll":          "binary",
		"docs/README.md":   "hello",
		"Assets/sub/a.txt": "nested",
	}), 0644))

	err := core.NewExtractor().Unpack(context.Background(), archive, modDir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(modDir, "QoL.dll"))
	assert.FileExists(t, filepath.Join(modDir, "docs", "README.md"))
	assert.FileExists(t, filepath.Join(modDir, "Assets", "sub", "a.txt"))
	assert.NoFileExists(t, archive)
}

func TestExtractor_Unpack_NonArchiveAlreadyInPlace(t *testing.T) {
	modDir := t.TempDir()
	dll := filepath.Join(modDir, "Vasi.dll")
	require.NoError(t, os.WriteFile(dll, []byte("dll"), 0644))

	require.NoError(t, core.NewExtractor().Unpack(context.Background(), dll, modDir))

	data, err := os.ReadFile(dll)
	require.NoError(t, err)
	assert.Equal(t, "dll", string(data))
}

func TestExtractor_Unpack_NonArchiveCopied(t *testing.T) {
	src := filepath.Join(t.TempDir(), "Vasi.dll")
	require.NoError(t, os.WriteFile(src, []byte("dll"), 0644))
	modDir := filepath.Join(t.TempDir(), "Vasi")

	require.NoError(t, core.NewExtractor().Unpack(context.Background(), src, modDir))

	assert.FileExists(t, filepath.Join(modDir, "Vasi.dll"))
	assert.FileExists(t, src)
}

func TestExtractor_Unpack_CorruptArchive(t *testing.T) {
	modDir := t.TempDir()
	archive := filepath.Join(modDir, "temp.zip")
	require.NoError(t, os.WriteFile(archive, []byte("not a zip file"), 0644))

	err := core.NewExtractor().Unpack(context.Background(), archive, modDir)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtract)
	assert.Contains(t, err.Error(), archive)
}

func TestExtractor_Extract_ZipWithDirectories(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, err := w.Create("subdir/")
	require.NoError(t, err)
	fw, err := w.Create("subdir/file.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("content"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	zipPath := filepath.Join(t.TempDir(), "test.zip")
	require.NoError(t, os.WriteFile(zipPath, buf.Bytes(), 0644))
	destDir := t.TempDir()

	require.NoError(t, core.NewExtractor().Extract(context.Background(), zipPath, destDir))

	assert.DirExists(t, filepath.Join(destDir, "subdir"))
	content, err := os.ReadFile(filepath.Join(destDir, "subdir", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(content))
}

func TestExtractor_Extract_EmptyZip(t *testing.T) {
	zipPath := createTestZip(t, t.TempDir(), nil)
	assert.NoError(t, core.NewExtractor().Extract(context.Background(), zipPath, t.TempDir()))
}

func TestExtractor_Extract_NonExistentFile(t *testing.T) {
	err := core.NewExtractor().Extract(context.Background(), "/nonexistent/file.zip", t.TempDir())
	assert.ErrorIs(t, err, domain.ErrExtract)
}

func TestExtractor_Extract_TruncatedZip(t *testing.T) {
	data := zipBytes(t, map[string]string{"file.txt": "content"})
	zipPath := filepath.Join(t.TempDir(), "truncated.zip")
	require.NoError(t, os.WriteFile(zipPath, data[:len(data)/2], 0644))

	err := core.NewExtractor().Extract(context.Background(), zipPath, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrExtract)
}

func TestExtractor_Extract_ZipSlipRejected(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.CreateHeader(&zip.FileHeader{Name: "../../escape.txt", Method: zip.Store})
	require.NoError(t, err)
	_, err = fw.Write([]byte("malicious content"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	base := t.TempDir()
	zipPath := filepath.Join(base, "malicious.zip")
	require.NoError(t, os.WriteFile(zipPath, buf.Bytes(), 0644))
	destDir := filepath.Join(base, "a", "b")

	err = core.NewExtractor().Extract(context.Background(), zipPath, destDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path traversal")
	assert.NoFileExists(t, filepath.Join(base, "escape.txt"))
}

func TestExtractor_Extract_UnsupportedFormat(t *testing.T) {
	err := core.NewExtractor().Extract(context.Background(), "mod.tar.gz", t.TempDir())
	assert.ErrorIs(t, err, domain.ErrExtract)
}

func TestExtractor_DetectFormat(t *testing.T) {
	extractor := core.NewExtractor()

	tests := []struct {
		filename string
		expected string
	}{
		{"mod.zip", "zip"},
		{"mod.ZIP", "zip"},
		{"mod.7z", "7z"},
		{"mod.rar", "rar"},
		{"mod.RAR", "rar"},
		{"mod.dll", ""},
		{"mod", ""},
		{"archive.tar.gz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractor.DetectFormat(tt.filename))
			assert.Equal(t, tt.expected != "", extractor.CanExtract(tt.filename))
		})
	}
}

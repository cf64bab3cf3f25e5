package core

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"butterfly/internal/domain"
	"butterfly/internal/modfs"

	"gitlab.com/tozd/go/errors"
)

// Extractor places downloaded mod files into their mod folder
type Extractor struct{}

// NewExtractor creates a new Extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Unpack installs srcPath into destDir. Archives are extracted with their
// relative paths preserved and then removed. Any other file is copied into
// destDir under its own name, which is a no-op when it already lives there.
// A failed extraction leaves whatever was written in place.
func (e *Extractor) Unpack(ctx context.Context, srcPath, destDir string) error {
	if !e.CanExtract(srcPath) {
		dst := filepath.Join(destDir, filepath.Base(srcPath))
		if samePath(srcPath, dst) {
			return nil
		}
		return modfs.CopyFile(srcPath, dst)
	}

	if err := e.Extract(ctx, srcPath, destDir); err != nil {
		return err
	}
	if err := os.Remove(srcPath); err != nil && !os.IsNotExist(err) {
		return domain.FilesystemError("", srcPath, err)
	}
	return nil
}

// Extract extracts an archive to the destination directory
// Supports .zip (native), .7z and .rar (via system 7z command)
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) error {
	format := e.DetectFormat(archivePath)
	if format == "" {
		return domain.ExtractError("", archivePath, errors.Errorf("unsupported archive format: %s", filepath.Ext(archivePath)))
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return domain.FilesystemError("", destDir, err)
	}

	var err error
	switch format {
	case "zip":
		err = e.extractZip(archivePath, destDir)
	default:
		err = e.extract7z(ctx, archivePath, destDir)
	}
	if err != nil {
		return domain.ExtractError("", archivePath, err)
	}
	return nil
}

// CanExtract returns true if the extractor can handle the given filename
func (e *Extractor) CanExtract(filename string) bool {
	return e.DetectFormat(filename) != ""
}

// DetectFormat returns the archive format based on filename extension
func (e *Extractor) DetectFormat(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip":
		return "zip"
	case ".7z":
		return "7z"
	case ".rar":
		return "rar"
	default:
		return ""
	}
}

func (e *Extractor) extractZip(archivePath, destDir string) (err error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Errorf("opening zip: %w", err)
	}
	defer func() {
		if cerr := r.Close(); err == nil && cerr != nil {
			err = errors.Errorf("closing zip: %w", cerr)
		}
	}()

	for _, f := range r.File {
		if err := e.extractZipFile(f, destDir); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) extractZipFile(f *zip.File, destDir string) (err error) {
	destPath, err := sanitizePath(destDir, f.Name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(destPath, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return errors.Errorf("creating directory for %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return errors.Errorf("opening %s in archive: %w", f.Name, err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	outFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return errors.Errorf("creating %s: %w", destPath, err)
	}
	defer func() {
		if cerr := outFile.Close(); err == nil && cerr != nil {
			err = errors.Errorf("closing %s: %w", destPath, cerr)
		}
	}()

	if _, err = io.Copy(outFile, rc); err != nil {
		return errors.Errorf("writing %s: %w", destPath, err)
	}
	return nil
}

// sanitizePath joins an archive entry name onto destDir, rejecting entries
// that would land outside it
func sanitizePath(destDir, name string) (string, error) {
	destPath := filepath.Join(destDir, filepath.Clean(name))
	cleanDest := filepath.Clean(destDir)
	if destPath != cleanDest && !strings.HasPrefix(destPath, cleanDest+string(os.PathSeparator)) {
		return "", errors.Errorf("path traversal detected: %s", name)
	}
	return destPath, nil
}

// extract7zTimeout bounds a single 7z run so corrupt archives cannot hang an install
const extract7zTimeout = 5 * time.Minute

func (e *Extractor) extract7z(ctx context.Context, archivePath, destDir string) error {
	if _, err := exec.LookPath("7z"); err != nil {
		return errors.New("7z command not found: install p7zip to extract .7z and .rar files")
	}

	ctx, cancel := context.WithTimeout(ctx, extract7zTimeout)
	defer cancel()

	// -y: assume yes to all queries; -o: output directory (no space between -o and path)
	cmd := exec.CommandContext(ctx, "7z", "x", "-y", "-o"+destDir, archivePath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.Errorf("7z extraction timed out after %v", extract7zTimeout)
		}
		return errors.Errorf("7z extraction failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

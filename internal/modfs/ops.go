package modfs

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"butterfly/internal/domain"

	"gitlab.com/tozd/go/errors"
)

// Move renames a file or directory, creating dst's parent. Falls back to copy and
// remove when a rename crosses filesystems.
func Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return domain.FilesystemError("", filepath.Dir(dst), err)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !isCrossDevice(linkErr.Err) {
		return domain.FilesystemError("", src, err)
	}

	if err := CopyTree(src, dst); err != nil {
		return err
	}
	return RemoveAll(src)
}

// RemoveAll deletes path and everything under it. Missing paths are not errors.
func RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return domain.FilesystemError("", path, err)
	}
	return nil
}

// CopyFile copies src to dst with src's permissions, creating dst's parent
func CopyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return domain.FilesystemError("", filepath.Dir(dst), err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return domain.FilesystemError("", src, err)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return domain.FilesystemError("", src, err)
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return domain.FilesystemError("", dst, err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return domain.FilesystemError("", dst, err)
	}
	return nil
}

// CopyTree copies the directory src into dst recursively
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return domain.FilesystemError("", path, err)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return domain.FilesystemError("", path, err)
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return domain.FilesystemError("", target, err)
			}
			return nil
		}
		return CopyFile(path, target)
	})
}

func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

// Exists reports whether path exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FileSHA256 returns the lowercase hex SHA-256 of the file at path
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", domain.FilesystemError("", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", domain.FilesystemError("", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"butterfly/internal/domain"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DownloadProgress represents the current state of a download
type DownloadProgress struct {
	TotalBytes int64 // Advertised size in bytes
	Downloaded int64 // Bytes received so far
	Percent    int   // floor(min(Downloaded, TotalBytes) / TotalBytes * 100)
}

// ProgressFunc is called after every chunk with the updated progress
type ProgressFunc func(DownloadProgress)

// DownloadResult contains the outcome of a download
type DownloadResult struct {
	Path     string // Final file path
	Size     int64  // Bytes written
	Checksum string // SHA-256 of the written file, lowercase hex
}

// Downloader streams HTTP responses to disk with progress reporting
type Downloader struct {
	httpClient *http.Client
}

// NewDownloader creates a new Downloader with the given HTTP client
// If httpClient is nil, http.DefaultClient is used
func NewDownloader(httpClient *http.Client) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Downloader{httpClient: httpClient}
}

// Download fetches url into destPath. The body is written to destPath+".tmp"
// and renamed into place only once fully received. The response must carry
// a Content-Length so progress can be reported.
func (d *Downloader) Download(ctx context.Context, url, destPath string, progressFn ProgressFunc) (*DownloadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NetworkError("", url, err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, domain.NetworkError("", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NetworkError("", url, errors.Errorf("unexpected status %s", resp.Status))
	}

	totalBytes := resp.ContentLength
	if totalBytes <= 0 {
		return nil, domain.NetworkError("", url, errors.New("response has no content length"))
	}

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, domain.FilesystemError("", dir, err)
	}

	tempPath := destPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, domain.FilesystemError("", tempPath, err)
	}
	defer func() {
		file.Close()
		os.Remove(tempPath) // gone already after a successful rename
	}()

	hasher := sha256.New()
	reader := &progressReader{
		ctx:        ctx,
		reader:     resp.Body,
		totalBytes: totalBytes,
		progressFn: progressFn,
	}

	written, err := io.Copy(localWriter{file}, io.TeeReader(reader, hasher))
	if err != nil {
		var fsErr *writeError
		if errors.As(err, &fsErr) {
			return nil, domain.FilesystemError("", tempPath, fsErr.err)
		}
		return nil, domain.NetworkError("", url, err)
	}

	if err := file.Close(); err != nil {
		return nil, domain.FilesystemError("", tempPath, err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		return nil, domain.FilesystemError("", destPath, err)
	}

	if progressFn != nil {
		progressFn(DownloadProgress{TotalBytes: totalBytes, Downloaded: written, Percent: 100})
	}

	zerolog.Ctx(ctx).Debug().
		Str("url", url).
		Str("path", destPath).
		Int64("bytes", written).
		Msg("download complete")

	return &DownloadResult{
		Path:     destPath,
		Size:     written,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// writeError marks a failure on the local side of the copy
type writeError struct{ err error }

func (e *writeError) Error() string { return e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

type localWriter struct{ w io.Writer }

func (l localWriter) Write(p []byte) (int, error) {
	n, err := l.w.Write(p)
	if err != nil {
		err = &writeError{err: err}
	}
	return n, err
}

// progressReader wraps the response body to report progress and to stop
// between chunks once ctx is done
type progressReader struct {
	ctx         context.Context
	reader      io.Reader
	totalBytes  int64
	downloaded  int64
	lastPercent int
	progressFn  ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := r.reader.Read(p)
	if n > 0 {
		r.downloaded += int64(n)
		percent := percentOf(r.downloaded, r.totalBytes)
		// Never move backwards, and hold 100 until the file is in place.
		if percent > r.lastPercent && percent < 100 {
			r.lastPercent = percent
			if r.progressFn != nil {
				r.progressFn(DownloadProgress{
					TotalBytes: r.totalBytes,
					Downloaded: r.downloaded,
					Percent:    percent,
				})
			}
		}
	}
	return n, err
}

func percentOf(downloaded, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(min(downloaded, total) * 100 / total)
}

// Package source turns what the user handed in (a local path, an http(s)
// URL, or uploaded bytes with their original filename) into a local file
// the encoder can read, together with the base name used for output naming.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/heyjunin/VideoSlicer/pkg/errors"
	"github.com/heyjunin/VideoSlicer/pkg/logger"
	"github.com/heyjunin/VideoSlicer/pkg/progress"
)

// DefaultUploadName is used for uploaded bytes when nothing better is known.
const DefaultUploadName = "uploaded_video.mp4"

// Options configures Resolve.
type Options struct {
	// Input is a local path or an http(s) URL. Ignored when Reader is set.
	Input string
	// Name is the original filename. It overrides the name derived from
	// Input and is required with Reader.
	Name string
	// Reader supplies uploaded bytes.
	Reader io.Reader
	// StagingDir receives downloaded and uploaded files. Defaults to "downloads".
	StagingDir string
	// Timeout bounds the HTTP download. Defaults to 30 minutes.
	Timeout time.Duration
	// Progress optionally receives download progress in bytes.
	Progress progress.Reporter
	// AllowOverwrite re-downloads over an existing staged file instead of reusing it.
	AllowOverwrite bool
	// Client overrides the HTTP client.
	Client *http.Client
}

// Source is a video ready to be probed and cut.
type Source struct {
	Path     string
	BaseName string
	// Staged is true when Path was created by Resolve.
	Staged bool
}

// Cleanup removes a staged file. Local inputs are left alone.
func (s *Source) Cleanup() error {
	if !s.Staged {
		return nil
	}
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// BaseName returns the filename without directory and extension.
func BaseName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsRemote reports whether input looks like an http(s) URL.
func IsRemote(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// Resolve makes the input available as a local file.
func Resolve(ctx context.Context, opts Options) (*Source, error) {
	if opts.StagingDir == "" {
		opts.StagingDir = "downloads"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Minute
	}

	switch {
	case opts.Reader != nil:
		return stage(opts)
	case opts.Input == "":
		return nil, errors.New(errors.ValidationError, "Input path is required", "", errors.ErrMissingInput)
	case IsRemote(opts.Input):
		return download(ctx, opts)
	default:
		return local(opts)
	}
}

func local(opts Options) (*Source, error) {
	info, err := os.Stat(opts.Input)
	if err != nil {
		return nil, errors.Wrap(err, errors.ValidationError, "Input file does not exist", errors.ErrInputNotFound)
	}
	if info.IsDir() {
		return nil, errors.New(errors.ValidationError, "Input is a directory", opts.Input, errors.ErrInputNotFound)
	}

	name := opts.Name
	if name == "" {
		name = opts.Input
	}
	return &Source{Path: opts.Input, BaseName: BaseName(name)}, nil
}

// stage writes uploaded bytes to StagingDir under their original name.
func stage(opts Options) (*Source, error) {
	if opts.Name == "" {
		return nil, errors.New(errors.ValidationError, "Original file name is required for uploads", "", errors.ErrMissingOriginalName)
	}
	if err := os.MkdirAll(opts.StagingDir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.IOError, "Failed to create staging directory", errors.ErrStagingFailed)
	}

	path := filepath.Join(opts.StagingDir, filepath.Base(opts.Name))
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.IOError, "Failed to create staged file", errors.ErrStagingFailed)
	}
	defer file.Close()

	n, err := io.Copy(file, opts.Reader)
	if err != nil {
		_ = os.Remove(path)
		return nil, errors.Wrap(err, errors.IOError, "Failed to write staged file", errors.ErrStagingFailed)
	}

	logger.Info("Upload staged", "source", map[string]interface{}{
		"path":  path,
		"bytes": n,
	})
	return &Source{Path: path, BaseName: BaseName(opts.Name), Staged: true}, nil
}

func download(ctx context.Context, opts Options) (*Source, error) {
	parsedURL, err := url.Parse(opts.Input)
	if err != nil || parsedURL.Host == "" {
		return nil, errors.Wrap(err, errors.ValidationError, "Invalid input URL", errors.ErrInvalidInputURL)
	}

	fileName := filepath.Base(parsedURL.Path)
	if fileName == "" || fileName == "." || fileName == "/" {
		fileName = fmt.Sprintf("download_%d.mp4", time.Now().Unix())
	}
	name := opts.Name
	if name == "" {
		name = fileName
	}

	if err := os.MkdirAll(opts.StagingDir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.IOError, "Failed to create download directory", errors.ErrStagingFailed)
	}
	path := filepath.Join(opts.StagingDir, fileName)

	// A file left by an earlier run is reused and never cleaned up by this one.
	if _, err := os.Stat(path); err == nil && !opts.AllowOverwrite {
		logger.Info("File already exists, skipping download", "source", map[string]interface{}{
			"path": path,
		})
		return &Source{Path: path, BaseName: BaseName(name)}, nil
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.Input, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.DownloadError, "Failed to create HTTP request", errors.ErrDownloadFailed)
	}

	logger.Info("Starting download", "source", map[string]interface{}{
		"url":  opts.Input,
		"path": path,
	})

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.DownloadError, "Failed to download file", errors.ErrDownloadFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.DownloadError, "HTTP request failed", fmt.Sprintf("Status: %s", resp.Status), errors.ErrDownloadStatus)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.IOError, "Failed to create output file", errors.ErrStagingFailed)
	}
	defer file.Close()

	var reader io.Reader = resp.Body
	if opts.Progress != nil && resp.ContentLength > 0 {
		opts.Progress.Start(resp.ContentLength)
		reader = &progressReader{reader: resp.Body, reporter: opts.Progress}
	}

	if _, err := io.Copy(file, reader); err != nil {
		_ = os.Remove(path)
		if opts.Progress != nil {
			opts.Progress.Abort(progress.StatusFailed, "Download failed")
		}
		return nil, errors.Wrap(err, errors.DownloadError, "Failed to write file", errors.ErrDownloadFailed)
	}

	if opts.Progress != nil {
		opts.Progress.Complete()
	}

	logger.Info("Download completed", "source", map[string]interface{}{
		"path": path,
	})
	return &Source{Path: path, BaseName: BaseName(name), Staged: true}, nil
}

// progressReader reports bytes read to a progress.Reporter.
type progressReader struct {
	reader   io.Reader
	reporter progress.Reporter
	read     int64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)
		pr.reporter.Update(pr.read, "downloading", "Downloading file")
	}
	return n, err
}

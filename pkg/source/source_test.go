package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/heyjunin/VideoSlicer/pkg/errors"
	"github.com/heyjunin/VideoSlicer/pkg/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProgressReporter é um mock simples para testes
type mockProgressReporter struct {
	started   bool
	completed bool
	abortedAs string
	updates   int
	total     int64
	current   int64
}

func (m *mockProgressReporter) Start(total int64)                 { m.started = true; m.total = total }
func (m *mockProgressReporter) Update(current int64, _, _ string) { m.updates++; m.current = current }
func (m *mockProgressReporter) Complete()                         { m.completed = true }
func (m *mockProgressReporter) Abort(status, _ string)            { m.abortedAs = status }
func (m *mockProgressReporter) Updates() <-chan progress.ProgressEvent {
	ch := make(chan progress.ProgressEvent)
	close(ch)
	return ch
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "holiday", BaseName("/videos/holiday.mp4"))
	assert.Equal(t, "my.clip", BaseName("my.clip.mov"))
	assert.Equal(t, "noext", BaseName("noext"))
}

func TestResolveLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talk.mov")
	require.NoError(t, os.WriteFile(path, []byte("video"), 0644))

	src, err := Resolve(context.Background(), Options{Input: path})
	require.NoError(t, err)
	assert.Equal(t, path, src.Path)
	assert.Equal(t, "talk", src.BaseName)
	assert.False(t, src.Staged)

	// Cleanup não remove arquivos locais
	require.NoError(t, src.Cleanup())
	assert.FileExists(t, path)

	named, err := Resolve(context.Background(), Options{Input: path, Name: "Keynote 2024.mp4"})
	require.NoError(t, err)
	assert.Equal(t, "Keynote 2024", named.BaseName)
}

func TestResolveLocalErrors(t *testing.T) {
	_, err := Resolve(context.Background(), Options{})
	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrMissingInput, se.Code)

	_, err = Resolve(context.Background(), Options{Input: filepath.Join(t.TempDir(), "missing.mp4")})
	se, ok = errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrInputNotFound, se.Code)

	_, err = Resolve(context.Background(), Options{Input: t.TempDir()})
	assert.True(t, errors.IsType(err, errors.ValidationError))
}

func TestResolveUpload(t *testing.T) {
	dir := t.TempDir()
	src, err := Resolve(context.Background(), Options{
		Reader:     strings.NewReader("uploaded bytes"),
		Name:       "Family Trip.mp4",
		StagingDir: dir,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Family Trip.mp4"), src.Path)
	assert.Equal(t, "Family Trip", src.BaseName)
	assert.True(t, src.Staged)

	data, err := os.ReadFile(src.Path)
	require.NoError(t, err)
	assert.Equal(t, "uploaded bytes", string(data))

	require.NoError(t, src.Cleanup())
	assert.NoFileExists(t, src.Path)
}

func TestResolveUploadRequiresName(t *testing.T) {
	_, err := Resolve(context.Background(), Options{Reader: strings.NewReader("x"), StagingDir: t.TempDir()})
	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrMissingOriginalName, se.Code)
}

func TestResolveDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "12")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "test content")
	}))
	defer server.Close()

	dir := t.TempDir()
	reporter := &mockProgressReporter{}
	src, err := Resolve(context.Background(), Options{
		Input:      server.URL + "/media/lecture.mp4",
		StagingDir: dir,
		Progress:   reporter,
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "lecture.mp4"), src.Path)
	assert.Equal(t, "lecture", src.BaseName)
	assert.True(t, src.Staged)

	data, err := os.ReadFile(src.Path)
	require.NoError(t, err)
	assert.Equal(t, "test content", string(data))

	assert.True(t, reporter.started)
	assert.True(t, reporter.completed)
	assert.Equal(t, int64(12), reporter.total)
	assert.Equal(t, int64(12), reporter.current)
}

func TestResolveDownloadSkipsExisting(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "new content")
	}))
	defer server.Close()

	dir := t.TempDir()
	existing := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(existing, []byte("old content"), 0644))

	src, err := Resolve(context.Background(), Options{Input: server.URL + "/clip.mp4", StagingDir: dir})
	require.NoError(t, err)
	assert.Equal(t, existing, src.Path)
	assert.Equal(t, int32(0), hits.Load())

	// O arquivo reaproveitado não pertence a esta execução
	assert.False(t, src.Staged)
	require.NoError(t, src.Cleanup())
	assert.FileExists(t, existing)

	_, err = Resolve(context.Background(), Options{Input: server.URL + "/clip.mp4", StagingDir: dir, AllowOverwrite: true})
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	data, _ := os.ReadFile(existing)
	assert.Equal(t, "new content", string(data))
}

func TestResolveDownloadTruncatedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		fmt.Fprint(w, "only a few bytes")
	}))
	defer server.Close()

	dir := t.TempDir()
	rep := &mockProgressReporter{}
	_, err := Resolve(context.Background(), Options{Input: server.URL + "/cut.mp4", StagingDir: dir, Progress: rep})

	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrDownloadFailed, se.Code)
	assert.True(t, rep.started)
	assert.False(t, rep.completed)
	assert.Equal(t, progress.StatusFailed, rep.abortedAs)
	assert.NoFileExists(t, filepath.Join(dir, "cut.mp4"))
}

func TestResolveDownloadHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := Resolve(context.Background(), Options{Input: server.URL + "/gone.mp4", StagingDir: t.TempDir()})
	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.DownloadError, se.Type)
	assert.Equal(t, errors.ErrDownloadStatus, se.Code)
}

func TestResolveDownloadCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Resolve(ctx, Options{Input: server.URL + "/slow.mp4", StagingDir: t.TempDir()})
	assert.True(t, errors.IsType(err, errors.DownloadError))
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/a.mp4"))
	assert.True(t, IsRemote("http://example.com/a.mp4"))
	assert.False(t, IsRemote("/tmp/a.mp4"))
	assert.False(t, IsRemote("ftp://example.com/a.mp4"))
}

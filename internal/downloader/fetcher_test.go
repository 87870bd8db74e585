package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgharvest/pkg/logger"
	"imgharvest/pkg/retry"
	"imgharvest/pkg/storage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-png-body")

// noSleep keeps retry tests fast
func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func newTestFetcher(t *testing.T, attempts int, opts Options) (*Fetcher, string) {
	dir := t.TempDir()
	store, err := storage.NewManager(dir)
	require.NoError(t, err)

	opts.Retry = &retry.Config{
		MaxAttempts: attempts,
		Backoff:     &retry.LinearBackoff{BaseDelay: time.Second},
		Sleep:       noSleep,
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	return NewFetcher(nil, store, opts, logger.NewTestLogger()), dir
}

func countFiles(t *testing.T, dir string) int {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}))
	defer server.Close()

	f, dir := newTestFetcher(t, 3, Options{UserAgent: "test-agent"})
	result := f.Fetch(context.Background(), server.URL+"/photo.png")

	require.True(t, result.Success, result.Message)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, int64(len(pngBytes)), result.Size)
	assert.True(t, strings.HasSuffix(result.Path, ".png"))
	assert.Equal(t, result.Path, result.Message)

	content, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, content)
	assert.Equal(t, 1, countFiles(t, dir))
}

func TestFetchFailsTwiceThenSucceeds(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg"))
	}))
	defer server.Close()

	f, dir := newTestFetcher(t, 3, Options{})
	result := f.Fetch(context.Background(), server.URL+"/a.jpg")

	require.True(t, result.Success, result.Message)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, 1, countFiles(t, dir))
}

func TestFetchExhausted(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f, dir := newTestFetcher(t, 3, Options{})
	result := f.Fetch(context.Background(), server.URL+"/a.jpg")

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.True(t, strings.HasPrefix(result.Message, "failed after 3 attempts: "), result.Message)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestFetchNotImage(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	f, dir := newTestFetcher(t, 3, Options{})
	result := f.Fetch(context.Background(), server.URL+"/a.jpg")

	assert.False(t, result.Success)
	assert.Equal(t, "not an image: text/html; charset=utf-8", result.Message)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestFetchNoRetry(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, 1, Options{})
	result := f.Fetch(context.Background(), server.URL+"/a.jpg")

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.NotContains(t, result.Message, "failed after")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/gif")
		w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	f, dir := newTestFetcher(t, 3, Options{Bounds: storage.Bounds{MaxSize: 1024}})
	result := f.Fetch(context.Background(), server.URL+"/big.gif")

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Contains(t, result.Message, "larger than 1024 bytes")
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	f, dir := newTestFetcher(t, 1, Options{Timeout: 50 * time.Millisecond})
	result := f.Fetch(context.Background(), server.URL+"/slow.jpg")

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "request error")
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestFetchInvalidURL(t *testing.T) {
	f, _ := newTestFetcher(t, 3, Options{})
	result := f.Fetch(context.Background(), "http://[::1")

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
}

type denyAll struct{}

func (denyAll) Allowed(ctx context.Context, url string) bool { return false }

func TestFetchRobotsDisallowed(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	f, dir := newTestFetcher(t, 3, Options{Robots: denyAll{}})
	result := f.Fetch(context.Background(), server.URL+"/a.jpg")

	assert.False(t, result.Success)
	assert.Equal(t, "disallowed by robots.txt", result.Message)
	assert.Equal(t, 0, result.Attempts)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
	assert.Equal(t, 0, countFiles(t, dir))
}

package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	herrors "imgharvest/pkg/errors"
)

func newTestManager(t *testing.T, now time.Time) *Manager {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	m.now = func() time.Time { return now }
	return m
}

func listFiles(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestNewManagerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	m, err := NewManager(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, m.GetOutputDir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewManagerFailsOnFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := NewManager(file)
	assert.Error(t, err)
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://img.example/a.png", ".png"},
		{"https://img.example/a.JPEG", ".jpeg"},
		{"https://img.example/a.jpg", ".jpg"},
		{"https://img.example/a.webp?w=200", ".webp"},
		{"https://img.example/a.gif#frag", ".gif"},
		{"https://img.example/a.bmp", ".bmp"},
		{"https://img.example/a.svg", ".jpg"},
		{"https://img.example/image?format=png", ".jpg"},
		{"https://img.example/", ".jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtensionFor(tt.url))
		})
	}
}

func TestFileNameStable(t *testing.T) {
	a := FileName("https://img.example/a.png", 1700000000000)
	b := FileName("https://img.example/a.png", 1700000000000)
	c := FileName("https://img.example/b.png", 1700000000000)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "1700000000000_"))
	assert.True(t, strings.HasSuffix(a, ".png"))
}

func TestSave(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	m := newTestManager(t, now)
	data := []byte("fake image bytes")

	saved, err := m.Save(bytes.NewReader(data), "https://img.example/a.png", Bounds{})
	require.NoError(t, err)

	assert.Equal(t, int64(len(data)), saved.Size)
	assert.Equal(t, filepath.Join(m.GetOutputDir(), FileName("https://img.example/a.png", now.UnixMilli())), saved.Path)

	content, err := os.ReadFile(saved.Path)
	require.NoError(t, err)
	assert.Equal(t, data, content)
	assert.Len(t, listFiles(t, m.GetOutputDir()), 1)
}

func TestSaveNeverOverwrites(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	m := newTestManager(t, now)
	url := "https://img.example/same.jpg"

	existing := filepath.Join(m.GetOutputDir(), FileName(url, now.UnixMilli()))
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0644))

	first, err := m.Save(bytes.NewReader([]byte("one")), url, Bounds{})
	require.NoError(t, err)
	second, err := m.Save(bytes.NewReader([]byte("two")), url, Bounds{})
	require.NoError(t, err)

	assert.NotEqual(t, existing, first.Path)
	assert.NotEqual(t, first.Path, second.Path)
	assert.Equal(t, filepath.Join(m.GetOutputDir(), FileName(url, now.UnixMilli()+1)), first.Path)

	old, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
	assert.Len(t, listFiles(t, m.GetOutputDir()), 3)
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestSaveReadFailureLeavesNoFile(t *testing.T) {
	m := newTestManager(t, time.Now())

	_, err := m.Save(failingReader{}, "https://img.example/a.jpg", Bounds{})
	require.Error(t, err)
	assert.True(t, herrors.IsRetryable(herrors.TypeOf(err)))
	assert.Empty(t, listFiles(t, m.GetOutputDir()))
}

func TestSaveBounds(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		bounds Bounds
		ok     bool
	}{
		{"unbounded", 100, Bounds{}, true},
		{"at max", 100, Bounds{MaxSize: 100}, true},
		{"over max", 101, Bounds{MaxSize: 100}, false},
		{"under min", 10, Bounds{MinSize: 11}, false},
		{"at min", 11, Bounds{MinSize: 11}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, time.Now())

			_, err := m.Save(bytes.NewReader(make([]byte, tt.size)), "https://img.example/a.jpg", tt.bounds)
			if tt.ok {
				require.NoError(t, err)
				assert.Len(t, listFiles(t, m.GetOutputDir()), 1)
				return
			}
			require.Error(t, err)
			assert.Equal(t, herrors.ErrorTypePolicy, herrors.TypeOf(err))
			assert.Empty(t, listFiles(t, m.GetOutputDir()))
		})
	}
}

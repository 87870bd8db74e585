package storage

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"imgharvest/pkg/errors"
)

// DefaultExtension is used when the URL path carries no known image extension
const DefaultExtension = ".jpg"

// hashModulus bounds the hash component of file names
const hashModulus = 999999

// ValidExtensions is the extension allow-list, matched against the URL path
var ValidExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp", ".gif"}

// Bounds limits the accepted body size in bytes. Zero means unbounded.
type Bounds struct {
	MinSize int64
	MaxSize int64
}

// SavedFile describes a file written by Save
type SavedFile struct {
	Path string
	Size int64
}

// Manager writes downloaded images into the output directory
type Manager struct {
	outputDir string
	now       func() time.Time
	issued    map[string]bool
	mu        sync.Mutex
}

// NewManager creates the output directory if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		now:       time.Now,
		issued:    make(map[string]bool),
	}, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// Save streams r into a temporary file and renames it to a unique name
// derived from rawURL. On any failure the temporary file is removed, so
// nothing is left in the output directory.
func (m *Manager) Save(r io.Reader, rawURL string, bounds Bounds) (SavedFile, error) {
	tmp, err := os.CreateTemp(m.outputDir, ".imgharvest-*.part")
	if err != nil {
		return SavedFile{}, errors.New(errors.ErrorTypeUnknown, 0, "failed to create temporary file: %v", err)
	}
	tempFile := tmp.Name()

	src := r
	if bounds.MaxSize > 0 {
		src = io.LimitReader(r, bounds.MaxSize+1)
	}
	size, err := io.Copy(tmp, src)
	closeErr := tmp.Close()

	if err != nil {
		os.Remove(tempFile)
		return SavedFile{}, errors.New(errors.ErrorTypeNetwork, 0, "failed to save image data: %v", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return SavedFile{}, errors.New(errors.ErrorTypeUnknown, 0, "failed to close file: %v", closeErr)
	}
	if bounds.MaxSize > 0 && size > bounds.MaxSize {
		os.Remove(tempFile)
		return SavedFile{}, errors.New(errors.ErrorTypePolicy, 0, "file larger than %d bytes", bounds.MaxSize)
	}
	if size < bounds.MinSize {
		os.Remove(tempFile)
		return SavedFile{}, errors.New(errors.ErrorTypePolicy, 0, "file smaller than %d bytes (%d)", bounds.MinSize, size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	filename := m.reserve(rawURL)
	if err := os.Rename(tempFile, filename); err != nil {
		delete(m.issued, filename)
		os.Remove(tempFile)
		return SavedFile{}, errors.New(errors.ErrorTypeUnknown, 0, "failed to rename temporary file: %v", err)
	}

	return SavedFile{Path: filename, Size: size}, nil
}

// reserve picks a name that neither exists on disk nor was issued in this
// run, advancing the millisecond component until one is free. Callers hold mu.
func (m *Manager) reserve(rawURL string) string {
	millis := m.now().UnixMilli()
	for {
		filename := filepath.Join(m.outputDir, FileName(rawURL, millis))
		if !m.issued[filename] {
			if _, err := os.Lstat(filename); os.IsNotExist(err) {
				m.issued[filename] = true
				return filename
			}
		}
		millis++
	}
}

// FileName builds "<millis>_<hash><ext>" for rawURL. The hash is stable across runs.
func FileName(rawURL string, millis int64) string {
	return fmt.Sprintf("%d_%d%s", millis, xxhash.Sum64String(rawURL)%hashModulus, ExtensionFor(rawURL))
}

// ExtensionFor returns the allow-listed extension ending the URL path, or
// DefaultExtension. The query string and fragment are ignored.
func ExtensionFor(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	path = strings.ToLower(path)

	for _, ext := range ValidExtensions {
		if strings.HasSuffix(path, ext) {
			return ext
		}
	}
	return DefaultExtension
}

package source

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// ErrUnavailable means no displayable source file exists for a name.
var ErrUnavailable = errors.New("source unavailable")

// Library resolves document names to files under a root directory and
// caches opened documents.
type Library struct {
	dir   string
	docs  *cache.Cache
	log   *slog.Logger
	maxMB int64
}

// NewLibrary returns a Library serving files under dir, caching parsed
// documents for ttl.
func NewLibrary(dir string, ttl time.Duration, log *slog.Logger) *Library {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Library{
		dir:   dir,
		docs:  cache.New(ttl, ttl),
		log:   log,
		maxMB: 200,
	}
}

// Path returns the on-disk path for name. Names that would escape the
// library directory are rejected.
func (l *Library) Path(name string) (string, error) {
	clean := SanitizeFilename(name)
	if clean != name {
		return "", fmt.Errorf("%w: invalid name %q", ErrUnavailable, name)
	}
	path := filepath.Join(l.dir, clean)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s not found", ErrUnavailable, name)
		}
		return "", fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrUnavailable, name)
	}
	return path, nil
}

// Open returns the parsed document for name, from cache when possible.
func (l *Library) Open(name string) (Document, error) {
	if v, ok := l.docs.Get(name); ok {
		return v.(Document), nil
	}

	if _, err := KindForFile(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	path, err := l.Path(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if info.Size() > l.maxMB<<20 {
		return nil, fmt.Errorf("%w: %s exceeds %d MB", ErrUnavailable, name, l.maxMB)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	doc, err := Parse(data, name)
	if err != nil {
		l.log.Warn("source parse failed", "file", name, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	l.log.Info("source opened", "file", name, "kind", doc.Kind(), "pages", doc.NumPages())
	l.docs.Set(name, doc, cache.DefaultExpiration)
	return doc, nil
}

// SanitizeFilename strips path components, keeping only the base name.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}

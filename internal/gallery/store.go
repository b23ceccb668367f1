// Package gallery implements the durable image store: a directory of image
// files plus a sidecar cache of precomputed face encodings. Images on disk are
// the source of truth; the cache only saves re-embedding work and is rebuilt
// whenever it is missing or stale.
package gallery

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/facecheck-dev/facecheck/internal/domain"
)

// CacheFilename is the sidecar file holding cached encodings, stored inside
// the images directory like the registry the service keeps next to it.
const CacheFilename = "encodings.gob.gz"

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Encoding is the cached embedding state of one stored image. Faces can be
// zero with no vectors: the image was processed and contains no usable face.
type Encoding struct {
	Vectors   [][]float64
	Faces     int
	CreatedAt time.Time
}

// Store is a filesystem-backed gallery. Writes are durable before they are
// acknowledged (temp file, sync, rename). Safe for concurrent use.
type Store struct {
	root      string
	cachePath string
	logger    *slog.Logger

	mu    sync.RWMutex
	cache map[string]Encoding
}

// NewStore opens (creating if needed) a gallery rooted at dir and loads the
// encoding cache when one exists. A corrupt cache is discarded, not fatal.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.ErrStorage.WithError(err)
	}

	s := &Store{
		root:      dir,
		cachePath: filepath.Join(dir, CacheFilename),
		logger:    logger,
		cache:     make(map[string]Encoding),
	}

	if err := s.loadCache(); err != nil {
		logger.Warn("encoding cache not loaded, starting empty",
			slog.String("path", s.cachePath),
			slog.Any("error", err),
		)
	}

	return s, nil
}

// ValidFilename reports whether name is a plain image filename this gallery
// accepts: no path components, one of the allowed extensions.
func ValidFilename(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return false
	}
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Put stores image bytes under the given filename. The write is durable
// before Put returns: the bytes go to a temp file which is synced and then
// renamed into place. Fails with domain.ErrImageExists when the name is taken
// and overwrite was not requested.
func (s *Store) Put(id string, data []byte, overwrite bool) (*domain.ImageRecord, error) {
	if !ValidFilename(id) {
		return nil, domain.ErrValidationFailed.WithMessage("invalid image filename")
	}

	path := filepath.Join(s.root, id)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil, domain.ErrImageExists
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrStorage.WithError(err)
		}
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return nil, domain.ErrStorage.WithError(err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, domain.ErrStorage.WithError(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, domain.ErrStorage.WithError(err)
	}
	if err := tmp.Close(); err != nil {
		return nil, domain.ErrStorage.WithError(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return nil, domain.ErrStorage.WithError(err)
	}

	return &domain.ImageRecord{
		ID:        id,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Get returns the raw bytes of a stored image.
func (s *Store) Get(id string) ([]byte, error) {
	if !ValidFilename(id) {
		return nil, domain.ErrNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.root, id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.ErrStorage.WithError(err)
	}
	return data, nil
}

// Delete removes a stored image and its cached encoding.
func (s *Store) Delete(id string) error {
	if !ValidFilename(id) {
		return domain.ErrNotFound
	}

	err := os.Remove(filepath.Join(s.root, id))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrNotFound
	}
	if err != nil {
		return domain.ErrStorage.WithError(err)
	}

	s.mu.Lock()
	delete(s.cache, id)
	s.saveCacheLocked()
	s.mu.Unlock()

	return nil
}

// List returns metadata for every stored image, sorted by filename. The face
// count comes from the encoding cache and is nil for images not embedded yet.
func (s *Store) List() ([]domain.ImageInfo, error) {
	names, err := s.imageNames()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]domain.ImageInfo, 0, len(names))
	for _, name := range names {
		info := domain.ImageInfo{Filename: name}
		if enc, ok := s.cache[name]; ok {
			faces := enc.Faces
			info.Faces = &faces
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ScanAll re-reads every stored image from disk in filename order and hands
// it to fn. Each call starts a fresh scan. An fn error stops the scan and is
// returned unchanged; I/O failures surface as domain.ErrStorage.
func (s *Store) ScanAll(fn func(*domain.ImageRecord) error) error {
	names, err := s.imageNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		path := filepath.Join(s.root, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.ErrStorage.WithError(err)
		}
		fi, err := os.Stat(path)
		if err != nil {
			return domain.ErrStorage.WithError(err)
		}
		rec := &domain.ImageRecord{
			ID:        name,
			Data:      data,
			CreatedAt: fi.ModTime().UTC(),
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// Encoding returns the cached encoding for an image, if present.
func (s *Store) Encoding(id string) (Encoding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enc, ok := s.cache[id]
	return enc, ok
}

// SetEncoding caches the encoding of one image and persists the cache.
// Persistence is best-effort: a failed cache write is logged, never fatal.
func (s *Store) SetEncoding(id string, enc Encoding) {
	s.mu.Lock()
	s.cache[id] = enc
	s.saveCacheLocked()
	s.mu.Unlock()
}

// ReplaceEncodings swaps the whole cache, used after a full rebuild so stale
// entries for deleted images disappear.
func (s *Store) ReplaceEncodings(encodings map[string]Encoding) {
	s.mu.Lock()
	s.cache = encodings
	s.saveCacheLocked()
	s.mu.Unlock()
}

func (s *Store) imageNames() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, domain.ErrStorage.WithError(err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !ValidFilename(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

package gallery

import (
	"encoding/gob"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/klauspost/compress/gzip"
)

// cacheFile is the on-disk shape of the encoding cache.
type cacheFile struct {
	Version   int
	Encodings map[string]Encoding
}

const cacheVersion = 1

// loadCache reads the sidecar cache. A missing file leaves the cache empty
// without error; a corrupt or incompatible file is reported so the caller can
// log and fall back to re-embedding.
func (s *Store) loadCache() error {
	f, err := os.Open(s.cachePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer func() {
		_ = zr.Close()
	}()

	var file cacheFile
	if err := gob.NewDecoder(zr).Decode(&file); err != nil {
		return err
	}
	if file.Version != cacheVersion {
		return errors.New("unsupported encoding cache version")
	}

	s.mu.Lock()
	s.cache = file.Encodings
	if s.cache == nil {
		s.cache = make(map[string]Encoding)
	}
	s.mu.Unlock()

	return nil
}

// saveCacheLocked persists the cache via temp file + rename. Callers hold
// s.mu. Failures are logged only: the images remain the source of truth and
// the cache can always be rebuilt.
func (s *Store) saveCacheLocked() {
	tmp, err := os.CreateTemp(s.root, ".encodings-*")
	if err != nil {
		s.logger.Warn("save encoding cache", slog.Any("error", err))
		return
	}
	tmpName := tmp.Name()

	zw := gzip.NewWriter(tmp)
	err = gob.NewEncoder(zw).Encode(cacheFile{
		Version:   cacheVersion,
		Encodings: s.cache,
	})
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmpName, s.cachePath)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		s.logger.Warn("save encoding cache", slog.Any("error", err))
	}
}

// Package registry keeps a lightweight log of recognition outcomes, newest
// first, persisted as a JSON file next to the gallery data. Writes are
// best-effort: losing an entry never fails the recognition that produced it.
package registry

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// maxEntries caps the on-disk log; older entries fall off the end.
const maxEntries = 1000

// Entry is one recognition outcome. Name is nil when nothing matched.
type Entry struct {
	TS       time.Time `json:"ts"`
	Name     *string   `json:"name"`
	Status   string    `json:"status"`
	Distance *float64  `json:"distance"`
}

type Registry struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	items []Entry
}

// New opens the registry at path, loading any existing log. A missing or
// corrupt file starts an empty log.
func New(path string, logger *slog.Logger) *Registry {
	r := &Registry{
		path:   path,
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("registry not loaded", slog.String("path", path), slog.Any("error", err))
		}
		return r
	}
	if err := json.Unmarshal(data, &r.items); err != nil {
		logger.Warn("registry corrupt, starting empty", slog.String("path", path), slog.Any("error", err))
		r.items = nil
	}
	return r
}

// Append records an entry at the head of the log and persists it.
func (r *Registry) Append(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append([]Entry{e}, r.items...)
	if len(r.items) > maxEntries {
		r.items = r.items[:maxEntries]
	}
	r.saveLocked()
}

// Recent returns up to limit newest entries. limit <= 0 returns everything.
func (r *Registry) Recent(limit int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, n)
	copy(out, r.items[:n])
	return out
}

func (r *Registry) saveLocked() {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.logger.Warn("save registry", slog.Any("error", err))
		return
	}

	data, err := json.MarshalIndent(r.items, "", "  ")
	if err != nil {
		r.logger.Warn("save registry", slog.Any("error", err))
		return
	}

	tmp, err := os.CreateTemp(dir, ".registry-*")
	if err != nil {
		r.logger.Warn("save registry", slog.Any("error", err))
		return
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmpName, r.path)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		r.logger.Warn("save registry", slog.Any("error", err))
	}
}

package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/starford/gesso/internal/apperr"
	"github.com/starford/gesso/internal/models"
	"github.com/starford/gesso/internal/storage"
)

const ext = ".json"

// Entry summarizes one cached record.
type Entry struct {
	Identity  Identity
	Fields    []string
	UpdatedAt time.Time
}

// Store maps identities to cached metadata records. It assumes a single
// sequential user; concurrent writers are not guarded against.
type Store struct {
	files  storage.Provider
	logger *slog.Logger
}

// NewStore returns a Store persisting to dir. The directory is created on
// the first Save.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	files, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return New(files, logger), nil
}

// New returns a Store on top of an existing Provider.
func New(files storage.Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{files: files, logger: logger.With(slog.String("component", "cache"))}
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.files.Root()
}

// Load returns the cached record for id. Missing, unreadable, unparsable
// and empty entries are all reported as absent.
func (s *Store) Load(id Identity) (models.Metadata, bool) {
	data, err := s.files.Read(id.Filename())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("failed to load cache entry",
			slog.String("key", id.String()),
			slog.String("error", err.Error()))
		return nil, false
	}

	rec, err := decode(data)
	if err != nil {
		s.logger.Warn("failed to parse cache entry",
			slog.String("key", id.String()),
			slog.String("error", err.Error()))
		return nil, false
	}
	if len(rec) == 0 {
		s.logger.Debug("empty cache entry ignored", slog.String("key", id.String()))
		return nil, false
	}
	return rec, true
}

// Save persists rec under id. Failures are logged and returned wrapped in
// apperr.ErrIOWrite; callers are expected to carry on.
func (s *Store) Save(id Identity, rec models.Metadata) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: cache: encode %s: %w", apperr.ErrIOWrite, id, err)
	}
	data = append(data, '\n')
	if err := s.files.Write(id.Filename(), data); err != nil {
		s.logger.Warn("failed to save cache entry",
			slog.String("key", id.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: cache: %w", apperr.ErrIOWrite, err)
	}
	s.logger.Debug("cache entry saved", slog.String("key", id.String()), slog.Int("fields", len(rec)))
	return nil
}

// Forget removes the entry for id.
func (s *Store) Forget(id Identity) error {
	err := s.files.Delete(id.Filename())
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("cache: forget %s: %w", id, err)
	}
	return nil
}

// Entries lists every cache entry sorted by identity. Unparsable entries are
// listed without fields.
func (s *Store) Entries() ([]Entry, error) {
	files, err := s.files.List(ext)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	out := make([]Entry, 0, len(files))
	for _, f := range files {
		e := Entry{
			Identity:  Identity(strings.TrimSuffix(f.Path, ext)),
			UpdatedAt: f.UpdatedAt,
		}
		if data, err := s.files.Read(f.Path); err == nil {
			if rec, err := decode(data); err == nil {
				for k := range rec {
					e.Fields = append(e.Fields, k)
				}
				sort.Strings(e.Fields)
			}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out, nil
}

// decode accepts any JSON object, stringifying non-string values so entries
// written by older tools still load.
func decode(data []byte) (models.Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return models.MetadataFromJSON(raw), nil
}

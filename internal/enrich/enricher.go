// Package enrich resolves painting metadata from the cache or, on a miss,
// from the external metadata API.
package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/gesso/internal/apperr"
	"github.com/starford/gesso/internal/cache"
	"github.com/starford/gesso/internal/models"
	"github.com/starford/gesso/internal/parser"
)

// Querier is the external metadata API: given a painting and the API field
// names wanted, it returns an API-field → string mapping.
type Querier interface {
	Query(ctx context.Context, title, artist string, fields []string) (map[string]string, error)
}

// QuerierFunc adapts a function to Querier.
type QuerierFunc func(ctx context.Context, title, artist string, fields []string) (map[string]string, error)

// Query calls f.
func (f QuerierFunc) Query(ctx context.Context, title, artist string, fields []string) (map[string]string, error) {
	return f(ctx, title, artist, fields)
}

// Cache is the subset of the cache store used by the Enricher.
type Cache interface {
	Load(id cache.Identity) (models.Metadata, bool)
	Save(id cache.Identity, rec models.Metadata) error
}

// Result is the outcome of a successful enrichment.
type Result struct {
	Identity  cache.Identity
	Metadata  models.Metadata
	FromCache bool
}

// Enricher fetches metadata for paintings, cache first.
type Enricher struct {
	cache   Cache
	querier Querier
	fields  FieldMap
	logger  *slog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithFieldMap overrides the template-to-API field mapping.
func WithFieldMap(m FieldMap) Option {
	return func(e *Enricher) {
		e.fields = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Enricher) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an Enricher backed by c and q.
func New(c Cache, q Querier, opts ...Option) *Enricher {
	e := &Enricher{
		cache:   c,
		querier: q,
		fields:  DefaultFieldMap(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("component", "enrich"))
	return e
}

// Enrich returns the metadata for p. A cached record is returned as is,
// even when it lacks fields that are now required. On a miss the API is
// queried once for exactly the translated fields and the answer is cached.
// Any API failure is reported as apperr.ErrEnrichmentFailed.
func (e *Enricher) Enrich(ctx context.Context, p models.Painting, fields parser.FieldSet) (Result, error) {
	id := cache.NewIdentity(p.Title, p.Artist)
	log := e.logger.With(slog.String("title", p.Title), slog.String("artist", p.Artist))

	if rec, ok := e.cache.Load(id); ok {
		log.Info("cache hit", slog.String("key", id.String()))
		return Result{Identity: id, Metadata: rec, FromCache: true}, nil
	}

	apiFields := e.fields.APINames(fields.Names())
	log.Info("querying metadata", slog.Any("fields", apiFields))

	resp, err := e.querier.Query(ctx, p.Title, p.Artist, apiFields)
	if err != nil {
		log.Error("metadata query failed", slog.String("error", err.Error()))
		return Result{Identity: id}, fmt.Errorf("%w: %s by %s: %w", apperr.ErrEnrichmentFailed, p.Title, p.Artist, err)
	}
	if len(resp) == 0 {
		log.Error("metadata query returned no fields")
		return Result{Identity: id}, fmt.Errorf("%w: %s by %s: empty response", apperr.ErrEnrichmentFailed, p.Title, p.Artist)
	}

	rec := make(models.Metadata, len(resp))
	for k, v := range resp {
		rec[e.fields.FromAPI(k)] = v
	}

	// A failed save is logged by the store; the record still flows on.
	_ = e.cache.Save(id, rec)

	return Result{Identity: id, Metadata: rec}, nil
}

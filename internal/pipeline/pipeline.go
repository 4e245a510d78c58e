// Package pipeline runs paintings through enrichment, post-processing,
// rendering and output, one record at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/gesso/internal/apperr"
	"github.com/starford/gesso/internal/enrich"
	"github.com/starford/gesso/internal/models"
	"github.com/starford/gesso/internal/parser"
	"github.com/starford/gesso/internal/postprocess"
	"github.com/starford/gesso/internal/render"
	"github.com/starford/gesso/internal/storage"
)

// DateLayout is the format of the {{date}} placeholder.
const DateLayout = "2006-01-02"

// Status is the result of processing one record.
type Status string

const (
	StatusWritten Status = "written"
	// StatusSkipped means no metadata could be obtained.
	StatusSkipped Status = "skipped"
	// StatusFailed means metadata was found but the note could not be
	// rendered or written.
	StatusFailed Status = "failed"
)

// Outcome describes what happened to one record.
type Outcome struct {
	Painting  models.Painting
	Status    Status
	FromCache bool
	Path      string
	Err       error
}

// Pipeline processes paintings against a fixed template.
type Pipeline struct {
	template  *parser.Template
	enricher  *enrich.Enricher
	processor *postprocess.Processor
	output    storage.Provider
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used for the {{date}} placeholder.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a Pipeline rendering tmpl into output.
func New(tmpl *parser.Template, e *enrich.Enricher, output storage.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		template:  tmpl,
		enricher:  e,
		processor: postprocess.New(postprocess.DefaultRules()),
		output:    output,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("component", "pipeline"))
	return p
}

// OutputName returns the note file name for a painting title.
func OutputName(title string) string {
	return strings.NewReplacer("/", "-", `\`, "-").Replace(title) + ".md"
}

// Process runs one painting through the pipeline. Failures are reported in
// the Outcome and never returned as errors.
func (p *Pipeline) Process(ctx context.Context, painting models.Painting) Outcome {
	out := Outcome{Painting: painting}
	log := p.logger.With(slog.Int("number", painting.Number), slog.String("title", painting.Title))

	res, err := p.enricher.Enrich(ctx, painting, p.template.Fields)
	if err != nil {
		log.Warn("skipping painting", slog.String("error", err.Error()))
		out.Status = StatusSkipped
		out.Err = err
		return out
	}
	out.FromCache = res.FromCache

	vals := p.processor.Process(res.Metadata, p.template.Fields)
	content, err := render.File(p.template.Path, vals, p.template.Fields, render.Vars{
		Title:  painting.Title,
		Artist: painting.Artist,
		Date:   p.now().Format(DateLayout),
	})
	if err != nil {
		log.Error("render failed", slog.String("error", err.Error()))
		out.Status = StatusFailed
		out.Err = err
		return out
	}

	name := OutputName(painting.Title)
	if err := p.output.Write(name, []byte(content)); err != nil {
		err = fmt.Errorf("%w: note %s: %w", apperr.ErrIOWrite, name, err)
		log.Warn("note not written", slog.String("error", err.Error()))
		out.Status = StatusFailed
		out.Err = err
		return out
	}

	out.Status = StatusWritten
	out.Path = name
	log.Info("note written", slog.String("path", name), slog.Bool("from_cache", res.FromCache))
	return out
}

// Run processes every record in order. It stops between records when ctx
// is cancelled and returns the summary so far together with ctx's error.
func (p *Pipeline) Run(ctx context.Context, records iter.Seq[models.Painting]) (Summary, error) {
	var sum Summary
	for painting := range records {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("run interrupted", slog.Int("processed", sum.Processed))
			return sum, err
		}
		o := p.Process(ctx, painting)
		if errors.Is(o.Err, context.Canceled) {
			p.logger.Warn("run interrupted", slog.Int("processed", sum.Processed))
			return sum, o.Err
		}
		sum.Add(o)
	}
	return sum, nil
}

// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/sync/errgroup"

	"github.com/starford/gesso/internal/cache"
	"github.com/starford/gesso/internal/enrich"
	"github.com/starford/gesso/internal/input"
	"github.com/starford/gesso/internal/logging"
	"github.com/starford/gesso/internal/parser"
	"github.com/starford/gesso/internal/perplexity"
	"github.com/starford/gesso/internal/pipeline"
	"github.com/starford/gesso/internal/storage"
	"github.com/starford/gesso/internal/watch"
)

// ErrInterrupted is returned when a run is stopped by a signal or by
// cancellation of its context.
var ErrInterrupted = errors.New("run interrupted")

func setup(opts []Option) (*application, *slog.Logger, error) {
	app := &application{
		now:      time.Now,
		stdout:   os.Stdout,
		logs:     os.Stderr,
		debounce: watch.DefaultDebounce,
	}
	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	if err := app.config.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(app.logs, app.config.App.LogLevel, app.config.App.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	logger = logger.With(slog.String("run_id", uuid.NewString()))
	slog.SetDefault(logger)
	return app, logger, nil
}

// Run generates one note per painting listed in the input file.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	app.logConfig(logger)

	err = withSignals(ctx, logger, func(ctx context.Context) error {
		return app.generate(ctx, logger)
	})
	if err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Watch generates notes once, then again whenever the input file or the
// template changes, until interrupted.
func Watch(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	app.logConfig(logger)

	if app.querier == nil {
		if err := app.config.Perplexity.RequireAPIKey(); err != nil {
			return err
		}
	}

	paths := app.config.Paths
	return withSignals(ctx, logger, func(ctx context.Context) error {
		return watch.Watch(ctx, []string{paths.Input, paths.Template}, app.debounce, logger, func(ctx context.Context) error {
			return app.generate(ctx, logger)
		})
	})
}

func (a *application) logConfig(logger *slog.Logger) {
	cfg := a.config
	logger.Info("Configuration loaded",
		slog.String("input", cfg.Paths.Input),
		slog.String("output", cfg.Paths.Output),
		slog.String("cache", cfg.Paths.Cache),
		slog.String("template", cfg.Paths.Template),
		slog.String("log_level", cfg.App.LogLevel.String()))
}

// withSignals runs fn with a context that is cancelled on SIGINT or SIGTERM.
func withSignals(ctx context.Context, logger *slog.Logger, fn func(context.Context) error) error {
	g, gCtx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gCtx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		return fn(runCtx)
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-runCtx.Done():
		}
		return nil
	})

	return g.Wait()
}

// generate processes the whole input file once. Only an unusable template,
// a missing credential or an unreadable input file fail it; per-painting
// failures end up in the summary.
func (a *application) generate(ctx context.Context, logger *slog.Logger) error {
	cfg := a.config

	querier := a.querier
	if querier == nil {
		if err := cfg.Perplexity.RequireAPIKey(); err != nil {
			return err
		}
		querier = perplexity.New(cfg.Perplexity.Client(), perplexity.WithLogger(logger))
	}

	tmpl, err := parser.NewExtractor().Load(cfg.Paths.Template)
	if err != nil {
		return err
	}
	logger.Info("Collecting fields", slog.String("fields", strings.Join(tmpl.Fields.Names(), ", ")))

	store, err := cache.NewStore(cfg.Paths.Cache, logger)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	output, err := storage.NewFS(cfg.Paths.Output)
	if err != nil {
		return fmt.Errorf("init output: %w", err)
	}
	reader, err := input.Open(cfg.Paths.Input, logger)
	if err != nil {
		return err
	}
	defer reader.Close()

	p := pipeline.New(tmpl,
		enrich.New(store, querier, enrich.WithLogger(logger)),
		output,
		pipeline.WithClock(a.now),
		pipeline.WithLogger(logger),
	)

	summary, err := p.Run(ctx, reader.Records())
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInterrupted, err)
	} else {
		err = reader.Err()
	}
	summary.Malformed = reader.Skipped()

	if err == nil && summary.Processed == 0 {
		logger.Warn("No paintings found in input file",
			slog.String("input", cfg.Paths.Input),
			slog.Int("malformed_lines", summary.Malformed))
		return nil
	}

	logger.Info("Run finished", slog.Any("summary", summary))
	fmt.Fprintln(a.stdout, summary.Table())
	return err
}

// Fields prints the fields the template asks the metadata API for.
func Fields(_ context.Context, opts ...Option) error {
	app, _, err := setup(opts)
	if err != nil {
		return err
	}

	tmpl, err := parser.NewExtractor().Load(app.config.Paths.Template)
	if err != nil {
		return err
	}

	fm := enrich.DefaultFieldMap()
	rows := make([][]string, 0, tmpl.Fields.Len())
	for _, name := range tmpl.Fields.Names() {
		rows = append(rows, []string{name, fm.ToAPI(name)})
	}
	fmt.Fprintln(app.stdout, pipeline.RenderTable([]string{"Field", "API field"}, rows, nil))
	return nil
}

// CacheList prints every cache entry.
func CacheList(_ context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}

	store, err := cache.NewStore(app.config.Paths.Cache, logger)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	entries, err := store.Entries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(app.stdout, "Cache is empty.")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Identity.String(),
			strconv.Itoa(len(e.Fields)),
			strings.Join(e.Fields, ", "),
			e.UpdatedAt.Format(time.DateTime),
		})
	}
	fmt.Fprintln(app.stdout, pipeline.RenderTable(
		[]string{"Key", "Fields", "Names", "Updated"},
		rows,
		[]text.Align{text.AlignLeft, text.AlignRight},
	))
	return nil
}

// CacheForget removes the cache entry of one painting so the next run
// queries it again.
func CacheForget(_ context.Context, title, artist string, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}

	store, err := cache.NewStore(app.config.Paths.Cache, logger)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	id := cache.NewIdentity(title, artist)
	if err := store.Forget(id); err != nil {
		return err
	}
	logger.Info("Cache entry removed", slog.String("key", id.String()))
	fmt.Fprintf(app.stdout, "Removed %s\n", id.Filename())
	return nil
}

package internal

import (
	"io"
	"time"

	"github.com/starford/gesso/internal/enrich"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	querier  enrich.Querier
	now      func() time.Time
	stdout   io.Writer
	logs     io.Writer
	debounce time.Duration
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithQuerier replaces the Perplexity client. No API key is required then.
func WithQuerier(q enrich.Querier) Option {
	return func(a *application) {
		a.querier = q
	}
}

// WithClock sets the clock used for note dates.
func WithClock(now func() time.Time) Option {
	return func(a *application) {
		a.now = now
	}
}

// WithOutput sets where reports and tables are printed.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.stdout = w
	}
}

// WithLogOutput sets where log records are written.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logs = w
	}
}

// WithDebounce sets how long watch mode waits after a change before
// regenerating.
func WithDebounce(d time.Duration) Option {
	return func(a *application) {
		a.debounce = d
	}
}

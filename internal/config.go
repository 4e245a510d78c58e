package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/gesso/internal/apperr"
	"github.com/starford/gesso/internal/logging"
	"github.com/starford/gesso/internal/perplexity"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Paths      PathsConfig       `yaml:"paths"`
	Perplexity PerplexityConfig  `yaml:"perplexity"`
}

// Validate validates the configuration. The API key is not checked here;
// only generation needs it, see PerplexityConfig.RequireAPIKey.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Paths.Validate(); err != nil {
		return fmt.Errorf("paths: %w", err)
	}
	if err := c.Perplexity.Validate(); err != nil {
		return fmt.Errorf("perplexity: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = logging.FormatAuto
	}
	formats := make([]any, len(logging.Formats))
	for i, f := range logging.Formats {
		formats[i] = f
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(formats...)),
	)
}

// PathsConfig locates the files a run reads and writes.
type PathsConfig struct {
	Input    string `yaml:"input"`
	Output   string `yaml:"output"`
	Cache    string `yaml:"cache"`
	Template string `yaml:"template"`
}

// Validate validates the paths configuration.
func (c *PathsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Input, validation.Required),
		validation.Field(&c.Output, validation.Required),
		validation.Field(&c.Cache, validation.Required),
		validation.Field(&c.Template, validation.Required),
	)
}

// PerplexityConfig holds the metadata API settings.
type PerplexityConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the API configuration.
func (c *PerplexityConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	)
}

// RequireAPIKey fails with apperr.ErrMissingCredential when no key is set.
func (c *PerplexityConfig) RequireAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: PERPLEXITY_API_KEY is not set; export it or add it to your .env file", apperr.ErrMissingCredential)
	}
	return nil
}

// Client returns the API configuration in the client's terms.
func (c *PerplexityConfig) Client() perplexity.Config {
	return perplexity.Config{
		APIKey:  c.APIKey,
		BaseURL: c.BaseURL,
		Model:   c.Model,
		Timeout: c.Timeout,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: logging.FormatAuto,
		},
		Paths: PathsConfig{
			Input:    "data/input.txt",
			Output:   "outputs/",
			Cache:    ".cache",
			Template: "data/example-template.md",
		},
		Perplexity: PerplexityConfig{
			BaseURL: perplexity.DefaultBaseURL,
			Model:   perplexity.DefaultModel,
			Timeout: perplexity.DefaultTimeout,
		},
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/gesso/internal"
	pkgconfig "github.com/starford/gesso/pkg/config"
)

const defaultConfigFile = "config/config.yaml"

// loadConfig builds the configuration: defaults, then the config file, then
// flags. An explicitly named config file must exist.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	configPath := cmd.String("config")
	if cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("input") {
		cfg.Paths.Input = cmd.String("input")
	}
	if cmd.IsSet("output") {
		cfg.Paths.Output = cmd.String("output")
	}
	if cmd.IsSet("cache") {
		cfg.Paths.Cache = cmd.String("cache")
	}
	if cmd.IsSet("template") {
		cfg.Paths.Template = cmd.String("template")
	}
	if cmd.IsSet("api-key") {
		cfg.Perplexity.APIKey = cmd.String("api-key")
	}
	if cmd.IsSet("model") {
		cfg.Perplexity.Model = cmd.String("model")
	}
	if cmd.IsSet("timeout") {
		cfg.Perplexity.Timeout = cmd.Duration("timeout")
	}
	if cmd.IsSet("log-level") {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}
	if cmd.IsSet("log-format") {
		cfg.App.LogFormat = cmd.String("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func watchCmd(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Watch(ctx, internal.WithConfig(cfg))
}

func fields(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Fields(ctx, internal.WithConfig(cfg))
}

func cacheList(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.CacheList(ctx, internal.WithConfig(cfg))
}

func cacheForget(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("usage: %s", cmd.ArgsUsage)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.CacheForget(ctx, cmd.Args().Get(0), cmd.Args().Get(1), internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "gesso",
		Usage:  "Generate Obsidian painting notes from a list of titles and artists",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigFile,
				Value:       defaultConfigFile,
				Sources:     cli.EnvVars("GESSO_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Painting list, one \"<number>: <title>, <artist>\" per line",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory for generated notes",
			},
			&cli.StringFlag{
				Name:  "cache",
				Usage: "Directory for cached metadata",
			},
			&cli.StringFlag{
				Name:    "template",
				Aliases: []string{"t"},
				Usage:   "Note template with YAML frontmatter",
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Perplexity API key",
				Sources: cli.EnvVars("PERPLEXITY_API_KEY"),
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Perplexity model",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Perplexity request timeout",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "auto, text or json",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "watch",
				Usage:  "Generate notes, then regenerate whenever the input or template changes",
				Action: watchCmd,
			},
			{
				Name:   "fields",
				Usage:  "List the fields the template requests from the metadata API",
				Action: fields,
			},
			{
				Name:  "cache",
				Usage: "Inspect the metadata cache",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List cached paintings",
						Action: cacheList,
					},
					{
						Name:      "forget",
						Usage:     "Remove one painting from the cache",
						ArgsUsage: "<title> <artist>",
						Action:    cacheForget,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

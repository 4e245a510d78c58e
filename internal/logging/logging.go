// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

// Log formats.
const (
	FormatAuto = "auto"
	FormatJSON = "json"
	FormatText = "text"
)

// Formats lists every accepted format.
var Formats = []string{FormatAuto, FormatJSON, FormatText}

// New returns a logger writing to w at level. FormatAuto picks the text
// handler when w is a terminal and JSON otherwise.
func New(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	if format == "" || format == FormatAuto {
		format = FormatJSON
		if isTerminal(w) {
			format = FormatText
		}
	}

	switch format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	case FormatText:
		h := charmlog.NewWithOptions(w, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Level:           charmlog.Level(level),
		})
		h.SetFormatter(charmlog.TextFormatter)
		return slog.New(h), nil
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Package input reads the painting list, one "<number>: <title>, <artist>"
// entry per line.
package input

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/starford/gesso/internal/apperr"
	"github.com/starford/gesso/internal/models"
)

// ParseLine parses a single input line. Anything after a second comma
// (typically a location) is ignored.
func ParseLine(line string) (models.Painting, error) {
	line = strings.TrimSpace(line)

	prefix, rest, ok := strings.Cut(line, ":")
	if !ok {
		return models.Painting{}, fmt.Errorf("%w: missing ':' after number", apperr.ErrInputLine)
	}
	number, err := strconv.Atoi(strings.TrimSpace(prefix))
	if err != nil {
		return models.Painting{}, fmt.Errorf("%w: non-numeric prefix %q", apperr.ErrInputLine, prefix)
	}

	title, rest, ok := strings.Cut(rest, ",")
	if !ok {
		return models.Painting{}, fmt.Errorf("%w: need Title, Artist", apperr.ErrInputLine)
	}
	artist, _, _ := strings.Cut(rest, ",")

	p := models.Painting{
		Number: number,
		Title:  strings.TrimSpace(title),
		Artist: strings.TrimSpace(artist),
	}
	if err := p.Validate(); err != nil {
		return models.Painting{}, fmt.Errorf("%w: %w", apperr.ErrInputLine, err)
	}
	return p, nil
}

// Reader yields paintings from an input stream in a single pass.
// Malformed lines are logged and skipped.
type Reader struct {
	src     io.Reader
	closer  io.Closer
	logger  *slog.Logger
	err     error
	skipped int
}

// Open opens the input file at path.
func Open(path string, logger *slog.Logger) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("input: open %s: %w", path, err)
	}
	r := NewReader(f, logger)
	r.closer = f
	return r, nil
}

// NewReader returns a Reader over src.
func NewReader(src io.Reader, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{src: src, logger: logger.With(slog.String("component", "input"))}
}

// MaxLineBytes is the longest input line Records parses. Longer lines are
// skipped like malformed ones.
const MaxLineBytes = 64 << 10

// Records returns the lazy sequence of valid paintings. The sequence can be
// consumed once; a second range yields nothing.
func (r *Reader) Records() iter.Seq[models.Painting] {
	return func(yield func(models.Painting) bool) {
		br := bufio.NewReader(r.src)
		lineNo := 0
		for {
			raw, readErr := br.ReadString('\n')
			if readErr != nil && readErr != io.EOF {
				r.err = fmt.Errorf("input: read: %w", readErr)
				return
			}
			if raw == "" && readErr == io.EOF {
				return
			}
			lineNo++
			line := strings.TrimRight(raw, "\r\n")
			switch {
			case strings.TrimSpace(line) == "":
			case len(line) > MaxLineBytes:
				r.skipped++
				r.logger.Warn("input line too long",
					slog.Int("line", lineNo),
					slog.Int("bytes", len(line)),
					slog.Int("max_bytes", MaxLineBytes))
			default:
				p, err := ParseLine(line)
				if err != nil {
					r.skipped++
					r.logger.Warn("invalid input line",
						slog.Int("line", lineNo),
						slog.String("content", line),
						slog.String("error", err.Error()))
					break
				}
				if !yield(p) {
					return
				}
			}
			if readErr == io.EOF {
				return
			}
		}
	}
}

// Err returns the first read error encountered by Records, if any.
func (r *Reader) Err() error {
	return r.err
}

// Skipped returns the number of malformed lines seen so far.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Close releases the underlying file, if the Reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Package perplexity queries the Perplexity chat completions API for
// painting metadata.
package perplexity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/starford/gesso/internal/models"
)

const (
	DefaultBaseURL = "https://api.perplexity.ai"
	DefaultModel   = "sonar-pro"
	DefaultTimeout = 60 * time.Second

	completionsPath = "/chat/completions"
)

// ErrAPIKeyRequired is returned when the client has no credential.
var ErrAPIKeyRequired = errors.New("perplexity: api key required")

// Config captures the runtime settings required to talk to the API.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client wraps the Perplexity chat completions endpoint. It performs exactly
// one request per query; failures are reported, never retried.
type Client struct {
	cfg    Config
	http   *resty.Client
	logger *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying resty client, keeping the
// configured base URL, timeout and headers.
func WithHTTPClient(r *resty.Client) Option {
	return func(c *Client) {
		if r != nil {
			c.http = r
		}
	}
}

// New constructs a client. Empty config values fall back to the defaults.
func New(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		cfg:    cfg,
		http:   resty.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(cfg.APIKey)
	c.logger = c.logger.With(slog.String("component", "perplexity"))
	return c
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Query asks for the named fields of a painting and returns them as flat
// strings. Non-string JSON values are stringified.
func (c *Client) Query(ctx context.Context, title, artist string, fields []string) (map[string]string, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}

	var (
		out    chatResponse
		failed apiError
	)
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:    c.cfg.Model,
			Messages: []chatMessage{{Role: "user", Content: Prompt(title, artist, fields)}},
		}).
		SetResult(&out).
		SetError(&failed).
		Post(completionsPath)
	if err != nil {
		return nil, fmt.Errorf("perplexity: request: %w", err)
	}
	c.logger.Debug("query completed",
		slog.String("title", title),
		slog.Int("status", resp.StatusCode()),
		slog.Duration("duration", time.Since(start)),
	)
	if resp.IsError() {
		msg := strings.TrimSpace(failed.Error.Message)
		if msg == "" {
			msg = summarizePayloadSnippet(resp.String())
		}
		return nil, fmt.Errorf("perplexity: http %d: %s", resp.StatusCode(), msg)
	}

	content := ""
	for _, choice := range out.Choices {
		if s := strings.TrimSpace(choice.Message.Content); s != "" {
			content = s
			break
		}
	}
	if content == "" {
		return nil, fmt.Errorf("perplexity: empty content (response snippet: %s)", summarizePayloadSnippet(resp.String()))
	}

	raw, err := decodeObject(content)
	if err != nil {
		return nil, fmt.Errorf("perplexity: parse payload: %w", err)
	}
	return models.MetadataFromJSON(raw), nil
}

// Prompt builds the user message for a painting query.
func Prompt(title, artist string, fields []string) string {
	var b strings.Builder
	b.WriteString("Return a JSON object with the following fields for this painting:\n")
	fmt.Fprintf(&b, "- title: %q\n", title)
	fmt.Fprintf(&b, "- artist: %q\n", artist)
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s: %s\n", f, fieldHint(f))
	}
	b.WriteString("\nUse a single string for every field, comma-separated if there are several values. ")
	b.WriteString("Use an empty string when a value is not known.\n")
	b.WriteString("Return ONLY valid JSON, no other text.")
	return b.String()
}

var fieldHints = map[string]string{
	"year":        `(year of completion, e.g. "1503", or empty string)`,
	"style":       `(e.g. "Realism", comma-separated if multiple)`,
	"medium":      `(e.g. "Oil on canvas")`,
	"museum":      `(e.g. "Art Institute of Chicago")`,
	"image_url":   "(Wikimedia Commons URL preferred, or empty string)",
	"description": "(brief, 1-2 sentences, or empty string)",
}

func fieldHint(name string) string {
	if h, ok := fieldHints[name]; ok {
		return h
	}
	return "(single string, or empty string)"
}

// decodeObject parses a model reply into a JSON object, tolerating code
// fences and prose around the payload.
func decodeObject(content string) (map[string]any, error) {
	decode := func(s string) (map[string]any, error) {
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		var v map[string]any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		if v == nil {
			return nil, errors.New("payload is not an object")
		}
		return v, nil
	}

	trimmed := strings.TrimSpace(content)
	v, directErr := decode(trimmed)
	if directErr == nil {
		return v, nil
	}
	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return nil, fmt.Errorf("%w (payload snippet: %s)", directErr, summarizePayloadSnippet(trimmed))
	}
	v, err := decode(sanitized)
	if err != nil {
		return nil, fmt.Errorf("%w (sanitized payload snippet: %s)", err, summarizePayloadSnippet(sanitized))
	}
	return v, nil
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" || trimmed[0] == '{' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(clean); len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}

package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func completion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	})
	return string(body)
}

func newServer(t *testing.T, status int, body string, check func(*http.Request, chatRequest)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if check != nil {
			check(r, req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestQuery_Success(t *testing.T) {
	content := `{"title": "Mona Lisa", "artist": "Leonardo da Vinci", "year": 1503, "medium": "Oil, panel", "image_url": ""}`
	srv, hits := newServer(t, http.StatusOK, completion(content), func(r *http.Request, req chatRequest) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if req.Model != "sonar-pro" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
			return
		}
		for _, want := range []string{`"Mona Lisa"`, `"Leonardo da Vinci"`, "- year:", "- medium:", "- image_url:"} {
			if !strings.Contains(req.Messages[0].Content, want) {
				t.Errorf("prompt missing %q", want)
			}
		}
	})

	c := New(Config{APIKey: "secret", BaseURL: srv.URL})
	got, err := c.Query(context.Background(), "Mona Lisa", "Leonardo da Vinci", []string{"year", "medium", "image_url"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got["year"] != "1503" {
		t.Errorf("year = %q, want stringified number", got["year"])
	}
	if got["medium"] != "Oil, panel" {
		t.Errorf("medium = %q", got["medium"])
	}
	if v, ok := got["image_url"]; !ok || v != "" {
		t.Errorf("image_url = %q, %v", v, ok)
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d", hits.Load())
	}
}

func TestQuery_CodeFence(t *testing.T) {
	content := "Here you go:\n```json\n{\"year\": \"1889\"}\n```"
	srv, _ := newServer(t, http.StatusOK, completion(content), nil)

	got, err := New(Config{APIKey: "k", BaseURL: srv.URL}).Query(context.Background(), "The Starry Night", "Vincent van Gogh", []string{"year"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got["year"] != "1889" {
		t.Errorf("year = %q", got["year"])
	}
}

func TestQuery_LogsTypedAttributes(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, completion(`{"year": "1889"}`), nil)

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := New(Config{APIKey: "k", BaseURL: srv.URL}, WithLogger(logger))
	if _, err := c.Query(context.Background(), "The Starry Night", "Vincent van Gogh", []string{"year"}); err != nil {
		t.Fatalf("Query: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(logs.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", logs.String(), err)
	}
	if entry["msg"] != "query completed" || entry["component"] != "perplexity" {
		t.Errorf("log entry = %v", entry)
	}
	if entry["title"] != "The Starry Night" || entry["status"] != float64(http.StatusOK) {
		t.Errorf("log entry = %v", entry)
	}
	if _, ok := entry["duration"].(float64); !ok {
		t.Errorf("duration = %#v, want a number", entry["duration"])
	}
}

func TestQuery_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http error", http.StatusUnauthorized, `{"error": {"message": "invalid key", "type": "auth"}}`, "invalid key"},
		{"server error", http.StatusInternalServerError, `{}`, "http 500"},
		{"no choices", http.StatusOK, `{"choices": []}`, "empty content"},
		{"not json", http.StatusOK, completion("I could not find that painting."), "parse payload"},
		{"array", http.StatusOK, completion(`["a"]`), "parse payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := newServer(t, tt.status, tt.body, nil)
			_, err := New(Config{APIKey: "k", BaseURL: srv.URL}).Query(context.Background(), "X", "Y", []string{"year"})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
			if hits.Load() != 1 {
				t.Errorf("hits = %d, want exactly one request", hits.Load())
			}
		})
	}
}

func TestQuery_NoAPIKey(t *testing.T) {
	_, err := New(Config{}).Query(context.Background(), "X", "Y", nil)
	if !errors.Is(err, ErrAPIKeyRequired) {
		t.Errorf("err = %v", err)
	}
}

func TestQuery_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c := New(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	if _, err := c.Query(context.Background(), "X", "Y", nil); err == nil {
		t.Error("expected timeout error")
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{APIKey: " k ", BaseURL: "https://example.test/"})
	if c.cfg.APIKey != "k" || c.cfg.BaseURL != "https://example.test" {
		t.Errorf("cfg = %+v", c.cfg)
	}
	if c.cfg.Model != DefaultModel || c.cfg.Timeout != DefaultTimeout {
		t.Errorf("defaults not applied: %+v", c.cfg)
	}
}

func TestPrompt_UnknownFieldHint(t *testing.T) {
	p := Prompt("Olympia", "Édouard Manet", []string{"dimensions"})
	if !strings.Contains(p, "- dimensions: (single string, or empty string)") {
		t.Errorf("prompt:\n%s", p)
	}
	if !strings.Contains(p, `"Édouard Manet"`) {
		t.Errorf("prompt should keep the artist verbatim:\n%s", p)
	}
}

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"plain", `{"a": "b"}`, false},
		{"fenced", "```json\n{\"a\": \"b\"}\n```", false},
		{"prose", `Sure! {"a": "b"} Hope this helps.`, false},
		{"null", `null`, true},
		{"garbage", `nope`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeObject(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

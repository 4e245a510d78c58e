// Package testutil provides shared test helpers: template and input files,
// cache stores, and a fake metadata API.
package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/starford/gesso/internal/cache"
)

// PaintingTemplate mirrors the example template shipped with the tool.
const PaintingTemplate = `---
created: {{date}}
category: "[[Painting]]"
title: "{{title}}"
artist: 
year: 
style:
medium: 
museum:
image: 
rating: 
seen:
tags:
  - paintings
---

# {{title}}

![{{title}}]({{image}})

## Personal Reflection
`

// WriteFile writes content to name inside a fresh temporary directory and
// returns the full path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestStore creates a cache store in a temporary directory.
func TestStore(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.NewStore(filepath.Join(t.TempDir(), ".cache"), nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// Call records one FakeQuerier invocation.
type Call struct {
	Title  string
	Artist string
	Fields []string
}

// FakeQuerier is an in-memory metadata API. Responses are keyed by title;
// titles without a response fail.
type FakeQuerier struct {
	mu        sync.Mutex
	Responses map[string]map[string]string
	Err       error
	calls     []Call
}

// ErrNoResponse is returned for titles without a canned response.
var ErrNoResponse = errors.New("fake querier: no response")

// Query implements enrich.Querier.
func (f *FakeQuerier) Query(_ context.Context, title, artist string, fields []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Title: title, Artist: artist, Fields: slices.Clone(fields)})
	if f.Err != nil {
		return nil, f.Err
	}
	resp, ok := f.Responses[title]
	if !ok {
		return nil, ErrNoResponse
	}
	out := make(map[string]string, len(resp))
	for k, v := range resp {
		out[k] = v
	}
	return out, nil
}

// Calls returns every recorded invocation.
func (f *FakeQuerier) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

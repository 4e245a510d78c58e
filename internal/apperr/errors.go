// Package apperr defines the error taxonomy shared across the pipeline.
package apperr

import "errors"

var (
	// ErrTemplate marks an unusable template. Fatal for the whole run.
	ErrTemplate = errors.New("template error")
	// ErrInputLine marks a malformed input line. The line is skipped.
	ErrInputLine = errors.New("invalid input line")
	// ErrEnrichmentFailed marks a failed metadata lookup for one painting.
	ErrEnrichmentFailed = errors.New("enrichment failed")
	// ErrRender marks a template that could not be re-read at render time.
	ErrRender = errors.New("render error")
	// ErrIOWrite marks a failed cache or note write.
	ErrIOWrite = errors.New("write error")
	// ErrMissingCredential marks an absent API key. Fatal for the whole run.
	ErrMissingCredential = errors.New("missing credential")
	ErrNotFound          = errors.New("not found")
)

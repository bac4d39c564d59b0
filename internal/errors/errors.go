// Package errors defines Magellan's typed error taxonomy (spec §7). Each
// failure class below is a distinct Go type, and those that wrap an
// underlying cause implement Unwrap, so callers can use errors.Is/errors.As
// instead of string matching.
package errors

import (
	"fmt"
	"time"
)

// Kind classifies an error for dispatch at the CLI/MCP boundary.
type Kind string

const (
	KindBackendIO         Kind = "backend_io"
	KindSchemaMismatch    Kind = "schema_mismatch"
	KindParseFailure      Kind = "parse_failure"
	KindPathValidation    Kind = "path_validation"
	KindNotFound          Kind = "not_found"
	KindOrphanReference   Kind = "orphan_reference"
	KindOrphanCall        Kind = "orphan_call"
	KindSerialization     Kind = "serialization"
	KindConfig            Kind = "config"
)

// BackendError reports a storage-backend I/O failure. Retriable at the CLI
// layer; treated as fatal inside a single reconciliation pass (spec §7).
type BackendError struct {
	Op         string
	Underlying error
	Timestamp  time.Time
}

func NewBackendError(op string, err error) *BackendError {
	return &BackendError{Op: op, Underlying: err, Timestamp: time.Now()}
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend io: %s: %v", e.Op, e.Underlying)
}

func (e *BackendError) Unwrap() error { return e.Underlying }

func (e *BackendError) Kind() Kind { return KindBackendIO }

// SchemaMismatchError reports an on-disk schema that this build cannot open
// or auto-upgrade. Always fatal; refuses to open (spec §6).
type SchemaMismatchError struct {
	Component string // "magellan" or "sqlitegraph"
	Found     int
	Expected  int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s schema mismatch: found version %d, expected %d; rebuild the index",
		e.Component, e.Found, e.Expected)
}

func (e *SchemaMismatchError) Kind() Kind { return KindSchemaMismatch }

// ParseFailureError reports a file that failed to parse. Per spec §7 this is
// logged and the file removed from the graph, not propagated as a run error.
type ParseFailureError struct {
	FilePath   string
	Language   string
	Underlying error
}

func NewParseFailureError(path, language string, err error) *ParseFailureError {
	return &ParseFailureError{FilePath: path, Language: language, Underlying: err}
}

func (e *ParseFailureError) Error() string {
	return fmt.Sprintf("parse failure in %s (%s): %v", e.FilePath, e.Language, e.Underlying)
}

func (e *ParseFailureError) Unwrap() error { return e.Underlying }

func (e *ParseFailureError) Kind() Kind { return KindParseFailure }

// PathValidationError reports a path rejected by the watcher or scanner
// (traversal escape, symlink escape, outside watched root). Warned and
// dropped from the dirty batch; never panics (spec §7).
type PathValidationError struct {
	Path   string
	Reason string
}

func (e *PathValidationError) Error() string {
	return fmt.Sprintf("path validation failed for %s: %s", e.Path, e.Reason)
}

func (e *PathValidationError) Kind() Kind { return KindPathValidation }

// NotFoundError reports a missing entity. Query-layer lookups return this as
// a zero value/empty slice rather than an error; algorithms that require a
// resolvable root FQN return it as a hard error (spec §4.8).
type NotFoundError struct {
	Entity string // "symbol", "file", "chunk", "fqn"
	Key    string
}

func NewNotFoundError(entity, key string) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

func (e *NotFoundError) Kind() Kind { return KindNotFound }

// SerializationError reports a JSON encode/decode failure on a node's data
// column.
type SerializationError struct {
	Context    string
	Underlying error
}

func NewSerializationError(context string, err error) *SerializationError {
	return &SerializationError{Context: context, Underlying: err}
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error (%s): %v", e.Context, e.Underlying)
}

func (e *SerializationError) Unwrap() error { return e.Underlying }

func (e *SerializationError) Kind() Kind { return KindSerialization }

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
}

func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Underlying: err}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for %s=%q: %v", e.Field, e.Value, e.Underlying)
}

func (e *ConfigError) Unwrap() error { return e.Underlying }

func (e *ConfigError) Kind() Kind { return KindConfig }

// MultiError aggregates independent per-file ingest failures so that one bad
// file never prevents others in the same batch from indexing (spec §7).
type MultiError struct {
	Errors []error
}

func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v", len(e.Errors), e.Errors)
}

func (e *MultiError) Unwrap() []error { return e.Errors }

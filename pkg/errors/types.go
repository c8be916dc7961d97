// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"errors"
	"fmt"
	"time"
)

// InvalidInputError represents malformed or missing user-supplied input,
// e.g. an unparseable store path or an argument that refers to nothing.
type InvalidInputError struct {
	// Field identifies which input failed validation, if applicable.
	Field string

	// Message is the human-readable error description.
	Message string

	// Suggestion provides actionable guidance for fixing the error.
	Suggestion string
}

func (e *InvalidInputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid input on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid input: %s", e.Message)
}

// InvalidOperationError represents a requested state transition that is
// impossible, e.g. navigating past the end of the selection history.
type InvalidOperationError struct {
	Message string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("invalid operation: %s", e.Message)
}

// InvalidStateError represents the workspace or runtime being in a state
// that does not support the requested action, e.g. no workspace present.
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: %s", e.Message)
}

// NotFoundError represents a named resource (action, precondition,
// connector) that does not exist in its registry.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// FileNotFoundError represents a store or filesystem path that does not
// exist where one was expected.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// FileExistsError represents a store or filesystem path that already
// exists where a fresh path was expected.
type FileExistsError struct {
	Path string
}

func (e *FileExistsError) Error() string {
	return fmt.Sprintf("file already exists: %s", e.Path)
}

// InvalidFilenameError represents a filename that violates the store's
// slug/extension grammar.
type InvalidFilenameError struct {
	Name   string
	Reason string
}

func (e *InvalidFilenameError) Error() string {
	return fmt.Sprintf("invalid filename %q: %s", e.Name, e.Reason)
}

// PreconditionFailure is raised by Precondition.Check when an item fails a
// named precondition. Precondition.Test (the boolean-returning form) treats
// this specific error as "false" rather than propagating it.
type PreconditionFailure struct {
	// Precondition is the (possibly composite) precondition expression name.
	Precondition string

	// Item identifies the item that failed, for the error message only.
	Item string
}

func (e *PreconditionFailure) Error() string {
	return fmt.Sprintf("precondition %q failed for %s", e.Precondition, e.Item)
}

// SkippableError marks a per-file loader error that should be silently
// skipped (logged, not propagated) during bulk workspace walks.
type SkippableError struct {
	Path  string
	Cause error
}

func (e *SkippableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("skipping %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("skipping %s", e.Path)
}

func (e *SkippableError) Unwrap() error { return e.Cause }

// ErrSkipItem is a sentinel an action body returns to pass an input item
// through unchanged, without producing a new output. Check with errors.Is.
var ErrSkipItem = errors.New("kash: skip item")

// ContentError represents an action that produced no usable output from
// non-empty input.
type ContentError struct {
	Message string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content error: %s", e.Message)
}

// ApiResultError represents an upstream API (an LLM provider, a fetcher)
// returning an unusable result.
type ApiResultError struct {
	Provider string
	Message  string
}

func (e *ApiResultError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("api result error (%s): %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("api result error: %s", e.Message)
}

// ProviderError represents LLM provider failures (component L).
type ProviderError struct {
	Provider   string
	Code       int
	StatusCode int
	Message    string
	Suggestion string
	RequestID  string
	Cause      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider %s error", e.Provider)
	if e.Code > 0 {
		msg = fmt.Sprintf("%s (%d)", msg, e.Code)
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s [HTTP %d]", msg, e.StatusCode)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Message)
	if e.RequestID != "" {
		msg = fmt.Sprintf("%s (request-id: %s)", msg, e.RequestID)
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// RetryExhaustedException wraps the final error after a task's per-task
// retry budget (internal/gather) has been exhausted.
type RetryExhaustedException struct {
	Original error
	Attempts int
	Elapsed  time.Duration
}

func (e *RetryExhaustedException) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts (%v): %v", e.Attempts, e.Elapsed, e.Original)
}

func (e *RetryExhaustedException) Unwrap() error { return e.Original }

// SetupError represents a missing external tool or other misconfiguration
// discovered at action-run time (e.g. no shell interpreter configured).
type SetupError struct {
	Tool   string
	Reason string
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup error (%s): %s", e.Tool, e.Reason)
}

// ConfigError represents configuration problems: missing settings or
// invalid config values in internal/config.
type ConfigError struct {
	Key    string
	Reason string
	Cause  error
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// TimeoutError represents an operation exceeding its configured timeout.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	Cause     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s operation timed out after %v", e.Operation, e.Duration)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

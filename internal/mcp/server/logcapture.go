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

package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// memoryLogHandler is a slog.Handler that appends one formatted line per
// record to an in-memory slice, rather than writing to an output stream.
// An action tool call installs one of these as the process-default
// logger for the call's duration, so the lines it captures can be
// returned alongside the tool's result per spec.md §6 ("the captured log
// lines from the run").
type memoryLogHandler struct {
	mu    *sync.Mutex
	lines *[]string
}

func newMemoryLogHandler(lines *[]string) *memoryLogHandler {
	return &memoryLogHandler{mu: &sync.Mutex{}, lines: lines}
}

func (h *memoryLogHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *memoryLogHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Level.String())
	b.WriteString(": ")
	b.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
		return true
	})

	h.mu.Lock()
	*h.lines = append(*h.lines, b.String())
	h.mu.Unlock()
	return nil
}

func (h *memoryLogHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *memoryLogHandler) WithGroup(string) slog.Handler      { return h }

// defaultLoggerMu serializes the swap-in/swap-out of the process-default
// logger around a single tool call, so concurrent calls don't race on
// which memoryLogHandler is "current". Tool calls execute one at a time
// as far as log capture is concerned; their underlying actions can still
// run concurrently internally (component J).
var defaultLoggerMu sync.Mutex

// captureLogs runs fn with the process-default slog logger replaced by a
// memoryLogHandler for the duration of the call, returning the lines
// logged during that window alongside whatever error fn returned.
func captureLogs(fn func() error) (lines []string, err error) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()

	prev := slog.Default()
	slog.SetDefault(slog.New(newMemoryLogHandler(&lines)))
	defer slog.SetDefault(prev)

	return lines, fn()
}

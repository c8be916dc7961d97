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

package gather

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// TaskID identifies a unit of work registered with a ProgressTracker.
type TaskID int64

// TaskState is the terminal or in-progress state of a tracked task.
type TaskState string

const (
	TaskStateRunning TaskState = "running"
	TaskStateRetrying TaskState = "retrying"
	TaskStateDone     TaskState = "done"
	TaskStateFailed   TaskState = "failed"
)

// UpdateOption mutates a task's display state; LineTracker only consumes
// the label, but the type exists so richer trackers (a TUI progress bar)
// can layer on more fields without changing the interface.
type UpdateOption func(*updateState)

type updateState struct {
	state TaskState
	msg   string
}

// WithState sets the task's current state for an Update call.
func WithState(s TaskState) UpdateOption {
	return func(u *updateState) { u.state = s }
}

// WithMessage attaches a free-form message to an Update call.
func WithMessage(msg string) UpdateOption {
	return func(u *updateState) { u.msg = msg }
}

// ProgressTracker receives task lifecycle notifications from Limited.
type ProgressTracker interface {
	Add(label string) TaskID
	Update(id TaskID, opts ...UpdateOption)
	Finish(id TaskID, state TaskState, msg string)
}

// LineTracker is the default ProgressTracker: it logs one line per state
// change via the ambient structured logger, rather than rendering a live
// display.
type LineTracker struct {
	mu     sync.Mutex
	labels map[TaskID]string
	nextID atomic.Int64
}

// NewLineTracker returns a ProgressTracker that logs task lifecycle
// transitions.
func NewLineTracker() *LineTracker {
	return &LineTracker{labels: make(map[TaskID]string)}
}

func (t *LineTracker) Add(label string) TaskID {
	id := TaskID(t.nextID.Add(1))
	t.mu.Lock()
	t.labels[id] = label
	t.mu.Unlock()
	slog.Debug("gather: task started", "task", id, "label", label)
	return id
}

func (t *LineTracker) Update(id TaskID, opts ...UpdateOption) {
	var u updateState
	for _, opt := range opts {
		opt(&u)
	}
	slog.Debug("gather: task update", "task", id, "label", t.labelFor(id), "state", u.state, "message", u.msg)
}

func (t *LineTracker) Finish(id TaskID, state TaskState, msg string) {
	label := t.labelFor(id)
	switch state {
	case TaskStateFailed:
		slog.Warn("gather: task failed", "task", id, "label", label, "error", msg)
	default:
		slog.Debug("gather: task finished", "task", id, "label", label, "state", state)
	}
	t.mu.Lock()
	delete(t.labels, id)
	t.mu.Unlock()
}

func (t *LineTracker) labelFor(id TaskID) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if l, ok := t.labels[id]; ok {
		return l
	}
	return fmt.Sprintf("task-%d", id)
}

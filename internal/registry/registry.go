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

// Package registry wires every built-in action and precondition package
// into a pair of registries at startup, in a fixed order, logging a tally
// of what each package contributed. This replaces a reflection-based
// subdirectory auto-import with an explicit, statically linked call list.
package registry

import (
	"log/slog"

	"github.com/kashrun/kash/internal/action"
	"github.com/kashrun/kash/internal/actions/file"
	"github.com/kashrun/kash/internal/actions/http"
	"github.com/kashrun/kash/internal/actions/llm"
	"github.com/kashrun/kash/internal/actions/shell"
	"github.com/kashrun/kash/internal/actions/transform"
	"github.com/kashrun/kash/internal/precondition"
	"github.com/kashrun/kash/internal/precondition/builtin"
)

// RegisterAll populates r and pr with every built-in action and
// precondition, logging how many each contributing package registered.
func RegisterAll(r *action.Registry, pr *precondition.Registry) {
	registerActions(r, "actions/file", file.Register)
	registerActions(r, "actions/http", http.Register)
	registerActions(r, "actions/llm", llm.Register)
	registerActions(r, "actions/shell", shell.Register)
	registerActions(r, "actions/transform", transform.Register)

	before := pr.Len()
	builtin.Register(pr)
	slog.Info("registered builtin preconditions", "package", "precondition/builtin", "count", pr.Len()-before)
}

func registerActions(r *action.Registry, pkg string, register func(*action.Registry)) {
	before := r.Len()
	register(r)
	slog.Info("registered builtin actions", "package", pkg, "count", r.Len()-before)
}

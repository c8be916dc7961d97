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

package sdk

import (
	"context"

	"github.com/kashrun/kash/internal/action"
	"github.com/kashrun/kash/internal/actions/file"
	actionllm "github.com/kashrun/kash/internal/actions/llm"
	"github.com/kashrun/kash/internal/exec"
	"github.com/kashrun/kash/internal/item"
	"github.com/kashrun/kash/internal/param"
	"github.com/kashrun/kash/internal/store/storepath"
)

// Input is one of kash_run's inputs: a URL, a file path, an already
// in-store path, or a caller-constructed Item held in memory.
type Input struct {
	// Locator is a URL, filesystem path, or store path. Ignored when Item
	// is set.
	Locator string

	// Item is a pre-built in-memory item, used as-is without going
	// through the store's import/dedup logic.
	Item *item.Item
}

// FromLocator builds an Input from a URL, file path, or store path.
func FromLocator(locator string) Input { return Input{Locator: locator} }

// FromItem builds an Input from an already-constructed Item.
func FromItem(it item.Item) Input { return Input{Item: &it} }

// RunOptions are kash_run's remaining named arguments, beyond the action
// name and inputs: parameter overrides and the three execution flags
// spec.md §6 names explicitly.
type RunOptions struct {
	// Params are the action's parameter values, raw (untyped) form, as a
	// CLI flag parser or MCP tool-call argument map would supply them.
	Params param.RawValues

	// Rerun forces cache bypass (skips step 4's rerun-avoidance check).
	Rerun bool

	// NoFormat disables reformatting on save (passed through to
	// store.SaveOptions).
	NoFormat bool

	// SaveResults persists the action's outputs to the workspace store.
	// When false, the action still runs but nothing is written — useful
	// for a dry preview of an action's output.
	SaveResults bool
}

// Run implements kash_run(action_name, inputs?, params?, workspace_dir?,
// rerun, no_format, save_results) -> ActionResult. workspace_dir is
// already bound at Init time; everything else is carried in inputs and
// opts.
func (s *SDK) Run(ctx context.Context, actionName string, inputs []Input, opts RunOptions) (action.ActionResult, error) {
	act, err := s.actions.Get(actionName)
	if err != nil {
		return action.ActionResult{}, err
	}
	spec := act.Spec()

	ctx = file.WithStore(ctx, s.store)
	ctx = actionllm.WithProviders(ctx, s.providers)

	items := make([]item.Item, 0, len(inputs))
	for _, in := range inputs {
		it, err := s.resolveInput(ctx, in, opts.Rerun)
		if err != nil {
			return action.ActionResult{}, err
		}
		items = append(items, it)
	}

	typed, err := spec.Params.Parse(opts.Params)
	if err != nil {
		return action.ActionResult{}, err
	}

	ec := &action.ExecContext{
		Ctx:      ctx,
		Action:   spec,
		Params:   typed,
		Rerun:    opts.Rerun,
		NoFormat: opts.NoFormat,
	}
	in := action.ActionInput{Items: items}

	if !opts.SaveResults {
		return act.Run(ctx, ec, in)
	}

	result, _, _, err := exec.RunAction(ctx, s.store, ec, act, in)
	return result, err
}

// resolveInput turns one Input into an Item: a caller-supplied Item is
// used verbatim; a locator that already names a store path is loaded;
// anything else (a URL or a filesystem path) is imported via the store,
// matching spec.md §4.I's "resolves each into an Item via (H)" step.
func (s *SDK) resolveInput(ctx context.Context, in Input, reimport bool) (item.Item, error) {
	if in.Item != nil {
		return *in.Item, nil
	}

	if sp, err := storepath.Parse(in.Locator); err == nil {
		if it, err := s.store.Load(ctx, sp); err == nil {
			return it, nil
		}
	}

	return s.store.Import(ctx, in.Locator, "", reimport)
}

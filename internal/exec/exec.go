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

// Package exec implements the execution pipeline: resolving an action's
// validated inputs into an Operation fingerprint, checking whether a prior
// run's output can be reused, invoking the action body once or once per
// item, attaching lineage, and saving results back into the store.
package exec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kashrun/kash/internal/action"
	"github.com/kashrun/kash/internal/item"
	"github.com/kashrun/kash/internal/operation"
	"github.com/kashrun/kash/internal/store"
	"github.com/kashrun/kash/internal/store/storepath"
	kasherrors "github.com/kashrun/kash/pkg/errors"
)

// RunAction executes act against in under ec, returning the outcome plus
// the store paths written and archived along the way. st is the workspace
// store the pipeline saves outputs to and consults for rerun avoidance.
func RunAction(ctx context.Context, st *store.Store, ec *action.ExecContext, act action.Action, in action.ActionInput) (action.ActionResult, []storepath.Path, []storepath.Path, error) {
	spec := act.Spec()

	if err := validate(spec, ec, in); err != nil {
		return action.ActionResult{}, nil, nil, err
	}

	op, err := buildOperation(st, spec, ec, in)
	if err != nil {
		return action.ActionResult{}, nil, nil, err
	}

	if cached, ok := rerunCheck(ctx, st, spec, ec, act, in, op); ok {
		return cached, nil, nil, nil
	}

	result, err := execute(ctx, ec, act, in)
	if err != nil {
		return action.ActionResult{}, nil, nil, err
	}

	attachLineage(result.Items, op, in, ec, spec)

	saved, err := saveOutputs(ctx, st, result, ec)
	if err != nil {
		return action.ActionResult{}, nil, nil, err
	}

	archived := archiveOnReplace(st, result, in, saved)

	return result, saved, archived, nil
}

func validate(spec action.Spec, ec *action.ExecContext, in action.ActionInput) error {
	if !spec.ExpectedArgs.Contains(len(in.Items)) {
		return &kasherrors.InvalidInputError{
			Field:   "args",
			Message: fmt.Sprintf("action %q expected %d-%d inputs, got %d", spec.Name, spec.ExpectedArgs.Min, spec.ExpectedArgs.Max, len(in.Items)),
		}
	}

	for name, p := range spec.Params {
		if !p.IsExplicit {
			continue
		}
		if _, ok := ec.Params[name]; !ok {
			return &kasherrors.InvalidInputError{Field: name, Message: fmt.Sprintf("action %q requires explicit parameter %q", spec.Name, name)}
		}
	}

	if spec.Precondition.IsZero() {
		return nil
	}
	for _, it := range in.Items {
		if err := spec.Precondition.Check(it); err != nil {
			return err
		}
	}
	return nil
}

// paramSummary renders ec.Params as the string-keyed option map an
// Operation carries, for fingerprinting purposes only.
func paramSummary(ec *action.ExecContext) map[string]string {
	if len(ec.Params) == 0 {
		return nil
	}
	out := make(map[string]string, len(ec.Params))
	for k, v := range ec.Params {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

func buildOperation(st *store.Store, spec action.Spec, ec *action.ExecContext, in action.ActionInput) (operation.Operation, error) {
	op := operation.Operation{Action: spec.Name, Options: paramSummary(ec)}
	for _, it := range in.Items {
		if it.StorePath == "" {
			continue
		}
		sp, err := storepath.Parse(it.StorePath)
		if err != nil {
			return operation.Operation{}, err
		}
		hash, err := st.Hash(sp)
		if err != nil {
			return operation.Operation{}, err
		}
		op.Args = append(op.Args, operation.Input{Path: sp, Hash: hash})
	}
	return op, nil
}

// rerunCheck implements step 4: if act can preassemble its output paths and
// every predicted path already holds an item whose Source matches op, the
// run is skipped and the cached outputs are returned verbatim.
func rerunCheck(ctx context.Context, st *store.Store, spec action.Spec, ec *action.ExecContext, act action.Action, in action.ActionInput, op operation.Operation) (action.ActionResult, bool) {
	if ec.Rerun || !spec.Cacheable {
		return action.ActionResult{}, false
	}
	pre, ok := act.(action.Preassembler)
	if !ok {
		return action.ActionResult{}, false
	}

	predicted, err := pre.Preassemble(op, in)
	if err != nil || len(predicted) == 0 {
		return action.ActionResult{}, false
	}

	items := make([]item.Item, 0, len(predicted))
	for _, raw := range predicted {
		sp, err := storepath.Parse(raw)
		if err != nil {
			return action.ActionResult{}, false
		}
		it, err := st.Load(ctx, sp)
		if err != nil {
			return action.ActionResult{}, false
		}
		if it.Source == nil || it.Source.OperationStr != op.AsStr() {
			return action.ActionResult{}, false
		}
		items = append(items, it)
	}

	slog.Debug("rerun avoided", "action", spec.Name, "operation", op.AsStr())
	return action.ActionResult{Items: items}, true
}

// nonFatal reports whether err is one of the per-item loop's non-fatal
// classes (spec.md §7's non-fatal set): the loop logs and continues rather
// than aborting the whole run.
func nonFatal(err error) bool {
	var content *kasherrors.ContentError
	var apiResult *kasherrors.ApiResultError
	var invalidInput *kasherrors.InvalidInputError
	var precond *kasherrors.PreconditionFailure
	return errors.As(err, &content) || errors.As(err, &apiResult) || errors.As(err, &invalidInput) || errors.As(err, &precond)
}

func execute(ctx context.Context, ec *action.ExecContext, act action.Action, in action.ActionInput) (action.ActionResult, error) {
	spec := act.Spec()
	if !spec.RunPerItem {
		return act.Run(ctx, ec, in)
	}

	var items []item.Item
	var failures int
	for _, it := range in.Items {
		out, err := act.Run(ctx, ec, action.ActionInput{Items: []item.Item{it}})
		if err == nil {
			switch len(out.Items) {
			case 0:
				// no output for this item; nothing to append.
			case 1:
				items = append(items, out.Items[0])
			default:
				slog.Warn("per-item action returned more than one output, dropping extras", "action", spec.Name, "item", it.StorePath, "outputs", len(out.Items))
				items = append(items, out.Items[0])
			}
			continue
		}

		if errors.Is(err, action.ErrSkipItem) {
			items = append(items, it)
			continue
		}

		if len(in.Items) == 1 {
			return action.ActionResult{}, err
		}

		if nonFatal(err) {
			failures++
			slog.Warn("action failed on item, continuing", "action", spec.Name, "item", it.StorePath, "error", err)
			continue
		}

		return action.ActionResult{}, err
	}

	if failures > 0 {
		slog.Info("per-item run completed with errors", "action", spec.Name, "failed", failures, "succeeded", len(items))
	}
	return action.ActionResult{Items: items}, nil
}

// attachLineage stamps Source on each output item (step 6), rebuilding a
// single-input operation for per-item runs so each output's provenance
// names only the one item that produced it.
func attachLineage(outputs []item.Item, op operation.Operation, in action.ActionInput, ec *action.ExecContext, spec action.Spec) {
	for i := range outputs {
		opI := op
		if spec.RunPerItem && i < len(in.Items) {
			opI = operation.Operation{Action: op.Action, Options: op.Options}
			for _, a := range op.Args {
				if in.Items[i].StorePath != "" && a.Path.String() == in.Items[i].StorePath {
					opI.Args = []operation.Input{a}
					break
				}
			}
		}
		outputs[i].Source = &item.Source{OperationStr: opI.AsStr(), OutputIndex: i, Cacheable: spec.Cacheable}
		if ec.OverrideState != nil {
			outputs[i].State = *ec.OverrideState
		}
	}
}

func saveOutputs(ctx context.Context, st *store.Store, result action.ActionResult, ec *action.ExecContext) ([]storepath.Path, error) {
	saved := make([]storepath.Path, 0, len(result.Items))
	for i := range result.Items {
		if result.SkipDuplicates && result.Items[i].StorePath != "" {
			sp, err := storepath.Parse(result.Items[i].StorePath)
			if err == nil {
				if _, err := st.Load(ctx, sp); err == nil {
					saved = append(saved, sp)
					continue
				}
			}
		}

		sp, err := st.Save(ctx, result.Items[i], store.SaveOptions{NoFormat: ec.NoFormat})
		if err != nil {
			return nil, err
		}
		result.Items[i].StorePath = sp.String()
		saved = append(saved, sp)
	}
	return saved, nil
}

// archiveOnReplace implements step 8: when the result says it replaces its
// inputs, any input store path absent from the saved-outputs set is
// archived.
func archiveOnReplace(st *store.Store, result action.ActionResult, in action.ActionInput, saved []storepath.Path) []storepath.Path {
	if !result.ReplacesInput {
		return nil
	}

	savedSet := make(map[string]struct{}, len(saved))
	for _, sp := range saved {
		savedSet[sp.String()] = struct{}{}
	}

	var archived []storepath.Path
	for _, it := range in.Items {
		if it.StorePath == "" {
			continue
		}
		if _, kept := savedSet[it.StorePath]; kept {
			continue
		}
		sp, err := storepath.Parse(it.StorePath)
		if err != nil {
			continue
		}
		if err := st.Archive(sp); err != nil {
			slog.Warn("failed to archive replaced input", "path", sp.String(), "error", err)
			continue
		}
		archived = append(archived, sp)
	}
	return archived
}

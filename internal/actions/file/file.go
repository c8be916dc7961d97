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

// Package file implements the import_item and export_item built-in
// actions: moving content between the filesystem and the workspace store.
package file

import (
	"context"
	"fmt"
	"os"

	"github.com/kashrun/kash/internal/action"
	"github.com/kashrun/kash/internal/item"
	"github.com/kashrun/kash/internal/param"
	kasherrors "github.com/kashrun/kash/pkg/errors"
)

// Store is the subset of *store.Store the file actions depend on, so
// tests can substitute a fake without standing up a real workspace.
type Store interface {
	Import(ctx context.Context, locator string, asType item.Type, reimport bool) (item.Item, error)
}

var storeKey = struct{ name string }{"kash-store"}

// WithStore attaches s to ctx for the file actions to retrieve; the
// execution pipeline calls this once per run before invoking actions.
func WithStore(ctx context.Context, s Store) context.Context {
	return context.WithValue(ctx, storeKey, s)
}

func storeFrom(ctx context.Context) (Store, error) {
	s, ok := ctx.Value(storeKey).(Store)
	if !ok || s == nil {
		return nil, &kasherrors.InvalidStateError{Message: "no store attached to context"}
	}
	return s, nil
}

var importSpec = action.Spec{
	Name:            "import_item",
	Description:     "Imports a local file into the workspace as a resource item.",
	ExpectedArgs:    action.ArgRange{Min: 1, Max: 1},
	ExpectedOutputs: action.OneArg,
	MCPTool:         true,
	Params: param.Declarations{
		"reimport": param.Param{Name: "reimport", Type: param.TypeBool, Default: false,
			Description: "re-import even if an identical file was imported before"},
	},
}

// Register adds this package's actions to r.
func Register(r *action.Registry) {
	r.Register(importAction{})
	r.Register(exportAction{})
}

type importAction struct{}

func (importAction) Spec() action.Spec { return importSpec }

func (importAction) Run(ctx context.Context, ec *action.ExecContext, in action.ActionInput) (action.ActionResult, error) {
	if len(in.Items) != 1 {
		return action.ActionResult{}, &kasherrors.InvalidInputError{Field: "args", Message: "import_item takes exactly one path"}
	}

	s, err := storeFrom(ctx)
	if err != nil {
		return action.ActionResult{}, err
	}

	reimport, _ := ec.Params["reimport"].(bool)
	locator := in.Items[0].ExternalPath
	if locator == "" {
		locator = in.Items[0].URL
	}

	it, err := s.Import(ctx, locator, item.TypeResource, reimport)
	if err != nil {
		return action.ActionResult{}, err
	}
	return action.ActionResult{Items: []item.Item{it}}, nil
}

var exportSpec = action.Spec{
	Name:            "export_item",
	Description:     "Writes an item's body to a file outside the workspace.",
	ExpectedArgs:    action.OneArg,
	ExpectedOutputs: action.ArgRange{Min: 0, Max: 0},
	Params: param.Declarations{
		"path": param.Param{Name: "path", Type: param.TypePath, IsExplicit: true,
			Description: "destination filesystem path"},
	},
}

type exportAction struct{}

func (exportAction) Spec() action.Spec { return exportSpec }

func (exportAction) Run(ctx context.Context, ec *action.ExecContext, in action.ActionInput) (action.ActionResult, error) {
	if len(in.Items) != 1 {
		return action.ActionResult{}, &kasherrors.InvalidInputError{Field: "args", Message: "export_item takes exactly one item"}
	}

	dest, _ := ec.Params["path"].(string)
	if dest == "" {
		return action.ActionResult{}, &kasherrors.InvalidInputError{Field: "path", Message: "export destination is required"}
	}

	if err := os.WriteFile(dest, []byte(in.Items[0].Body), 0o644); err != nil {
		return action.ActionResult{}, fmt.Errorf("exporting to %s: %w", dest, err)
	}
	return action.ActionResult{}, nil
}

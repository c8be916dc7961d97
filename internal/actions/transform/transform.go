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

// Package transform implements small in-process, per-item text
// transforms: lowercase and grep.
package transform

import (
	"context"
	"strings"
	"time"

	"github.com/kashrun/kash/internal/action"
	"github.com/kashrun/kash/internal/item"
	"github.com/kashrun/kash/internal/param"
	kasherrors "github.com/kashrun/kash/pkg/errors"
)

var lowercaseSpec = action.Spec{
	Name:            "lowercase",
	Description:     "Lowercases an item's body.",
	ExpectedArgs:    action.OneArg,
	ExpectedOutputs: action.OneArg,
	RunPerItem:      true,
	MCPTool:         true,
}

var grepSpec = action.Spec{
	Name:            "grep",
	Description:     "Keeps an item only if its body contains a pattern; otherwise raises a content error.",
	ExpectedArgs:    action.OneArg,
	ExpectedOutputs: action.OneArg,
	RunPerItem:      true,
	MCPTool:         true,
	Params: param.Declarations{
		"pattern": param.Param{Name: "pattern", Type: param.TypeStr, IsExplicit: true,
			Description: "substring the item's body must contain"},
	},
}

// Register adds this package's actions to r.
func Register(r *action.Registry) {
	r.Register(action.PerItem(lowercaseSpec, lowercase))
	r.Register(action.PerItem(grepSpec, grep))
}

func lowercase(ctx context.Context, ec *action.ExecContext, it item.Item) (item.Item, error) {
	out := it
	out.Body = strings.ToLower(it.Body)
	out.ModifiedAt = time.Now()
	return out, nil
}

func grep(ctx context.Context, ec *action.ExecContext, it item.Item) (item.Item, error) {
	pattern, _ := ec.Params["pattern"].(string)
	if pattern == "" {
		return item.Item{}, &kasherrors.InvalidInputError{Field: "pattern", Message: "grep requires a non-empty pattern"}
	}
	if !strings.Contains(it.Body, pattern) {
		return item.Item{}, &kasherrors.ContentError{Message: "no match"}
	}
	return it, nil
}

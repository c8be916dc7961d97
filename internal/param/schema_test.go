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

package param

import "testing"

func TestToolInputSchema_AlwaysHasItems(t *testing.T) {
	properties, _ := ToolInputSchema(Declarations{})

	items, ok := properties["items"].(map[string]any)
	if !ok {
		t.Fatalf("properties[items] = %v, want a schema object", properties["items"])
	}
	if items["type"] != "array" {
		t.Errorf("items.type = %v, want array", items["type"])
	}
}

func TestToolInputSchema_IncludesEachParam(t *testing.T) {
	decls := Declarations{
		"model": {Name: "model", Type: TypeStr, Description: "model name", IsExplicit: true},
		"depth": {Name: "depth", Type: TypeInt, Default: 3},
	}

	properties, required := ToolInputSchema(decls)

	if len(properties) != 3 {
		t.Fatalf("properties length = %d, want 3 (items + model + depth)", len(properties))
	}
	model, ok := properties["model"].(map[string]any)
	if !ok || model["type"] != "string" {
		t.Errorf("properties[model] = %v, want string schema", properties["model"])
	}
	depth, ok := properties["depth"].(map[string]any)
	if !ok || depth["type"] != "integer" {
		t.Errorf("properties[depth] = %v, want integer schema", properties["depth"])
	}

	if len(required) != 1 || required[0] != "model" {
		t.Errorf("required = %v, want [model]", required)
	}
}

func TestToolInputSchema_ExplicitWithDefaultIsNotRequired(t *testing.T) {
	decls := Declarations{
		"format": {Name: "format", Type: TypeStr, IsExplicit: true, Default: "markdown"},
	}

	_, required := ToolInputSchema(decls)

	if len(required) != 0 {
		t.Errorf("required = %v, want none (has a default)", required)
	}
}

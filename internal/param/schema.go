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

import "sort"

// ToolInputSchema assembles the JSON Schema properties/required pair for
// an MCP tool wrapping an action declaring decls as its parameters, per
// spec.md §6: {items: [string], <each_param>: <json_schema>}. "items" is
// always present and holds the store paths, file paths, or URLs the tool
// call resolves into input Items.
func ToolInputSchema(decls Declarations) (properties map[string]any, required []string) {
	properties = map[string]any{
		"items": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Store paths, file paths, or URLs to use as input items",
		},
	}

	for name, p := range decls {
		properties[name] = p.JSONSchema()
		if p.IsExplicit && p.Default == nil {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	return properties, required
}

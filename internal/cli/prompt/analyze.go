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

package prompt

import (
	"sort"

	"github.com/kashrun/kash/internal/param"
)

// InputAnalyzer compares an action's declared parameters against the
// values already supplied on the command line (or an MCP tool call) and
// identifies which ones still need to be collected interactively.
type InputAnalyzer struct {
	declarations param.Declarations
	provided     param.RawValues
}

// NewInputAnalyzer creates a new input analyzer.
func NewInputAnalyzer(declarations param.Declarations, provided param.RawValues) *InputAnalyzer {
	return &InputAnalyzer{
		declarations: declarations,
		provided:     provided,
	}
}

// MissingInput represents a declared parameter that needs to be collected
// from the user because it has neither a provided value nor a default.
type MissingInput struct {
	Name        string
	Type        param.Type
	Description string
	Default     any
	Enum        []string
}

// FindMissingInputs identifies declared parameters that haven't been
// provided and have no default value, sorted by name for stable prompting
// order.
func (ia *InputAnalyzer) FindMissingInputs() []MissingInput {
	missing := make([]MissingInput, 0, len(ia.declarations))

	for name, p := range ia.declarations {
		if _, exists := ia.provided[name]; exists {
			continue
		}
		if p.Default != nil {
			continue
		}
		missing = append(missing, MissingInput{
			Name:        name,
			Type:        p.Type,
			Description: p.Description,
			Default:     p.Default,
			Enum:        p.ValidValues,
		})
	}

	sort.Slice(missing, func(i, j int) bool { return missing[i].Name < missing[j].Name })
	return missing
}

// ApplyDefaults returns the provided values merged with each undeclared
// parameter's default, without overwriting anything already supplied.
func (ia *InputAnalyzer) ApplyDefaults() map[string]any {
	result := make(map[string]any, len(ia.provided))
	for k, v := range ia.provided {
		result[k] = v
	}

	for name, p := range ia.declarations {
		if _, exists := result[name]; !exists && p.Default != nil {
			result[name] = p.Default
		}
	}

	return result
}

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

// Package llm implements the llm_transform built-in action: component L's
// llm_completion/llm_template_completion wrapper (pkg/llm), exposed as a
// per-item action so a kash pipeline step can run an item's body through
// an LLM the way it runs any other transform.
package llm

import (
	"context"
	"time"

	"github.com/kashrun/kash/internal/action"
	"github.com/kashrun/kash/internal/item"
	"github.com/kashrun/kash/internal/param"
	kasherrors "github.com/kashrun/kash/pkg/errors"
	"github.com/kashrun/kash/pkg/llm"
)

// Providers is the subset of *llm.Registry the llm_transform action
// depends on, so tests can substitute a fake without activating a real
// provider registry.
type Providers interface {
	Get(name string) (llm.Provider, error)
	GetDefault() (llm.Provider, error)
}

var providersKey = struct{ name string }{"kash-llm-providers"}

// WithProviders attaches p to ctx for the llm_transform action to
// retrieve; the execution pipeline (sdk.Run) calls this once per run
// before invoking actions.
func WithProviders(ctx context.Context, p Providers) context.Context {
	return context.WithValue(ctx, providersKey, p)
}

func providersFrom(ctx context.Context) (Providers, error) {
	p, ok := ctx.Value(providersKey).(Providers)
	if !ok || p == nil {
		return nil, &kasherrors.InvalidStateError{Message: "no llm provider registry attached to context"}
	}
	return p, nil
}

var transformSpec = action.Spec{
	Name:            "llm_transform",
	Description:     "Runs an item's body through an LLM completion and replaces the body with the response.",
	ExpectedArgs:    action.OneArg,
	ExpectedOutputs: action.OneArg,
	RunPerItem:      true,
	MCPTool:         true,
	LLMOptions: &action.LLMOptions{
		SystemMsg: "You are a careful editor. Respond only with the transformed text, no commentary.",
	},
	Params: param.Declarations{
		"provider": param.Param{Name: "provider", Type: param.TypeStr,
			Description: "registered provider name; empty uses the configured default"},
		"model": param.Param{Name: "model", Type: param.TypeLLMName, IsExplicit: true,
			Description: "model identifier to request from the provider"},
		"system_message": param.Param{Name: "system_message", Type: param.TypeStr,
			Description: "overrides the action's default system message"},
		"body_template": param.Param{Name: "body_template", Type: param.TypeStr, Default: "{body}",
			Description: "template wrapping the item body before it becomes the user message; must contain {body}"},
		"check_no_results": param.Param{Name: "check_no_results", Type: param.TypeBool, Default: true,
			Description: "normalize a (no results) sentinel response to an empty body"},
		"with_citations": param.Param{Name: "with_citations", Type: param.TypeBool, Default: false,
			Description: "append a Markdown footnote block when the provider returns citations"},
	},
}

// Register adds this package's actions to r.
func Register(r *action.Registry) {
	r.Register(action.PerItem(transformSpec, transform))
}

func transform(ctx context.Context, ec *action.ExecContext, it item.Item) (item.Item, error) {
	providers, err := providersFrom(ctx)
	if err != nil {
		return item.Item{}, err
	}

	providerName, _ := ec.Params["provider"].(string)
	provider, err := resolveProvider(providers, providerName)
	if err != nil {
		return item.Item{}, err
	}

	model, _ := ec.Params["model"].(string)
	if model == "" && ec.Action.LLMOptions != nil {
		model = ec.Action.LLMOptions.Model
	}
	if model == "" {
		return item.Item{}, &kasherrors.InvalidInputError{Field: "model", Message: "llm_transform requires a model"}
	}

	systemMessage, _ := ec.Params["system_message"].(string)
	if systemMessage == "" && ec.Action.LLMOptions != nil {
		systemMessage = ec.Action.LLMOptions.SystemMsg
	}

	bodyTemplate, _ := ec.Params["body_template"].(string)
	checkNoResults, _ := ec.Params["check_no_results"].(bool)
	withCitations, _ := ec.Params["with_citations"].(bool)

	result, err := llm.TemplateCompletion(ctx, provider, model, systemMessage, it.Body, llm.TemplateCompletionOptions{
		BodyTemplate:   llm.MessageTemplate(bodyTemplate),
		CheckNoResults: checkNoResults,
	})
	if err != nil {
		return item.Item{}, err
	}

	out := it
	if withCitations {
		out.Body = result.ContentWithCitations()
	} else {
		out.Body = result.Content
	}
	out.ModifiedAt = time.Now()
	return out, nil
}

func resolveProvider(providers Providers, name string) (llm.Provider, error) {
	if name != "" {
		return providers.Get(name)
	}
	return providers.GetDefault()
}

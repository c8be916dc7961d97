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

package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashrun/kash/internal/action"
	"github.com/kashrun/kash/internal/item"
	"github.com/kashrun/kash/internal/param"
	"github.com/kashrun/kash/pkg/llm"
)

type fakeProvider struct {
	name string
	resp llm.CompletionResponse
	err  error
}

func (f *fakeProvider) Name() string              { return f.name }
func (f *fakeProvider) Capabilities() llm.Capabilities { return llm.Capabilities{} }

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	resp := f.resp
	return &resp, nil
}

func (f *fakeProvider) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return nil, errors.New("not implemented")
}

type fakeProviders struct {
	byName  map[string]llm.Provider
	dflt    string
}

func (f *fakeProviders) Get(name string) (llm.Provider, error) {
	p, ok := f.byName[name]
	if !ok {
		return nil, errors.New("provider not found: " + name)
	}
	return p, nil
}

func (f *fakeProviders) GetDefault() (llm.Provider, error) {
	return f.Get(f.dflt)
}

func baseParams() param.TypedValues {
	return param.TypedValues{
		"provider":         "",
		"model":            "claude-haiku",
		"system_message":   "",
		"body_template":    "{body}",
		"check_no_results": true,
		"with_citations":   false,
	}
}

func TestTransform_UsesDefaultProvider(t *testing.T) {
	fake := &fakeProvider{name: "anthropic", resp: llm.CompletionResponse{Content: "rewritten"}}
	providers := &fakeProviders{byName: map[string]llm.Provider{"anthropic": fake}, dflt: "anthropic"}
	ctx := WithProviders(context.Background(), providers)

	ec := &action.ExecContext{Ctx: ctx, Action: transformSpec, Params: baseParams()}
	out, err := transform(ctx, ec, item.Item{Body: "original"})
	require.NoError(t, err)
	assert.Equal(t, "rewritten", out.Body)
}

func TestTransform_MissingProvidersContextErrors(t *testing.T) {
	ec := &action.ExecContext{Ctx: context.Background(), Action: transformSpec, Params: baseParams()}
	_, err := transform(context.Background(), ec, item.Item{Body: "x"})
	assert.Error(t, err)
}

func TestTransform_MissingModelErrors(t *testing.T) {
	fake := &fakeProvider{name: "anthropic", resp: llm.CompletionResponse{Content: "rewritten"}}
	providers := &fakeProviders{byName: map[string]llm.Provider{"anthropic": fake}, dflt: "anthropic"}
	ctx := WithProviders(context.Background(), providers)

	params := baseParams()
	params["model"] = ""
	ec := &action.ExecContext{Ctx: ctx, Action: action.Spec{Name: "llm_transform"}, Params: params}
	_, err := transform(ctx, ec, item.Item{Body: "x"})
	assert.Error(t, err)
}

func TestTransform_ExplicitProviderOverridesDefault(t *testing.T) {
	wanted := &fakeProvider{name: "openai", resp: llm.CompletionResponse{Content: "from openai"}}
	other := &fakeProvider{name: "anthropic", resp: llm.CompletionResponse{Content: "from anthropic"}}
	providers := &fakeProviders{byName: map[string]llm.Provider{"anthropic": other, "openai": wanted}, dflt: "anthropic"}
	ctx := WithProviders(context.Background(), providers)

	params := baseParams()
	params["provider"] = "openai"
	ec := &action.ExecContext{Ctx: ctx, Action: transformSpec, Params: params}
	out, err := transform(ctx, ec, item.Item{Body: "original"})
	require.NoError(t, err)
	assert.Equal(t, "from openai", out.Body)
}

func TestTransform_WithCitationsAppendsFootnotes(t *testing.T) {
	fake := &fakeProvider{name: "anthropic", resp: llm.CompletionResponse{
		Content:   "the answer",
		Citations: []string{"https://example.com"},
	}}
	providers := &fakeProviders{byName: map[string]llm.Provider{"anthropic": fake}, dflt: "anthropic"}
	ctx := WithProviders(context.Background(), providers)

	params := baseParams()
	params["with_citations"] = true
	ec := &action.ExecContext{Ctx: ctx, Action: transformSpec, Params: params}
	out, err := transform(ctx, ec, item.Item{Body: "original"})
	require.NoError(t, err)
	assert.Contains(t, out.Body, "the answer")
	assert.Contains(t, out.Body, "[^1]: https://example.com")
}

func TestTransform_CheckNoResultsNormalizesSentinel(t *testing.T) {
	fake := &fakeProvider{name: "anthropic", resp: llm.CompletionResponse{Content: "(no results)"}}
	providers := &fakeProviders{byName: map[string]llm.Provider{"anthropic": fake}, dflt: "anthropic"}
	ctx := WithProviders(context.Background(), providers)

	ec := &action.ExecContext{Ctx: ctx, Action: transformSpec, Params: baseParams()}
	out, err := transform(ctx, ec, item.Item{Body: "original"})
	require.NoError(t, err)
	assert.Equal(t, "", out.Body)
}

func TestTransform_ProviderErrorPropagates(t *testing.T) {
	fake := &fakeProvider{name: "anthropic", err: errors.New("upstream failure")}
	providers := &fakeProviders{byName: map[string]llm.Provider{"anthropic": fake}, dflt: "anthropic"}
	ctx := WithProviders(context.Background(), providers)

	ec := &action.ExecContext{Ctx: ctx, Action: transformSpec, Params: baseParams()}
	_, err := transform(ctx, ec, item.Item{Body: "original"})
	assert.Error(t, err)
}

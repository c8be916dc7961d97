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
	"fmt"
	"strings"

	pkgerrors "github.com/kashrun/kash/pkg/errors"
)

// CitationList holds source references a provider attached to a
// completion, typically from a web search tool.
type CitationList struct {
	Citations []string
}

// AsMarkdownFootnotes renders the citations as a Markdown footnote
// block, one `[^n]: ...` line per citation in order.
func (c CitationList) AsMarkdownFootnotes() string {
	footnotes := make([]string, len(c.Citations))
	for i, citation := range c.Citations {
		footnotes[i] = fmt.Sprintf("[^%d]: %s", i+1, citation)
	}
	return strings.Join(footnotes, "\n\n")
}

// URLCitations returns the subset of citations that look like URLs.
func (c CitationList) URLCitations() []string {
	var urls []string
	for _, citation := range c.Citations {
		if strings.HasPrefix(citation, "http://") || strings.HasPrefix(citation, "https://") {
			urls = append(urls, citation)
		}
	}
	return urls
}

// NonURLCitations returns the subset of citations that are not URLs.
func (c CitationList) NonURLCitations() []string {
	var rest []string
	for _, citation := range c.Citations {
		if !strings.HasPrefix(citation, "http://") && !strings.HasPrefix(citation, "https://") {
			rest = append(rest, citation)
		}
	}
	return rest
}

// LLMCompletionResult is the normalized result of an llm_completion
// call: the raw provider message plus conveniences for consuming its
// content, citations, and any tool calls the model requested.
type LLMCompletionResult struct {
	Message   Message
	Content   string
	Citations *CitationList
	ToolCalls []ToolCall
}

// ContentWithCitations appends a Markdown footnote block to Content
// when citations are present; otherwise it returns Content unchanged.
func (r LLMCompletionResult) ContentWithCitations() string {
	if r.Citations == nil || len(r.Citations.Citations) == 0 {
		return r.Content
	}
	return r.Content + "\n\n" + r.Citations.AsMarkdownFootnotes()
}

// HasToolCalls reports whether the model requested any tool/function
// invocations.
func (r LLMCompletionResult) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// ToolCallNames returns "name()" for each requested tool call, in order.
func (r LLMCompletionResult) ToolCallNames() []string {
	names := make([]string, len(r.ToolCalls))
	for i, call := range r.ToolCalls {
		names[i] = call.Name + "()"
	}
	return names
}

// CompletionOptions configures an llm_completion call beyond the
// model and message list.
type CompletionOptions struct {
	// SaveObjects requests that the caller persist the resulting chat
	// turn (the sdk/action layer, not this package, owns persistence).
	SaveObjects bool

	// ResponseFormat is passed through to the provider when it
	// supports structured output; nil means free-form text.
	ResponseFormat map[string]interface{}

	// Tools lists functions the model may call.
	Tools []Tool

	// EnableWebSearch requests provider-native web search, when the
	// provider and model support it.
	EnableWebSearch bool
}

// Complete runs a single completion against p and normalizes the
// result into an LLMCompletionResult. An empty or non-string content
// body is treated as a provider failure, not a valid empty answer.
func Complete(ctx context.Context, p Provider, model string, messages []Message, opts CompletionOptions) (*LLMCompletionResult, error) {
	req := CompletionRequest{
		Model:    model,
		Messages: messages,
		Tools:    opts.Tools,
	}

	resp, err := p.Complete(ctx, req)
	if err != nil {
		return nil, &pkgerrors.ApiResultError{Provider: p.Name(), Message: err.Error()}
	}

	if resp.Content == "" {
		return nil, &pkgerrors.ApiResultError{
			Provider: p.Name(),
			Message:  fmt.Sprintf("llm completion returned empty content: model=%s", model),
		}
	}

	var citations *CitationList
	if len(resp.Citations) > 0 {
		citations = &CitationList{Citations: resp.Citations}
	}

	return &LLMCompletionResult{
		Message: Message{
			Role:      MessageRoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		},
		Content:   resp.Content,
		Citations: citations,
		ToolCalls: resp.ToolCalls,
	}, nil
}

// MessageTemplate is a completion prompt with a single "{body}"
// placeholder, filled in by TemplateCompletion before the system and
// user messages are sent to the provider.
type MessageTemplate string

// Format substitutes body into the template's "{body}" placeholder.
func (t MessageTemplate) Format(body string) string {
	return strings.ReplaceAll(string(t), "{body}", body)
}

// TemplateCompletionOptions configures TemplateCompletion.
type TemplateCompletionOptions struct {
	// BodyTemplate wraps the input before it becomes the user message.
	// Defaults to "{body}" (the input verbatim) when empty.
	BodyTemplate MessageTemplate

	// PreviousMessages are inserted between the system message and the
	// templated user message, e.g. earlier turns of a conversation.
	PreviousMessages []Message

	// CheckNoResults normalizes a response matching IsNoResults to an
	// empty string rather than returning the sentinel text.
	CheckNoResults bool

	CompletionOptions
}

// TemplateCompletion fills a MessageTemplate with the given input as
// its body, sends it as the user message following systemMessage, and
// delegates to Complete. With CheckNoResults set, a response matching
// IsNoResults is normalized to an empty Content string.
func TemplateCompletion(ctx context.Context, p Provider, model string, systemMessage, input string, opts TemplateCompletionOptions) (*LLMCompletionResult, error) {
	if systemMessage == "" {
		return nil, &pkgerrors.InvalidInputError{Field: "systemMessage", Message: "llm_template_completion requires a system message"}
	}

	bodyTemplate := opts.BodyTemplate
	if bodyTemplate == "" {
		bodyTemplate = "{body}"
	}
	userMessage := bodyTemplate.Format(input)

	messages := make([]Message, 0, len(opts.PreviousMessages)+2)
	messages = append(messages, Message{Role: MessageRoleSystem, Content: systemMessage})
	messages = append(messages, opts.PreviousMessages...)
	messages = append(messages, Message{Role: MessageRoleUser, Content: userMessage})

	result, err := Complete(ctx, p, model, messages, opts.CompletionOptions)
	if err != nil {
		return nil, err
	}

	if opts.CheckNoResults && IsNoResults(result.Content) {
		result.Content = ""
	}
	return result, nil
}

// IsNoResults matches the case-insensitive "(no results)" sentinel
// that provider prompts use to signal an intentionally empty answer.
func IsNoResults(content string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(content))
	return trimmed == "(no results)"
}

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

package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kashrun/kash/internal/action"
	"github.com/kashrun/kash/internal/param"
	"github.com/kashrun/kash/sdk"
)

// primaryContentLimit is the number of body bytes of an action's first
// output item included in a tool result before truncation, per spec.md
// §6 ("the primary output file's content (truncated beyond the first
// item)").
const primaryContentLimit = 8192

// registerActionTools publishes one MCP tool per action in reg whose
// Spec().MCPTool is true, per spec.md §6: "Actions marked mcp_tool=true
// are published as tools." Each tool's input schema is assembled by
// internal/param.ToolInputSchema; its handler runs the action through
// s.sdk and renders the result as a single TextContent.
func (s *Server) registerActionTools(reg *action.Registry) {
	for _, spec := range publishableActionSpecs(reg) {
		properties, required := param.ToolInputSchema(spec.Params)
		tool := mcp.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: properties,
				Required:   required,
			},
		}

		s.mcpServer.AddTool(tool, s.createActionHandler(spec))
	}
}

// publishableActionSpecs returns the Spec of every action in reg with
// MCPTool set, the set registerActionTools publishes as MCP tools.
func publishableActionSpecs(reg *action.Registry) []action.Spec {
	all := reg.All()
	specs := make([]action.Spec, 0, len(all))
	for _, act := range all {
		if spec := act.Spec(); spec.MCPTool {
			specs = append(specs, spec)
		}
	}
	return specs
}

// createActionHandler builds the MCP tool handler for one action. The
// handler never returns a non-nil error to mcp-go: every failure,
// including a recovered panic, is rendered as text content instead, per
// spec.md §6 ("Errors are returned as text, not protocol-level errors").
func (s *Server) createActionHandler(spec action.Spec) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (result *mcp.CallToolResult, handlerErr error) {
		defer func() {
			if r := recover(); r != nil {
				result = errorResponse(fmt.Sprintf("action %q panicked: %v", spec.Name, r))
				handlerErr = nil
			}
		}()

		if !s.rateLimiter.AllowCall() {
			return errorResponse("Rate limit exceeded. Please try again later."), nil
		}
		if !s.rateLimiter.AllowRun() {
			return errorResponse(fmt.Sprintf("Rate limit exceeded for running action %q. Please try again later.", spec.Name)), nil
		}

		args := request.GetArguments()

		var inputs []sdk.Input
		if raw, ok := args["items"].([]interface{}); ok {
			for _, v := range raw {
				if locator, ok := v.(string); ok {
					inputs = append(inputs, sdk.FromLocator(locator))
				}
			}
		}

		params := param.RawValues{}
		for name := range spec.Params {
			if v, present := args[name]; present {
				params[name] = v
			}
		}

		var actionResult action.ActionResult
		lines, err := captureLogs(func() error {
			var runErr error
			actionResult, runErr = s.sdk.Run(ctx, spec.Name, inputs, sdk.RunOptions{Params: params, SaveResults: true})
			return runErr
		})
		if err != nil {
			s.logger.Error("action tool call failed", "action", spec.Name, "error", err)
			return errorResponse(renderToolText(fmt.Sprintf("action %q failed: %v", spec.Name, err), "", lines)), nil
		}

		summary := fmt.Sprintf("%s: produced %d item(s)", spec.Name, len(actionResult.Items))
		var primary string
		if len(actionResult.Items) > 0 {
			primary = truncateContent(actionResult.Items[0].Body, primaryContentLimit)
		}

		return textResponse(renderToolText(summary, primary, lines)), nil
	}
}

// renderToolText assembles summary, the primary output's content, and
// captured log lines into the single TextContent body spec.md §6
// describes an MCP tool call as returning.
func renderToolText(summary, primary string, lines []string) string {
	var b strings.Builder
	b.WriteString(summary)

	if primary != "" {
		b.WriteString("\n\n")
		b.WriteString(primary)
	}

	if len(lines) > 0 {
		b.WriteString("\n\n--- logs ---\n")
		b.WriteString(strings.Join(lines, "\n"))
	}

	return b.String()
}

// truncateContent caps body at limit bytes, appending a marker so the
// truncation isn't mistaken for the item's actual end.
func truncateContent(body string, limit int) string {
	if len(body) <= limit {
		return body
	}
	return body[:limit] + "\n... (truncated)"
}

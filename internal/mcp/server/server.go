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

// Package server implements kash's MCP tool surface: one MCP tool per
// action registered with Spec().MCPTool == true, per spec.md §6.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kashrun/kash/internal/action"
	"github.com/kashrun/kash/sdk"
)

// Server wraps the MCP server and publishes kash actions as tools.
type Server struct {
	mcpServer   *server.MCPServer
	name        string
	version     string
	rateLimiter *RateLimiter
	logger      *slog.Logger
	sdk         *sdk.SDK
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	// Name is the server name (default: "kash").
	Name string

	// Version is the kash build version.
	Version string

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string

	// Actions is the registry to draw MCP-published tools from. Every
	// action with Spec().MCPTool == true gets one tool.
	Actions *action.Registry

	// SDK is the library handle each tool's handler calls sdk.Run
	// through. Required whenever Actions is non-nil.
	SDK *sdk.SDK
}

// createLogger creates a logger with the specified log level.
// Writes to stderr to avoid interfering with MCP stdio protocol.
func createLogger(levelStr string) (*slog.Logger, error) {
	var level slog.Level

	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", levelStr)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler), nil
}

// NewServer creates a new MCP server instance.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Name == "" {
		config.Name = "kash"
	}
	if config.Version == "" {
		config.Version = "dev"
	}

	logger, err := createLogger(config.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	mcpServer := server.NewMCPServer(config.Name, config.Version)

	rateLimiter := NewRateLimiter(10, 100)

	s := &Server{
		mcpServer:   mcpServer,
		name:        config.Name,
		version:     config.Version,
		rateLimiter: rateLimiter,
		logger:      logger,
		sdk:         config.SDK,
	}

	if config.Actions != nil {
		if config.SDK == nil {
			return nil, fmt.Errorf("mcp server: Actions set without an SDK to run them against")
		}
		s.registerActionTools(config.Actions)
	}

	return s, nil
}

// Run starts the MCP server using stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting kash MCP server", slog.String("version", s.version))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down kash MCP server")
	// the mcp-go server doesn't expose an explicit shutdown method;
	// returning from ServeStdio is sufficient.
	return nil
}

// errorResponse creates an MCP tool result carrying an error as text
// content rather than a protocol-level error.
func errorResponse(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

// textResponse creates a successful MCP tool result with one text block.
func textResponse(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

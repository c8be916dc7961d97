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

package mcpserver

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kashrun/kash/internal/commands/shared"
	"github.com/kashrun/kash/internal/mcp/server"
	"github.com/kashrun/kash/sdk"
)

// NewCommand creates the mcpserver command.
func NewCommand() *cobra.Command {
	var (
		logLevel string
		wsRoot   string
	)

	cmd := &cobra.Command{
		Use:   "mcpserver",
		Short: "Start the kash MCP server",
		Long: `Start the kash MCP (Model Context Protocol) server.

The MCP server publishes every registered kash action marked mcp_tool=true
as an MCP tool, so AI coding assistants (Claude Code, Cursor, Gemini CLI)
can invoke them directly against a kash workspace.

The server runs in stdio mode, suitable for integration with AI assistants
via their MCP configuration:

  {
    "mcpServers": {
      "kash": {
        "command": "kash",
        "args": ["mcpserver"]
      }
    }
  }

Invoking a tool runs the underlying action and returns a human-readable
summary, the first output item's content, and the run's captured log
lines as a single text result. Errors are returned as text, never as
protocol-level errors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCPServer(cmd, logLevel, wsRoot)
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Logging verbosity (debug, info, warn, error)")
	cmd.Flags().StringVar(&wsRoot, "ws", "", "Workspace root (default: KASH_WS_ROOT or the current directory)")

	return cmd
}

func runMCPServer(cmd *cobra.Command, logLevel, wsRoot string) error {
	versionStr, _, _ := shared.GetVersion()

	kash, err := sdk.Init(sdk.WithWorkspaceDir(wsRoot), sdk.WithLogLevel(logLevel))
	if err != nil {
		return fmt.Errorf("failed to initialize kash: %w", err)
	}

	config := server.ServerConfig{
		Name:     "kash",
		Version:  versionStr,
		LogLevel: logLevel,
		Actions:  kash.Actions(),
		SDK:      kash,
	}

	srv, err := server.NewServer(config)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived shutdown signal, shutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}

		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}

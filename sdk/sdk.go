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

package sdk

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kashrun/kash/internal/action"
	"github.com/kashrun/kash/internal/log"
	"github.com/kashrun/kash/internal/precondition"
	"github.com/kashrun/kash/internal/registry"
	"github.com/kashrun/kash/internal/store"
	"github.com/kashrun/kash/pkg/llm"
	"github.com/kashrun/kash/pkg/llm/providers"
)

// Config holds kash_init's resolved configuration. Zero value plus
// applied Options is the config Init builds before opening the store.
type Config struct {
	// WorkspaceDir is the workspace root to open. Empty means fall back to
	// the KASH_WS_ROOT environment variable, then the current directory.
	WorkspaceDir string

	// LogLevel overrides the log level that internal/log.FromEnv would
	// otherwise resolve (debug, info, warn, error). Empty means defer to
	// the environment.
	LogLevel string

	// Quiet discards log output entirely, for callers embedding kash as a
	// library inside their own process.
	Quiet bool
}

// Option configures Init. Options are applied in order, so a later
// Option overrides an earlier one.
type Option func(*Config)

// WithWorkspaceDir sets the workspace root to open.
func WithWorkspaceDir(dir string) Option {
	return func(c *Config) { c.WorkspaceDir = dir }
}

// WithLogLevel overrides the resolved log level.
func WithLogLevel(level string) Option {
	return func(c *Config) { c.LogLevel = level }
}

// WithQuiet discards log output when quiet is true.
func WithQuiet(quiet bool) Option {
	return func(c *Config) { c.Quiet = quiet }
}

// SDK is an open handle on a workspace: its store, the action and
// precondition registries every Run call resolves against, and the LLM
// provider registry component L's completion wrapper calls into.
type SDK struct {
	store         *store.Store
	actions       *action.Registry
	preconditions *precondition.Registry
	providers     *llm.Registry
	logger        *slog.Logger
}

// Init implements kash_init(workspace_dir?, log_level, quiet): it opens
// (or initializes, via store.Open) the workspace, wires every built-in
// action and precondition via internal/registry.RegisterAll, and installs
// a logger built from the resolved Config over internal/log.
func Init(opts ...Option) (*SDK, error) {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	logCfg := log.FromEnv()
	if cfg.LogLevel != "" {
		logCfg.Level = cfg.LogLevel
	}
	if cfg.Quiet {
		logCfg.Output = io.Discard
	}
	logger := log.New(logCfg)
	slog.SetDefault(logger)

	dir := cfg.WorkspaceDir
	if dir == "" {
		dir = os.Getenv("KASH_WS_ROOT")
	}
	if dir == "" {
		dir = "."
	}

	st, err := store.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("kash: opening workspace %q: %w", dir, err)
	}

	actions := action.NewRegistry()
	preconditions := precondition.NewRegistry()
	registry.RegisterAll(actions, preconditions)

	providerRegistry := llm.NewRegistry()
	registerConfiguredProviders(providerRegistry, logger)

	return &SDK{store: st, actions: actions, preconditions: preconditions, providers: providerRegistry, logger: logger}, nil
}

// registerConfiguredProviders activates an LLM provider for every API key
// found in the environment, following spec.md §4.L/§17.2: a provider-specific
// variable (ANTHROPIC_API_KEY) or its KASH_-prefixed override
// (KASH_ANTHROPIC_API_KEY) takes precedence over the prefixed form. The
// first provider registered becomes the default; callers can override it
// with reg.SetDefault.
func registerConfiguredProviders(reg *llm.Registry, logger *slog.Logger) {
	type candidate struct {
		name   string
		envVar string
		build  func(apiKey string) (llm.Provider, error)
	}

	candidates := []candidate{
		{"anthropic", "ANTHROPIC_API_KEY", func(key string) (llm.Provider, error) { return providers.NewAnthropicProvider(key) }},
		{"openai", "OPENAI_API_KEY", func(key string) (llm.Provider, error) { return providers.NewOpenAIProvider(key) }},
	}

	for _, c := range candidates {
		apiKey := os.Getenv(c.envVar)
		if apiKey == "" {
			apiKey = os.Getenv("KASH_" + c.envVar)
		}
		if apiKey == "" {
			continue
		}

		p, err := c.build(apiKey)
		if err != nil {
			logger.Warn("skipping llm provider with invalid configuration", "provider", c.name, "error", err)
			continue
		}
		if err := reg.Register(p); err != nil {
			logger.Warn("failed to register llm provider", "provider", c.name, "error", err)
			continue
		}
		if _, err := reg.GetDefault(); err != nil {
			_ = reg.SetDefault(c.name)
		}
	}

	if baseURL := os.Getenv("KASH_OLLAMA_BASE_URL"); baseURL != "" {
		if p, err := providers.NewOllamaProvider(baseURL); err != nil {
			logger.Warn("skipping ollama provider with invalid configuration", "error", err)
		} else if err := reg.Register(p); err != nil {
			logger.Warn("failed to register ollama provider", "error", err)
		} else if _, err := reg.GetDefault(); err != nil {
			_ = reg.SetDefault("ollama")
		}
	}
}

// Store returns the workspace store backing this SDK instance.
func (s *SDK) Store() *store.Store { return s.store }

// Actions returns the registry of actions this SDK instance resolves
// Run's action_name argument against.
func (s *SDK) Actions() *action.Registry { return s.actions }

// Preconditions returns the registry of preconditions available to
// actions resolved through this SDK instance.
func (s *SDK) Preconditions() *precondition.Registry { return s.preconditions }

// Logger returns the logger Init installed as the process default.
func (s *SDK) Logger() *slog.Logger { return s.logger }

// Providers returns the LLM provider registry activated from the
// environment. Actions resolve it through action.ExecContext; see
// internal/actions/llm.
func (s *SDK) Providers() *llm.Registry { return s.providers }

// ABOUTME: Loads .bytecraft/config.yaml and resolves model aliases.
// ABOUTME: File values are defaults; env vars and flags override them.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bytecraft-dev/bytecraft/fidelity"
)

const (
	stateDirName   = ".bytecraft"
	configFileName = "config.yaml"
)

// ConfigError reports missing or malformed configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// fileConfig is the on-disk configuration shape.
type fileConfig struct {
	Model     string            `yaml:"model"`
	BaseURL   string            `yaml:"base_url"`
	APIKeyEnv string            `yaml:"api_key_env"`
	Streaming *bool             `yaml:"streaming"`
	Aliases   map[string]string `yaml:"models"`
	Context   *fidelity.Config  `yaml:"context"`
}

// appConfig is the resolved runtime configuration.
type appConfig struct {
	Model     string
	BaseURL   string
	APIKeyEnv string
	Streaming bool
	Aliases   map[string]string
	Context   fidelity.Config
}

func defaultAppConfig() appConfig {
	return appConfig{
		Model:     "gpt-4.1-mini",
		APIKeyEnv: "OPENAI_API_KEY",
		Streaming: true,
		Aliases: map[string]string{
			"fast":  "gpt-4.1-mini",
			"smart": "gpt-4.1",
			"mini":  "gpt-4.1-nano",
		},
		Context: fidelity.DefaultConfig(),
	}
}

// loadConfig reads the state-dir config file when present and overlays it on
// the defaults. A missing file is not an error.
func loadConfig(stateDir string) (appConfig, error) {
	cfg := defaultAppConfig()
	path := filepath.Join(stateDir, configFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, &ConfigError{Path: path, Err: err}
	}

	// Pre-seed the context section so partial overrides keep the defaults.
	var fc fileConfig
	seeded := cfg.Context
	fc.Context = &seeded
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, &ConfigError{Path: path, Err: err}
	}

	if fc.Model != "" {
		cfg.Model = fc.Model
	}
	if fc.BaseURL != "" {
		cfg.BaseURL = fc.BaseURL
	}
	if fc.APIKeyEnv != "" {
		cfg.APIKeyEnv = fc.APIKeyEnv
	}
	if fc.Streaming != nil {
		cfg.Streaming = *fc.Streaming
	}
	for alias, model := range fc.Aliases {
		cfg.Aliases[alias] = model
	}
	if fc.Context != nil {
		cfg.Context = *fc.Context
		if err := cfg.Context.Validate(); err != nil {
			return cfg, &ConfigError{Path: path, Err: err}
		}
	}
	return cfg, nil
}

// resolveModel maps an alias through the alias table, passing through
// anything that is not an alias.
func (c appConfig) resolveModel(nameOrAlias string) string {
	if model, ok := c.Aliases[nameOrAlias]; ok {
		return model
	}
	return nameOrAlias
}

// ABOUTME: Tests for config file loading, overlay semantics, and alias resolution.

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Model != "gpt-4.1-mini" {
		t.Errorf("default model = %q", cfg.Model)
	}
	if cfg.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("default api key env = %q", cfg.APIKeyEnv)
	}
	if !cfg.Streaming {
		t.Error("streaming should default on")
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`
model: my-model
base_url: http://localhost:8080/v1
streaming: false
models:
  fast: my-fast-model
  local: llama
context:
  max_messages: 50
  max_tokens: 4000
  max_bytes: 131072
  max_lines: 2000
  min_recent_messages: 3
`)
	if err := os.WriteFile(filepath.Join(dir, configFileName), data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(dir)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Model != "my-model" {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.Streaming {
		t.Error("streaming should be disabled by file")
	}
	// File aliases overlay the defaults without wiping them.
	if cfg.Aliases["fast"] != "my-fast-model" {
		t.Errorf("fast alias = %q", cfg.Aliases["fast"])
	}
	if cfg.Aliases["local"] != "llama" {
		t.Errorf("local alias = %q", cfg.Aliases["local"])
	}
	if cfg.Aliases["smart"] == "" {
		t.Error("default smart alias should survive the overlay")
	}
	if cfg.Context.MaxTokens != 4000 {
		t.Errorf("context max tokens = %d", cfg.Context.MaxTokens)
	}
}

func TestLoadConfigRejectsInvalidContext(t *testing.T) {
	dir := t.TempDir()
	data := []byte("context:\n  max_messages: -1\n")
	if err := os.WriteFile(filepath.Join(dir, configFileName), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(dir); err == nil {
		t.Fatal("expected validation error for negative max_messages")
	}
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte("model: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestResolveModel(t *testing.T) {
	cfg := defaultAppConfig()
	if got := cfg.resolveModel("fast"); got != "gpt-4.1-mini" {
		t.Errorf("fast -> %q", got)
	}
	if got := cfg.resolveModel("gpt-4o"); got != "gpt-4o" {
		t.Errorf("non-alias should pass through, got %q", got)
	}
}

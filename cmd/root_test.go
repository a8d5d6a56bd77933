package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newTestViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()

	v := viper.New()
	setDefaults(v)
	if yaml != "" {
		v.SetConfigType("yaml")
		if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
			t.Fatalf("read config: %v", err)
		}
	}
	return v
}

func TestDecodeConfigDefaults(t *testing.T) {
	cfg, err := decodeConfig(newTestViper(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Matching.MaxResults != 20 || cfg.Matching.Workers != 4 {
		t.Fatalf("unexpected matching defaults: %+v", cfg.Matching)
	}
	if cfg.Explain.Enabled || cfg.Explain.Provider != "gemini" || cfg.Explain.Timeout != 30*time.Second {
		t.Fatalf("unexpected explain defaults: %+v", cfg.Explain)
	}
	if cfg.Explain.Gemini.Model != "gemini-2.5-flash" || cfg.Explain.Gemini.MaxRetries != 3 {
		t.Fatalf("unexpected gemini defaults: %+v", cfg.Explain.Gemini)
	}
	if cfg.Serve.ListenAddr != ":8080" || cfg.Serve.RunTimeout != 2*time.Minute {
		t.Fatalf("unexpected serve defaults: %+v", cfg.Serve)
	}
}

func TestDecodeConfigFromYAML(t *testing.T) {
	cfg, err := decodeConfig(newTestViper(t, `
database:
  url: postgres://localhost/intro
  max-conns: 4
matching:
  workers: 8
explain:
  enabled: true
  provider: OpenAI
  min-stars: 3
  timeout: 5s
  tone: Concise
  openai:
    model: gpt-4o
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.URL != "postgres://localhost/intro" || cfg.Database.MaxConns != 4 {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Explain.Provider != "openai" {
		t.Fatalf("expected provider to be normalized, got %q", cfg.Explain.Provider)
	}
	if cfg.Explain.MinStars != 3 || cfg.Explain.Timeout != 5*time.Second || cfg.Explain.Tone != "Concise" {
		t.Fatalf("unexpected explain config: %+v", cfg.Explain)
	}
	if cfg.Explain.OpenAI.Model != "gpt-4o" || cfg.Matching.Workers != 8 || cfg.Matching.MaxResults != 20 {
		t.Fatalf("expected yaml values merged over defaults: %+v %+v", cfg.Explain.OpenAI, cfg.Matching)
	}
}

func TestDecodeConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{name: "unknown provider", yaml: "explain:\n  provider: claude\n", field: "Provider"},
		{name: "too many stars", yaml: "explain:\n  min-stars: 4\n", field: "MinStars"},
		{name: "negative workers", yaml: "matching:\n  workers: -1\n", field: "Workers"},
		{name: "empty listen address", yaml: "serve:\n  listen-addr: \"\"\n", field: "ListenAddr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := decodeConfig(newTestViper(t, tt.yaml))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), "invalid config") || !strings.Contains(err.Error(), tt.field) {
				t.Fatalf("expected error to name %s, got %v", tt.field, err)
			}
		})
	}
}

func TestDatabaseURLPrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "url")
	if err := os.WriteFile(path, []byte("postgres://from-file\n"), 0o600); err != nil {
		t.Fatalf("write url file: %v", err)
	}

	got, err := databaseURL(&DatabaseConfig{URL: "postgres://inline", URLFile: path})
	if err != nil || got != "postgres://from-file" {
		t.Fatalf("expected file url, got %q, %v", got, err)
	}

	if _, err := databaseURL(&DatabaseConfig{}); err == nil {
		t.Fatalf("expected error without any url")
	}
}

func TestNewExplainer(t *testing.T) {
	ctx := context.Background()

	explainer, err := newExplainer(ctx, &ExplainConfig{Enabled: false}, zap.NewNop())
	if err != nil || explainer != nil {
		t.Fatalf("expected no explainer when disabled, got %v, %v", explainer, err)
	}

	keyFile := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(keyFile, []byte("sk-test"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	explainer, err = newExplainer(ctx, &ExplainConfig{
		Enabled:  true,
		Provider: "openai",
		OpenAI:   &OpenAIConfig{APIKeyFile: keyFile, Model: "gpt-4o-mini"},
		Gemini:   &GeminiConfig{},
	}, zap.NewNop())
	if err != nil || explainer == nil {
		t.Fatalf("expected openai explainer, got %v, %v", explainer, err)
	}

	_, err = newExplainer(ctx, &ExplainConfig{
		Enabled:  true,
		Provider: "openai",
		OpenAI:   &OpenAIConfig{APIKeyFile: filepath.Join(t.TempDir(), "missing")},
		Gemini:   &GeminiConfig{},
	}, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY_FILE") {
		t.Fatalf("expected missing key hint, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := out.String(); got != "intro-matcher version: unknown\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

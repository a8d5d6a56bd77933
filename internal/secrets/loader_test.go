package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	t.Setenv("INTRO_MATCHER_TEST_KEY", " from-env ")

	tests := []struct {
		name    string
		src     Source
		expect  string
		wantErr string
	}{
		{name: "file wins", src: Source{File: keyFile, Env: "INTRO_MATCHER_TEST_KEY", Value: "inline"}, expect: "from-file"},
		{name: "env over inline", src: Source{Env: "INTRO_MATCHER_TEST_KEY", Value: "inline"}, expect: "from-env"},
		{name: "unset env falls back to inline", src: Source{Env: "INTRO_MATCHER_UNSET", Value: " inline "}, expect: "inline"},
		{name: "empty file", src: Source{Name: "gemini api key", File: emptyFile}, wantErr: "gemini api key file"},
		{name: "missing file", src: Source{File: filepath.Join(dir, "missing")}, wantErr: "reading secret from file"},
		{name: "nothing configured", src: Source{Name: "database url"}, wantErr: "database url is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestSourceConfigured(t *testing.T) {
	if (Source{Name: "x"}).Configured() {
		t.Fatalf("expected name-only source to be unconfigured")
	}
	if !(Source{Env: "KEY"}).Configured() {
		t.Fatalf("expected env source to be configured")
	}
}

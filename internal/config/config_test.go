package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("TEST_API_KEY", "secret123")
	t.Setenv("OTHER_VAR", "other")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple var", "${TEST_API_KEY}", "secret123"},
		{"embedded var", "key-${TEST_API_KEY}-suffix", "key-secret123-suffix"},
		{"multiple vars", "${TEST_API_KEY}:${OTHER_VAR}", "secret123:other"},
		{"no vars", "plain-string", "plain-string"},
		{"empty string", "", ""},
		{"unset var", "${UNSET_VAR_XYZ}", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveEnvVars(tt.input); got != tt.want {
				t.Errorf("ResolveEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Provider.Type != "gemini" {
		t.Errorf("default provider = %q, want gemini", cfg.Provider.Type)
	}
	if cfg.Pipeline.MaxRetries != 5 {
		t.Errorf("max retries = %d, want 5", cfg.Pipeline.MaxRetries)
	}
	if cfg.Pipeline.BaseDelaySeconds != 6 || cfg.Pipeline.PageDelaySeconds != 6 {
		t.Errorf("delays = %d/%d, want 6/6", cfg.Pipeline.BaseDelaySeconds, cfg.Pipeline.PageDelaySeconds)
	}
	if cfg.Pipeline.CheckpointEvery != 10 {
		t.Errorf("checkpoint cadence = %d, want 10", cfg.Pipeline.CheckpointEvery)
	}
	if cfg.Pipeline.SweepAttempts != 1 {
		t.Errorf("sweep attempts = %d, want 1", cfg.Pipeline.SweepAttempts)
	}
	if cfg.Pipeline.DPI != 300 {
		t.Errorf("dpi = %d, want 300", cfg.Pipeline.DPI)
	}
	if len(cfg.Output.Formats) != 1 || cfg.Output.Formats[0] != "docx" {
		t.Errorf("default formats = %v", cfg.Output.Formats)
	}
}

func TestAPIKeyResolution(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "live-key")

	cfg := DefaultConfig()
	if got := cfg.APIKey(); got != "live-key" {
		t.Errorf("APIKey() = %q, want resolved env value", got)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	if !strings.HasPrefix(content, "# Scanpress configuration") {
		t.Error("written config missing header comment")
	}
	for _, want := range []string{"provider:", "pipeline:", "output:", "${GEMINI_API_KEY}", "max_retries: 5"} {
		if !strings.Contains(content, want) {
			t.Errorf("written config missing %q", want)
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	path := Path(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Audit.Enabled || cfg.Audit.MaxBytes != 1_000_000 || cfg.Audit.MaxFiles != 3 {
		t.Errorf("unexpected audit defaults: %+v", cfg.Audit)
	}
	if cfg.Approval.Mode != "prompt" {
		t.Errorf("expected approval mode prompt, got %q", cfg.Approval.Mode)
	}
	if cfg.LLM.Provider != "mock" || cfg.LLM.TimeoutMs != 20000 || cfg.LLM.MaxRetries != 2 || cfg.LLM.RetryDelayMs != 600 {
		t.Errorf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Audit.File != filepath.Join(".sentinex", "audit.jsonl") {
		t.Fatalf("unexpected audit file %q", cfg.Audit.File)
	}
}

func TestLoad_CamelCaseKeys(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `version: 1
audit:
  enabled: false
  file: "logs/audit.jsonl"
  maxBytes: 500
  maxFiles: 0
approval:
  mode: "auto-deny"
llm:
  provider: "openai"
  fallbackToMock: true
  model: "gpt-4.1-mini"
  apiKeyEnv: "MY_KEY"
  timeoutMs: 1500
  maxRetries: 4
  retryDelayMs: 10
  dryRunDefault: true
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Audit.Enabled || cfg.Audit.MaxBytes != 500 || cfg.Audit.MaxFiles != 0 {
		t.Fatalf("unexpected audit config: %+v", cfg.Audit)
	}
	if cfg.Approval.Mode != "auto-deny" {
		t.Fatalf("unexpected approval mode %q", cfg.Approval.Mode)
	}
	if !cfg.LLM.FallbackToMock || cfg.LLM.APIKeyEnv != "MY_KEY" || cfg.LLM.TimeoutMs != 1500 || cfg.LLM.MaxRetries != 4 {
		t.Fatalf("unexpected llm config: %+v", cfg.LLM)
	}
	if !cfg.LLM.DryRunDefault {
		t.Fatal("expected dryRunDefault true")
	}
	if cfg.LLM.BaseURL != "https://api.openai.com/v1" {
		t.Fatalf("expected default base url to survive, got %q", cfg.LLM.BaseURL)
	}
	if got := cfg.AuditPath(dir); got != filepath.Join(dir, "logs", "audit.jsonl") {
		t.Fatalf("unexpected audit path %q", got)
	}
}

func TestLoad_KeySpellings(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"camelCase", "audit:\n  maxBytes: 500\n  maxFiles: 7\nllm:\n  timeoutMs: 1234\n"},
		{"snake_case", "audit:\n  max_bytes: 500\n  max_files: 7\nllm:\n  timeout_ms: 1234\n"},
		{"kebab-case", "audit:\n  max-bytes: 500\n  max-files: 7\nllm:\n  timeout-ms: 1234\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "version: 1\n"+tt.body)

			// Map iteration order varies between loads; every load must agree.
			for i := 0; i < 16; i++ {
				cfg, err := Load(dir)
				if err != nil {
					t.Fatalf("Load error: %v", err)
				}
				if cfg.Audit.MaxBytes != 500 || cfg.Audit.MaxFiles != 7 || cfg.LLM.TimeoutMs != 1234 {
					t.Fatalf("load %d: maxBytes=%d maxFiles=%d timeoutMs=%d",
						i, cfg.Audit.MaxBytes, cfg.Audit.MaxFiles, cfg.LLM.TimeoutMs)
				}
			}
		})
	}
}

func TestLoad_EnvOverridesKebabCaseFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "version: 1\nllm:\n  timeout-ms: 1234\n")
	t.Setenv("SENTINEX_LLM_TIMEOUTMS", "999")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LLM.TimeoutMs != 999 {
		t.Fatalf("expected env to win, got %d", cfg.LLM.TimeoutMs)
	}
}

func TestLoad_RejectsDuplicateSpellings(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "version: 1\naudit:\n  maxFiles: 2\n  max-files: 7\n")

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected duplicate key error")
	}
	if !strings.Contains(err.Error(), "duplicate config key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "version: 1\napproval:\n  mode: prompt\n")
	t.Setenv("SENTINEX_APPROVAL_MODE", "auto-approve")
	t.Setenv("SENTINEX_LLM_MAXRETRIES", "5")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Approval.Mode != "auto-approve" {
		t.Fatalf("expected env override, got %q", cfg.Approval.Mode)
	}
	if cfg.LLM.MaxRetries != 5 {
		t.Fatalf("expected maxRetries 5 from env, got %d", cfg.LLM.MaxRetries)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad version", "version: 2\n", "version must be 1"},
		{"bad mode", "version: 1\napproval:\n  mode: maybe\n", "approval.mode must be one of"},
		{"bad provider", "version: 1\nllm:\n  provider: gemini\n", "llm.provider must be one of"},
		{"zero timeout", "version: 1\nllm:\n  timeoutMs: 0\n", "llm.timeout_ms must be > 0"},
		{"negative retries", "version: 1\nllm:\n  maxRetries: -1\n", "llm.max_retries must be >= 0"},
		{"zero audit bytes", "version: 1\naudit:\n  maxBytes: 0\n", "audit.max_bytes must be > 0"},
		{"bad log level", "version: 1\nlog:\n  level: loud\n", "log.level must be one of"},
		{"remote without key env", "version: 1\nllm:\n  provider: claude\n  apiKeyEnv: \"\"\n", "api_key_env is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.body)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

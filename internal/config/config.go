package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt instructs remote models to answer with a plan.
const DefaultSystemPrompt = `Return JSON only. Build an action plan with shape: {"actions": [...]}.`

// Config root configuration
type Config struct {
	Version  int            `mapstructure:"version" validate:"eq=1"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Approval ApprovalConfig `mapstructure:"approval"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AuditConfig audit trail settings
type AuditConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	File     string `mapstructure:"file" validate:"required"`
	MaxBytes int64  `mapstructure:"max_bytes" validate:"gt=0"`
	MaxFiles int    `mapstructure:"max_files" validate:"gte=0"`
}

// ApprovalConfig approval gate settings
type ApprovalConfig struct {
	Mode string `mapstructure:"mode" validate:"oneof=prompt auto-approve auto-deny"`
}

// LLMConfig provider settings
type LLMConfig struct {
	Provider       string `mapstructure:"provider" validate:"oneof=mock openai claude ollama"`
	FallbackToMock bool   `mapstructure:"fallback_to_mock"`
	Model          string `mapstructure:"model" validate:"required_unless=Provider mock"`
	BaseURL        string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKeyEnv      string `mapstructure:"api_key_env"`
	SystemPrompt   string `mapstructure:"system_prompt"`
	MaxTokens      int    `mapstructure:"max_tokens" validate:"gt=0"`
	TimeoutMs      int    `mapstructure:"timeout_ms" validate:"gt=0"`
	MaxRetries     int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelayMs   int    `mapstructure:"retry_delay_ms" validate:"gte=0"`
	DryRunDefault  bool   `mapstructure:"dry_run_default"`
}

// LogConfig application logging settings
type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	File  string `mapstructure:"file"`
}

// MetricsConfig optional Prometheus textfile output
type MetricsConfig struct {
	File string `mapstructure:"file"`
}

// DefaultConfig returns config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Audit: AuditConfig{
			Enabled:  true,
			File:     filepath.Join(".sentinex", "audit.jsonl"),
			MaxBytes: 1_000_000,
			MaxFiles: 3,
		},
		Approval: ApprovalConfig{
			Mode: "prompt",
		},
		LLM: LLMConfig{
			Provider:     "mock",
			Model:        "gpt-4.1-mini",
			BaseURL:      "https://api.openai.com/v1",
			APIKeyEnv:    "OPENAI_API_KEY",
			SystemPrompt: DefaultSystemPrompt,
			MaxTokens:    1024,
			TimeoutMs:    20000,
			MaxRetries:   2,
			RetryDelayMs: 600,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath is the config location relative to the project directory.
var DefaultPath = filepath.Join(".sentinex", "config.yaml")

// Path returns the config file path for a project directory.
func Path(dir string) string {
	return filepath.Join(dir, DefaultPath)
}

// Load loads config from dir/.sentinex/config.yaml, falling back to defaults
// when the file does not exist. SENTINEX_* environment variables override
// file values, e.g. SENTINEX_LLM_PROVIDER.
func Load(dir string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("SENTINEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerDefaults(v, cfg)

	configPath := Path(dir)
	raw, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		var doc map[string]any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", configPath, err)
		}
		settings, err := canonicalKeys(doc, "")
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", configPath, err)
		}
		if err := v.MergeConfigMap(settings); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", configPath, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.MatchName = func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		}
	}); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// registerDefaults makes every key known to viper so env overrides apply
// even when the config file omits the key. Keys are in canonical form, so
// the env name for llm.timeoutMs is SENTINEX_LLM_TIMEOUTMS.
func registerDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("version", cfg.Version)
	v.SetDefault("audit.enabled", cfg.Audit.Enabled)
	v.SetDefault("audit.file", cfg.Audit.File)
	v.SetDefault("audit.maxbytes", cfg.Audit.MaxBytes)
	v.SetDefault("audit.maxfiles", cfg.Audit.MaxFiles)
	v.SetDefault("approval.mode", cfg.Approval.Mode)
	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.fallbacktomock", cfg.LLM.FallbackToMock)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.baseurl", cfg.LLM.BaseURL)
	v.SetDefault("llm.apikeyenv", cfg.LLM.APIKeyEnv)
	v.SetDefault("llm.systemprompt", cfg.LLM.SystemPrompt)
	v.SetDefault("llm.maxtokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.timeoutms", cfg.LLM.TimeoutMs)
	v.SetDefault("llm.maxretries", cfg.LLM.MaxRetries)
	v.SetDefault("llm.retrydelayms", cfg.LLM.RetryDelayMs)
	v.SetDefault("llm.dryrundefault", cfg.LLM.DryRunDefault)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("metrics.file", cfg.Metrics.File)
}

// canonicalKeys rewrites every map key through normalizeKey so that
// maxBytes, max_bytes and max-bytes land on the same viper key. Two
// spellings of one key in the same section are rejected.
func canonicalKeys(doc map[string]any, section string) (map[string]any, error) {
	out := make(map[string]any, len(doc))
	seen := make(map[string]string, len(doc))
	for key, value := range doc {
		canonical := normalizeKey(key)
		if prev, dup := seen[canonical]; dup {
			return nil, fmt.Errorf("duplicate config key %q and %q", qualify(section, prev), qualify(section, key))
		}
		seen[canonical] = key
		if value == nil {
			continue
		}

		if nested, ok := value.(map[string]any); ok {
			converted, err := canonicalKeys(nested, qualify(section, key))
			if err != nil {
				return nil, err
			}
			value = converted
		}
		out[canonical] = value
	}
	return out, nil
}

func qualify(section, key string) string {
	if section == "" {
		return key
	}
	return section + "." + key
}

func normalizeKey(input string) string {
	input = strings.ReplaceAll(input, "_", "")
	input = strings.ReplaceAll(input, "-", "")
	return strings.ToLower(input)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks that the configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	c.Approval.Mode = strings.ToLower(strings.TrimSpace(c.Approval.Mode))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if strings.TrimSpace(c.LLM.SystemPrompt) == "" {
		c.LLM.SystemPrompt = DefaultSystemPrompt
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describeFieldError(fe))
		}
		return errors.New(strings.Join(msgs, "; "))
	}

	if c.LLM.Provider != "mock" && c.LLM.Provider != "ollama" && strings.TrimSpace(c.LLM.APIKeyEnv) == "" {
		return fmt.Errorf("llm.api_key_env is required for provider %q", c.LLM.Provider)
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	_, key, _ := strings.Cut(fe.Namespace(), ".")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", key, fe.Param(), fe.Value())
	case "eq":
		return fmt.Sprintf("%s must be %s, got %v", key, fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be > %s, got %v", key, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s, got %v", key, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be <= %s, got %v", key, fe.Param(), fe.Value())
	case "required", "required_unless":
		return fmt.Sprintf("%s is required", key)
	case "url":
		return fmt.Sprintf("%s must be a valid URL, got %v", key, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}

// AuditPath resolves the audit file against the project directory.
func (c *Config) AuditPath(dir string) string {
	if filepath.IsAbs(c.Audit.File) {
		return c.Audit.File
	}
	return filepath.Join(dir, c.Audit.File)
}

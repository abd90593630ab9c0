package policy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the policy location relative to the project directory.
var DefaultPath = filepath.Join(".sentinex", "policy.yaml")

// Load reads the policy from dir/.sentinex/policy.yaml.
func Load(dir string) (Config, error) {
	return LoadFile(filepath.Join(dir, DefaultPath))
}

// LoadFile reads and validates a policy file. A missing file yields
// DefaultConfig, which allows nothing.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("read policy file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML policy document. Omitted tool limits take their
// defaults; version and default must be given explicitly.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	cfg.Version = 0
	cfg.Default = ""

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse policy: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid policy: %w", err)
	}
	return cfg, nil
}

// Validate checks structural rules. Regex validity is left to evaluation
// and lint so that a bad pattern denies rather than failing the load.
func (c Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("version must be 1, got %d", c.Version)
	}
	if c.Default != VerdictAllow && c.Default != VerdictDeny {
		return fmt.Errorf("default must be 'allow' or 'deny', got %q", c.Default)
	}

	lists := []struct {
		key    string
		values []string
	}{
		{"deny.prompts", c.Deny.Prompts},
		{"deny.tools.http.fetch.hosts", c.Deny.Tools.HTTPFetch.Hosts},
		{"deny.tools.fs.read.paths", c.Deny.Tools.FSRead.Paths},
		{"allow.prompts", c.Allow.Prompts},
		{"allow.tools.http.fetch.hosts", c.Allow.Tools.HTTPFetch.Hosts},
		{"allow.tools.fs.read.roots", c.Allow.Tools.FSRead.Roots},
	}
	for _, list := range lists {
		for _, v := range list.values {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("%s must contain non-empty strings", list.key)
			}
		}
	}

	numbers := []struct {
		key   string
		value int
	}{
		{"allow.tools.http.fetch.timeoutMs", c.Allow.Tools.HTTPFetch.TimeoutMs},
		{"allow.tools.http.fetch.maxBytes", c.Allow.Tools.HTTPFetch.MaxBytes},
		{"allow.tools.fs.read.maxBytes", c.Allow.Tools.FSRead.MaxBytes},
	}
	for _, n := range numbers {
		if n.value <= 0 {
			return fmt.Errorf("%s must be a positive number, got %d", n.key, n.value)
		}
	}
	return nil
}

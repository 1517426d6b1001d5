package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the deployment configuration file for the guard engine.
// Pattern keys fully replace the corresponding default category; absent
// keys keep the built-in defaults.
type Config struct {
	DenyPatterns        map[string][]string `yaml:"deny_patterns"`
	AskPatterns         map[string][]string `yaml:"ask_patterns"`
	AutoApprovePatterns map[string][]string `yaml:"auto_approve_patterns"`
	AllowedBasePaths    []string            `yaml:"allowed_base_paths"`
	AllowedCommands     []string            `yaml:"allowed_commands"`
	MaxInputBytes       int64               `yaml:"max_input_bytes"`
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

// Overrides converts the config's pattern sections into rule set overrides.
func (c *Config) Overrides() Overrides {
	return Overrides{
		Deny:        c.DenyPatterns,
		Ask:         c.AskPatterns,
		AutoApprove: c.AutoApprovePatterns,
	}
}

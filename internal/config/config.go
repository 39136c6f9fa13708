package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for cpggen's analysis pipeline.
// Every field here backs a resource limit that the algorithms treat as a
// non-optional argument at the call site (expression depth, trace depth,
// fixed-point iteration cap) rather than an unbounded default, plus a few
// driver-level knobs (output location, verbosity).
type Config struct {
	// MaxExprDepth bounds recursive expression-tree lowering in the
	// Compute Graph Builder.
	MaxExprDepth int `yaml:"max_expr_depth" env:"CPGGEN_MAX_EXPR_DEPTH"`

	// MaxBackwardDepth bounds interprocedural backward definition tracing.
	MaxBackwardDepth int `yaml:"max_backward_depth" env:"CPGGEN_MAX_BACKWARD_DEPTH"`

	// MaxForwardDepth bounds interprocedural forward use tracing.
	MaxForwardDepth int `yaml:"max_forward_depth" env:"CPGGEN_MAX_FORWARD_DEPTH"`

	// MaxCallDepth bounds callee inlining depth during trace and build phases.
	MaxCallDepth int `yaml:"max_call_depth" env:"CPGGEN_MAX_CALL_DEPTH"`

	// AnchorCap bounds the number of anchors the Anchor Finder keeps per
	// translation unit after ranking.
	AnchorCap int `yaml:"anchor_cap" env:"CPGGEN_ANCHOR_CAP"`

	// FixedPointCap bounds worklist iterations for reaching-definitions
	// and post-dominator fixed points, guarding against a malformed CFG.
	FixedPointCap int `yaml:"fixed_point_cap" env:"CPGGEN_FIXED_POINT_CAP"`

	// OutputDir is where DOT files and dumped graphs are written.
	OutputDir string `yaml:"output_dir" env:"CPGGEN_OUTPUT_DIR"`

	// Verbose enables debug-level logging.
	Verbose bool `yaml:"verbose" env:"CPGGEN_VERBOSE"`

	// IgnoreFileName is the name of the per-directory ignore file consulted
	// when a directory is passed as a source argument.
	IgnoreFileName string `yaml:"ignore_file_name" env:"CPGGEN_IGNORE_FILE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxExprDepth:     20,
		MaxBackwardDepth: 10,
		MaxForwardDepth:  5,
		MaxCallDepth:     3,
		AnchorCap:        50,
		FixedPointCap:    100,
		OutputDir:        "./cpggen-out",
		Verbose:          false,
		IgnoreFileName:   ".cpggenignore",
	}
}

// globalConfigFilePath returns the global config file path (~/.cpggen/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cpggen/config.yaml"
	}
	return filepath.Join(home, ".cpggen", "config.yaml")
}

// projectConfigFilePath returns the project-level config file path (./.cpggen/config.yaml)
func projectConfigFilePath() string {
	return ".cpggen/config.yaml"
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.cpggen/config.yaml)
// 3. Global config (~/.cpggen/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	globalConfigPath := globalConfigFilePath()
	if data, err := os.ReadFile(globalConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", globalConfigPath, err)
		}
	}

	projectConfigPath := projectConfigFilePath()
	if data, err := os.ReadFile(projectConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", projectConfigPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CPGGEN_MAX_EXPR_DEPTH"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.MaxExprDepth = i
		}
	}
	if v := os.Getenv("CPGGEN_MAX_BACKWARD_DEPTH"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.MaxBackwardDepth = i
		}
	}
	if v := os.Getenv("CPGGEN_MAX_FORWARD_DEPTH"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.MaxForwardDepth = i
		}
	}
	if v := os.Getenv("CPGGEN_MAX_CALL_DEPTH"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.MaxCallDepth = i
		}
	}
	if v := os.Getenv("CPGGEN_ANCHOR_CAP"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.AnchorCap = i
		}
	}
	if v := os.Getenv("CPGGEN_FIXED_POINT_CAP"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.FixedPointCap = i
		}
	}
	if v := os.Getenv("CPGGEN_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("CPGGEN_VERBOSE"); v != "" {
		cfg.Verbose = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("CPGGEN_IGNORE_FILE"); v != "" {
		cfg.IgnoreFileName = v
	}
}

// Validate checks that the configuration has valid required fields.
func (c *Config) Validate() error {
	if c.MaxExprDepth <= 0 {
		return fmt.Errorf("max_expr_depth must be positive")
	}
	if c.MaxBackwardDepth <= 0 {
		return fmt.Errorf("max_backward_depth must be positive")
	}
	if c.MaxForwardDepth <= 0 {
		return fmt.Errorf("max_forward_depth must be positive")
	}
	if c.MaxCallDepth <= 0 {
		return fmt.Errorf("max_call_depth must be positive")
	}
	if c.AnchorCap <= 0 {
		return fmt.Errorf("anchor_cap must be positive")
	}
	if c.FixedPointCap <= 0 {
		return fmt.Errorf("fixed_point_cap must be positive")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	return nil
}

// parseInt attempts to parse a string as int.
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}

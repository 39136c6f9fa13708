package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 20, cfg.MaxExprDepth)
	assert.Equal(t, 10, cfg.MaxBackwardDepth)
	assert.Equal(t, 5, cfg.MaxForwardDepth)
	assert.Equal(t, 3, cfg.MaxCallDepth)
	assert.Equal(t, 50, cfg.AnchorCap)
	assert.Equal(t, 100, cfg.FixedPointCap)
	assert.Equal(t, "./cpggen-out", cfg.OutputDir)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, ".cpggenignore", cfg.IgnoreFileName)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *Config
		wantErr     bool
		errContains string
	}{
		{
			name: "valid default config",
			cfg:  DefaultConfig(),
		},
		{
			name: "zero max expr depth",
			cfg: func() *Config {
				c := DefaultConfig()
				c.MaxExprDepth = 0
				return c
			}(),
			wantErr:     true,
			errContains: "max_expr_depth must be positive",
		},
		{
			name: "negative max backward depth",
			cfg: func() *Config {
				c := DefaultConfig()
				c.MaxBackwardDepth = -1
				return c
			}(),
			wantErr:     true,
			errContains: "max_backward_depth must be positive",
		},
		{
			name: "zero anchor cap",
			cfg: func() *Config {
				c := DefaultConfig()
				c.AnchorCap = 0
				return c
			}(),
			wantErr:     true,
			errContains: "anchor_cap must be positive",
		},
		{
			name: "zero fixed point cap",
			cfg: func() *Config {
				c := DefaultConfig()
				c.FixedPointCap = 0
				return c
			}(),
			wantErr:     true,
			errContains: "fixed_point_cap must be positive",
		},
		{
			name: "empty output dir",
			cfg: func() *Config {
				c := DefaultConfig()
				c.OutputDir = ""
				return c
			}(),
			wantErr:     true,
			errContains: "output_dir must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
max_expr_depth: 100
max_backward_depth: 40
anchor_cap: 75
output_dir: /tmp/out
verbose: true
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := LoadFromFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.MaxExprDepth)
	assert.Equal(t, 40, cfg.MaxBackwardDepth)
	assert.Equal(t, 75, cfg.AnchorCap)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.True(t, cfg.Verbose)
	// unspecified fields keep their defaults
	assert.Equal(t, 5, cfg.MaxForwardDepth)
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("max_expr_depth: [not, a, scalar"), 0644))

	_, err := LoadFromFile(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestApplyEnvOverrides(t *testing.T) {
	envVars := []string{
		"CPGGEN_MAX_EXPR_DEPTH", "CPGGEN_MAX_BACKWARD_DEPTH", "CPGGEN_MAX_FORWARD_DEPTH",
		"CPGGEN_MAX_CALL_DEPTH", "CPGGEN_ANCHOR_CAP", "CPGGEN_FIXED_POINT_CAP",
		"CPGGEN_OUTPUT_DIR", "CPGGEN_VERBOSE", "CPGGEN_IGNORE_FILE",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
	defer func() {
		for _, v := range envVars {
			os.Unsetenv(v)
		}
	}()

	os.Setenv("CPGGEN_MAX_EXPR_DEPTH", "128")
	os.Setenv("CPGGEN_ANCHOR_CAP", "25")
	os.Setenv("CPGGEN_OUTPUT_DIR", "/custom/out")
	os.Setenv("CPGGEN_VERBOSE", "yes")
	os.Setenv("CPGGEN_IGNORE_FILE", ".ignoreme")
	os.Setenv("CPGGEN_CHUNK_SIZE_BOGUS", "should be ignored")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, 128, cfg.MaxExprDepth)
	assert.Equal(t, 25, cfg.AnchorCap)
	assert.Equal(t, "/custom/out", cfg.OutputDir)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, ".ignoreme", cfg.IgnoreFileName)
}

func TestApplyEnvOverrides_InvalidIntIgnored(t *testing.T) {
	os.Setenv("CPGGEN_MAX_CALL_DEPTH", "not-an-int")
	defer os.Unsetenv("CPGGEN_MAX_CALL_DEPTH")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, 3, cfg.MaxCallDepth)
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"0", 0},
		{"100", 100},
		{"512", 512},
		{"invalid", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseInt(tt.input))
		})
	}
}

func TestConfigSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.MaxExprDepth = 200
	cfg.OutputDir = "/tmp/custom-out"

	require.NoError(t, cfg.Save(configPath))
	_, err := os.Stat(configPath)
	require.NoError(t, err)

	loaded, err := LoadFromFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, cfg.MaxExprDepth, loaded.MaxExprDepth)
	assert.Equal(t, cfg.OutputDir, loaded.OutputDir)
}

func TestConfigSaveCreatesParentDirs(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "dirs", "config.yaml")

	cfg := DefaultConfig()
	require.NoError(t, cfg.Save(configPath))

	_, err := os.Stat(configPath)
	require.NoError(t, err)
}

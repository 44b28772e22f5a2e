// Package config holds runtime configuration for slidecraft, loaded from
// defaults, an optional YAML file, and environment variables (in that order
// of increasing precedence).
package config

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"
)

// Limits are the per-slide capacity rules applied by the packer.
type Limits struct {
	MaxTextPerSlide   int `yaml:"max_text_per_slide"`   // text-like elements on a slide
	MaxImagesPerSlide int `yaml:"max_images_per_slide"` // images on a slide
	MaxTextWithImages int `yaml:"max_text_with_images"` // text-like elements allowed once a slide has images
}

// DefaultLimits returns the stock packing limits.
func DefaultLimits() Limits {
	return Limits{
		MaxTextPerSlide:   3,
		MaxImagesPerSlide: 2,
		MaxTextWithImages: 1,
	}
}

// Config is the full runtime configuration.
type Config struct {
	MarkerPath           string `yaml:"marker_path"`            // marker_single executable
	MarkerArgs           string `yaml:"marker_args"`            // extra args, shell-style quoting
	TimeoutSeconds       int    `yaml:"timeout"`                // marker invocation timeout
	OutputDir            string `yaml:"output_dir"`             // marker intermediate output
	TempDir              string `yaml:"temp_dir"`               // base for the image staging store
	RenderTablesMarkdown bool   `yaml:"render_tables_markdown"` // keep table cell structure as markdown
	Limits               Limits `yaml:"limits"`
}

// DefaultConfig returns the default configuration, including marker
// executable discovery.
func DefaultConfig() *Config {
	return &Config{
		MarkerPath:     detectMarkerPath(),
		TimeoutSeconds: 600,
		OutputDir:      "marker_output",
		Limits:         DefaultLimits(),
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// configPath, and environment variable overrides.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays environment variables onto the configuration.
func (c *Config) applyEnv() {
	if v := os.Getenv("MARKER_PATH"); v != "" {
		c.MarkerPath = v
	}
	if v := os.Getenv("MARKER_EXTRA_ARGS"); v != "" {
		c.MarkerArgs = v
	}
	if v := os.Getenv("SLIDECRAFT_TIMEOUT"); v != "" {
		if t, err := strconv.Atoi(v); err == nil && t > 0 {
			c.TimeoutSeconds = t
		}
	}
	if v := os.Getenv("SLIDECRAFT_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("SLIDECRAFT_TEMP_DIR"); v != "" {
		c.TempDir = v
	}
	if v := os.Getenv("SLIDECRAFT_RENDER_TABLES_MARKDOWN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.RenderTablesMarkdown = b
		}
	}
	if v := os.Getenv("SLIDECRAFT_MAX_TEXT_ELEMENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Limits.MaxTextPerSlide = n
		}
	}
	if v := os.Getenv("SLIDECRAFT_MAX_IMAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Limits.MaxImagesPerSlide = n
		}
	}
	if v := os.Getenv("SLIDECRAFT_MAX_TEXT_WITH_IMAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Limits.MaxTextWithImages = n
		}
	}
}

// ExtraMarkerArgs parses the configured extra marker arguments with
// shell-style quoting rules.
func (c *Config) ExtraMarkerArgs() ([]string, error) {
	if c.MarkerArgs == "" {
		return nil, nil
	}
	args, err := shlex.Split(c.MarkerArgs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse marker extra args %q: %w", c.MarkerArgs, err)
	}
	return args, nil
}

// Validate checks the configuration for values that would break a run.
// A missing marker path is allowed here: conversions with --skip-marker never
// invoke the executable.
func (c *Config) Validate() error {
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	if c.Limits.MaxTextPerSlide <= 0 {
		return fmt.Errorf("max text elements per slide must be greater than 0")
	}
	if c.Limits.MaxImagesPerSlide <= 0 {
		return fmt.Errorf("max images per slide must be greater than 0")
	}
	if c.Limits.MaxTextWithImages <= 0 {
		return fmt.Errorf("max text elements with images must be greater than 0")
	}
	if _, err := c.ExtraMarkerArgs(); err != nil {
		return err
	}
	return nil
}

// detectMarkerPath finds the marker_single executable.
// Priority: environment variable, cached state file, PATH lookup.
func detectMarkerPath() string {
	if envPath := os.Getenv("MARKER_PATH"); envPath != "" {
		return envPath
	}

	state := GetGlobalState()
	if !state.IsStale() {
		if cached, available := state.GetMarkerPath(); cached != "" && available {
			if _, err := os.Stat(cached); err == nil {
				return cached
			}
		}
	}

	if path, err := exec.LookPath("marker_single"); err == nil {
		_ = state.SetMarkerPath(path, true)
		return path
	}

	_ = state.SetMarkerPath("", false)
	return ""
}

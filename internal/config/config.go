package config

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/MeKo-Tech/scangate/internal/gate"
)

// Config represents the complete configuration for scangate.
// It includes settings for all commands (evaluate, scan, serve) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Scanner (acceptance) settings
	Scanner ScannerConfig `mapstructure:"scanner" yaml:"scanner" json:"scanner"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// ScannerConfig contains the acceptance policy and overlay layout.
type ScannerConfig struct {
	// Formats is the allow-list of symbology names; empty or "allFormats" accepts everything.
	Formats []string `mapstructure:"formats" yaml:"formats" json:"formats"`
	// Convention is the default bounding box convention: pixel or normalized.
	Convention string `mapstructure:"convention" yaml:"convention" json:"convention"`
	// Density is the display density used to resolve the overlay dp values.
	Density         float64 `mapstructure:"density" yaml:"density" json:"density"`
	OverlayTopDP    float64 `mapstructure:"overlay_top_dp" yaml:"overlay_top_dp" json:"overlay_top_dp"`
	OverlayHeightDP float64 `mapstructure:"overlay_height_dp" yaml:"overlay_height_dp" json:"overlay_height_dp"`
	// TryHarder makes the still-image decoder spend more time per image.
	TryHarder bool `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// Valid values for enumerated settings.
var (
	ValidLogLevels     = []string{"debug", "info", "warn", "error"}
	ValidOutputFormats = []string{"text", "json", "yaml", "csv"}
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	layout := gate.DefaultOverlayLayout()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Scanner: ScannerConfig{
			Formats:         []string{},
			Convention:      gate.Pixel.String(),
			Density:         1,
			OverlayTopDP:    layout.TopDP,
			OverlayHeightDP: layout.HeightDP,
			TryHarder:       false,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
	}
}

// Validate validates the configuration and returns any errors.
// Unrecognized format names are not an error; they never restrict the filter.
func (c *Config) Validate() error {
	if !slices.Contains(ValidLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(ValidLogLevels, ", "))
	}

	if c.Output.Format != "" && !slices.Contains(ValidOutputFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(ValidOutputFormats, ", "))
	}

	if _, err := gate.ParseConvention(c.Scanner.Convention); err != nil {
		return fmt.Errorf("invalid scanner.convention: %w", err)
	}
	if !(c.Scanner.Density > 0) || math.IsInf(c.Scanner.Density, 0) {
		return fmt.Errorf("invalid density: %v (scanner.density must be positive)", c.Scanner.Density)
	}
	if err := validateDP(c.Scanner.OverlayTopDP, "scanner.overlay_top_dp"); err != nil {
		return err
	}
	if err := validateDP(c.Scanner.OverlayHeightDP, "scanner.overlay_height_dp"); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must not be negative)", c.Server.ShutdownTimeout)
	}

	return nil
}

// ToFormatFilter builds the engine's format filter. Names that did not
// resolve are returned so callers can log them.
func (c *Config) ToFormatFilter() (gate.FormatFilter, []string) {
	return gate.NewFormatFilter(c.Scanner.Formats...)
}

// OverlayLayout returns the configured scan window in dp.
func (c *Config) OverlayLayout() gate.OverlayLayout {
	return gate.OverlayLayout{TopDP: c.Scanner.OverlayTopDP, HeightDP: c.Scanner.OverlayHeightDP}
}

// CoordinateConvention returns the configured box convention, defaulting to pixel.
func (c *Config) CoordinateConvention() gate.Convention {
	conv, err := gate.ParseConvention(c.Scanner.Convention)
	if err != nil {
		return gate.Pixel
	}
	return conv
}

// validateDP validates an overlay offset in dp.
func validateDP(value float64, name string) error {
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("invalid %s: %.2f (must be a non-negative number)", name, value)
	}
	return nil
}

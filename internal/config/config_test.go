package config

import (
	"strings"
	"testing"

	"github.com/MeKo-Tech/scangate/internal/barcode"
	"github.com/MeKo-Tech/scangate/internal/gate"
)

const (
	infoLevel  = "info"
	debugLevel = "debug"
)

// TestDefaultConfig verifies that DefaultConfig returns expected values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected log_level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Verbose {
		t.Error("Expected verbose to be false")
	}

	// Scanner defaults
	if len(cfg.Scanner.Formats) != 0 {
		t.Errorf("Expected no format restriction, got %v", cfg.Scanner.Formats)
	}
	if cfg.Scanner.Convention != "pixel" {
		t.Errorf("Expected convention 'pixel', got %s", cfg.Scanner.Convention)
	}
	if cfg.Scanner.Density != 1 {
		t.Errorf("Expected density 1, got %f", cfg.Scanner.Density)
	}
	if cfg.Scanner.OverlayTopDP != 148 || cfg.Scanner.OverlayHeightDP != 134 {
		t.Errorf("Expected overlay 148/134 dp, got %f/%f", cfg.Scanner.OverlayTopDP, cfg.Scanner.OverlayHeightDP)
	}

	// Output defaults
	if cfg.Output.Format != "text" {
		t.Errorf("Expected output format 'text', got %s", cfg.Output.Format)
	}

	// Server defaults
	if cfg.Server.Host != "localhost" {
		t.Errorf("Expected server host 'localhost', got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected server port 8080, got %d", cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid, got: %v", err)
	}
}

// TestValidate tests configuration validation.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"invalid log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"invalid output format", func(c *Config) { c.Output.Format = "xml" }, "invalid output format"},
		{"yaml output", func(c *Config) { c.Output.Format = "yaml" }, ""},
		{"empty output format", func(c *Config) { c.Output.Format = "" }, ""},
		{"normalized convention", func(c *Config) { c.Scanner.Convention = "normalized" }, ""},
		{"invalid convention", func(c *Config) { c.Scanner.Convention = "percent" }, "scanner.convention"},
		{"zero density", func(c *Config) { c.Scanner.Density = 0 }, "scanner.density"},
		{"negative overlay top", func(c *Config) { c.Scanner.OverlayTopDP = -1 }, "scanner.overlay_top_dp"},
		{"negative overlay height", func(c *Config) { c.Scanner.OverlayHeightDP = -1 }, "scanner.overlay_height_dp"},
		{"unrecognized formats are allowed", func(c *Config) { c.Scanner.Formats = []string{"maxicode"} }, ""},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"no upload size", func(c *Config) { c.Server.MaxUploadMB = 0 }, "invalid max upload size"},
		{"no timeout", func(c *Config) { c.Server.TimeoutSec = 0 }, "invalid timeout"},
		{"negative shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = -1 }, "invalid shutdown timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

// TestToFormatFilter tests conversion to the engine's filter.
func TestToFormatFilter(t *testing.T) {
	cfg := DefaultConfig()
	f, bad := cfg.ToFormatFilter()
	if !f.Unrestricted() || len(bad) != 0 {
		t.Errorf("Expected unrestricted filter, got %v (bad %v)", f.Names(), bad)
	}

	cfg.Scanner.Formats = []string{"qrCode", "EAN-13", "maxicode"}
	f, bad = cfg.ToFormatFilter()
	if f.Unrestricted() {
		t.Fatal("Expected a restricted filter")
	}
	if !f.Allows(barcode.SymbologyQRCode) || !f.Allows(barcode.SymbologyEAN13) {
		t.Errorf("Expected qrCode and ean13 to be allowed, got %v", f.Names())
	}
	if f.Allows(barcode.SymbologyUPCA) {
		t.Error("Expected upca to be rejected")
	}
	if len(bad) != 1 || bad[0] != "maxicode" {
		t.Errorf("Expected [maxicode] unrecognized, got %v", bad)
	}
}

// TestOverlayLayoutAndConvention tests the scanner helpers.
func TestOverlayLayoutAndConvention(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.OverlayLayout() != gate.DefaultOverlayLayout() {
		t.Errorf("Expected default overlay layout, got %+v", cfg.OverlayLayout())
	}
	if cfg.CoordinateConvention() != gate.Pixel {
		t.Error("Expected pixel convention")
	}

	cfg.Scanner.Convention = "normalized"
	if cfg.CoordinateConvention() != gate.Normalized {
		t.Error("Expected normalized convention")
	}

	cfg.Scanner.Convention = "bogus"
	if cfg.CoordinateConvention() != gate.Pixel {
		t.Error("Expected fallback to pixel convention")
	}
}

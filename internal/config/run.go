package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/banshee-data/rcintent/internal/capture"
	"github.com/banshee-data/rcintent/internal/classify"
	"github.com/banshee-data/rcintent/internal/debounce"
	"github.com/banshee-data/rcintent/internal/rcframe"
)

// maxFileSize bounds config files read from disk.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// RunConfig holds the parameters of one decode run. Fields omitted from a
// config file stay nil and the Get* methods return the defaults, so partial
// configs are safe.
type RunConfig struct {
	UDPPort            *int     `json:"udp_port,omitempty" toml:"udp_port"`
	Neutral            *int     `json:"neutral,omitempty" toml:"neutral"`
	Deadband           *int     `json:"deadband,omitempty" toml:"deadband"`
	DebounceSeconds    *float64 `json:"debounce_seconds,omitempty" toml:"debounce_seconds"`
	MaxFrames          *int     `json:"max_frames,omitempty" toml:"max_frames"`
	ShowFirst          *int     `json:"show_first,omitempty" toml:"show_first"`
	IgnoreHeadlessZero *bool    `json:"ignore_headless_zero,omitempty" toml:"ignore_headless_zero"`
	UseLibpcap         *bool    `json:"use_libpcap,omitempty" toml:"use_libpcap"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyRunConfig returns a RunConfig with all fields set to nil.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// DefaultRunConfig returns a RunConfig with every field set to its default.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		UDPPort:            ptrInt(capture.DefaultPort),
		Neutral:            ptrInt(rcframe.Neutral),
		Deadband:           ptrInt(classify.DefaultDeadband),
		DebounceSeconds:    ptrFloat64(debounce.DefaultWindow),
		MaxFrames:          ptrInt(0),
		ShowFirst:          ptrInt(0),
		IgnoreHeadlessZero: ptrBool(false),
		UseLibpcap:         ptrBool(false),
	}
}

// LoadRunConfig loads a RunConfig from a .json or .toml file.
// The file must be under the max file size.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".toml" {
		return nil, fmt.Errorf("config file must have .json or .toml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRunConfig()
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *RunConfig) Validate() error {
	if c.UDPPort != nil && (*c.UDPPort < 1 || *c.UDPPort > 65535) {
		return fmt.Errorf("udp_port must be between 1 and 65535, got %d", *c.UDPPort)
	}
	if c.Neutral != nil && (*c.Neutral < 0 || *c.Neutral > 255) {
		return fmt.Errorf("neutral must be between 0 and 255, got %d", *c.Neutral)
	}
	if c.Deadband != nil && (*c.Deadband < 0 || *c.Deadband > 255) {
		return fmt.Errorf("deadband must be between 0 and 255, got %d", *c.Deadband)
	}
	if c.DebounceSeconds != nil && *c.DebounceSeconds < 0 {
		return fmt.Errorf("debounce_seconds must be non-negative, got %f", *c.DebounceSeconds)
	}
	if c.MaxFrames != nil && *c.MaxFrames < 0 {
		return fmt.Errorf("max_frames must be non-negative, got %d", *c.MaxFrames)
	}
	if c.ShowFirst != nil && *c.ShowFirst < 0 {
		return fmt.Errorf("show_first must be non-negative, got %d", *c.ShowFirst)
	}
	return nil
}

// Merge copies every non-nil field of other over c.
func (c *RunConfig) Merge(other *RunConfig) {
	if other == nil {
		return
	}
	if other.UDPPort != nil {
		c.UDPPort = other.UDPPort
	}
	if other.Neutral != nil {
		c.Neutral = other.Neutral
	}
	if other.Deadband != nil {
		c.Deadband = other.Deadband
	}
	if other.DebounceSeconds != nil {
		c.DebounceSeconds = other.DebounceSeconds
	}
	if other.MaxFrames != nil {
		c.MaxFrames = other.MaxFrames
	}
	if other.ShowFirst != nil {
		c.ShowFirst = other.ShowFirst
	}
	if other.IgnoreHeadlessZero != nil {
		c.IgnoreHeadlessZero = other.IgnoreHeadlessZero
	}
	if other.UseLibpcap != nil {
		c.UseLibpcap = other.UseLibpcap
	}
}

// GetUDPPort returns the udp_port value or the default.
func (c *RunConfig) GetUDPPort() int {
	if c.UDPPort == nil {
		return capture.DefaultPort
	}
	return *c.UDPPort
}

// GetNeutral returns the neutral value or the default.
func (c *RunConfig) GetNeutral() int {
	if c.Neutral == nil {
		return rcframe.Neutral
	}
	return *c.Neutral
}

// GetDeadband returns the deadband value or the default.
func (c *RunConfig) GetDeadband() int {
	if c.Deadband == nil {
		return classify.DefaultDeadband
	}
	return *c.Deadband
}

// GetDebounceSeconds returns the debounce_seconds value or the default.
func (c *RunConfig) GetDebounceSeconds() float64 {
	if c.DebounceSeconds == nil {
		return debounce.DefaultWindow
	}
	return *c.DebounceSeconds
}

// GetMaxFrames returns the max_frames value or the default (0, no limit).
func (c *RunConfig) GetMaxFrames() int {
	if c.MaxFrames == nil {
		return 0
	}
	return *c.MaxFrames
}

// GetShowFirst returns the show_first value or the default.
func (c *RunConfig) GetShowFirst() int {
	if c.ShowFirst == nil {
		return 0
	}
	return *c.ShowFirst
}

// GetIgnoreHeadlessZero returns the ignore_headless_zero value or the default.
func (c *RunConfig) GetIgnoreHeadlessZero() bool {
	if c.IgnoreHeadlessZero == nil {
		return false
	}
	return *c.IgnoreHeadlessZero
}

// GetUseLibpcap returns the use_libpcap value or the default.
func (c *RunConfig) GetUseLibpcap() bool {
	if c.UseLibpcap == nil {
		return false
	}
	return *c.UseLibpcap
}

// ClassifyOptions builds the classifier options for this config.
func (c *RunConfig) ClassifyOptions() classify.Options {
	return classify.Options{
		Neutral:            c.GetNeutral(),
		Deadband:           c.GetDeadband(),
		IgnoreHeadlessZero: c.GetIgnoreHeadlessZero(),
	}
}

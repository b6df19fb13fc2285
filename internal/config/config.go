// Package config handles configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Wayland  WaylandConfig  `mapstructure:"wayland"`
	Keyboard KeyboardConfig `mapstructure:"keyboard"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// WaylandConfig selects the compositor to talk to
type WaylandConfig struct {
	Display string `mapstructure:"display"` // Empty means $WAYLAND_DISPLAY
}

// KeyboardConfig contains virtual keyboard settings
type KeyboardConfig struct {
	Keymap     string `mapstructure:"keymap"`      // builtin, seat or file
	KeymapFile string `mapstructure:"keymap_file"` // XKB keymap used when keymap is "file"
}

// CaptureConfig contains screenshot settings
type CaptureConfig struct {
	Output        string `mapstructure:"output"`         // Output used when none is named
	Selection     string `mapstructure:"selection"`      // first or strict
	OverlayCursor bool   `mapstructure:"overlay_cursor"` // Composite the cursor into captures
	Format        string `mapstructure:"format"`         // png, bmp, tiff or frame
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Keyboard: KeyboardConfig{
			Keymap: "builtin",
		},
		Capture: CaptureConfig{
			Selection: "first",
			Format:    "png",
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("wdotool")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(dir, "wdotool"))
		}
		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	viper.SetEnvPrefix("WDOTOOL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("wayland.display", DefaultConfig.Wayland.Display)
	viper.SetDefault("keyboard.keymap", DefaultConfig.Keyboard.Keymap)
	viper.SetDefault("keyboard.keymap_file", DefaultConfig.Keyboard.KeymapFile)
	viper.SetDefault("capture.output", DefaultConfig.Capture.Output)
	viper.SetDefault("capture.selection", DefaultConfig.Capture.Selection)
	viper.SetDefault("capture.overlay_cursor", DefaultConfig.Capture.OverlayCursor)
	viper.SetDefault("capture.format", DefaultConfig.Capture.Format)
	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}

// Validate checks the enumerated settings
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Keyboard.Keymap) {
	case "", "builtin", "seat":
	case "file":
		if c.Keyboard.KeymapFile == "" {
			errs = append(errs, errors.New("keyboard.keymap_file is required when keyboard.keymap is \"file\""))
		}
	default:
		errs = append(errs, fmt.Errorf("keyboard.keymap: unknown source %q", c.Keyboard.Keymap))
	}
	switch strings.ToLower(c.Capture.Selection) {
	case "", "first", "strict":
	default:
		errs = append(errs, fmt.Errorf("capture.selection: unknown policy %q", c.Capture.Selection))
	}
	switch strings.ToLower(c.Capture.Format) {
	case "", "png", "bmp", "tiff", "frame":
	default:
		errs = append(errs, fmt.Errorf("capture.format: unknown format %q", c.Capture.Format))
	}
	return errors.Join(errs...)
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save writes the current settings to the config file
func Save() error {
	configPath := GetConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "wdotool.toml"
	}
	return filepath.Join(dir, "wdotool", "wdotool.toml")
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	cfg = nil
	configPathOverride = ""
	t.Cleanup(func() {
		viper.Reset()
		cfg = nil
		configPathOverride = ""
	})
}

func TestInit(t *testing.T) {
	t.Run("initializes with defaults when no config exists", func(t *testing.T) {
		resetConfig(t)
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Chdir(t.TempDir())

		if err := Init(); err != nil {
			t.Fatalf("Init() failed: %v", err)
		}

		config := Get()
		if config.Keyboard.Keymap != "builtin" {
			t.Errorf("Expected default keymap builtin, got %q", config.Keyboard.Keymap)
		}
		if config.Capture.Selection != "first" {
			t.Errorf("Expected default selection first, got %q", config.Capture.Selection)
		}
		if config.Capture.Format != "png" {
			t.Errorf("Expected default format png, got %q", config.Capture.Format)
		}
	})

	t.Run("reads explicit config file", func(t *testing.T) {
		resetConfig(t)
		path := filepath.Join(t.TempDir(), "custom.toml")
		content := `[wayland]
display = "wayland-7"

[keyboard]
keymap = "seat"

[capture]
output = "HDMI-A-1"
selection = "strict"
overlay_cursor = true
format = "tiff"
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		SetConfigPath(path)

		if err := Init(); err != nil {
			t.Fatalf("Init() failed: %v", err)
		}

		config := Get()
		if config.Wayland.Display != "wayland-7" {
			t.Errorf("Expected display wayland-7, got %q", config.Wayland.Display)
		}
		if config.Keyboard.Keymap != "seat" {
			t.Errorf("Expected keymap seat, got %q", config.Keyboard.Keymap)
		}
		if config.Capture.Output != "HDMI-A-1" || config.Capture.Selection != "strict" {
			t.Errorf("Unexpected capture config: %+v", config.Capture)
		}
		if !config.Capture.OverlayCursor {
			t.Error("Expected overlay_cursor to be true")
		}
		if config.Capture.Format != "tiff" {
			t.Errorf("Expected format tiff, got %q", config.Capture.Format)
		}
		if GetConfigPath() != path {
			t.Errorf("Expected config path %s, got %s", path, GetConfigPath())
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		resetConfig(t)
		path := filepath.Join(t.TempDir(), "env.toml")
		if err := os.WriteFile(path, []byte("[capture]\nformat = \"bmp\"\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		SetConfigPath(path)
		t.Setenv("WDOTOOL_CAPTURE_FORMAT", "frame")

		if err := Init(); err != nil {
			t.Fatalf("Init() failed: %v", err)
		}
		if got := Get().Capture.Format; got != "frame" {
			t.Errorf("Expected env override frame, got %q", got)
		}
	})

	t.Run("handles invalid TOML", func(t *testing.T) {
		resetConfig(t)
		path := filepath.Join(t.TempDir(), "broken.toml")
		if err := os.WriteFile(path, []byte("[capture\nformat = \"png\""), 0o600); err != nil {
			t.Fatal(err)
		}
		SetConfigPath(path)

		err := Init()
		if err == nil {
			t.Fatal("Expected error for invalid TOML")
		}
		if !strings.Contains(err.Error(), "error reading config file") {
			t.Errorf("Expected read error, got: %v", err)
		}
	})

	t.Run("rejects unknown enum values", func(t *testing.T) {
		resetConfig(t)
		path := filepath.Join(t.TempDir(), "bad.toml")
		content := "[keyboard]\nkeymap = \"qwerty\"\n[capture]\nselection = \"best\"\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		SetConfigPath(path)

		err := Init()
		if err == nil {
			t.Fatal("Expected validation error")
		}
		for _, want := range []string{"keyboard.keymap", "capture.selection"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("Expected %q in error, got: %v", want, err)
			}
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "defaults", config: DefaultConfig},
		{name: "zero value", config: Config{}},
		{
			name:    "file keymap without path",
			config:  Config{Keyboard: KeyboardConfig{Keymap: "file"}},
			wantErr: true,
		},
		{
			name:   "file keymap with path",
			config: Config{Keyboard: KeyboardConfig{Keymap: "file", KeymapFile: "/tmp/us.xkb"}},
		},
		{
			name:    "unknown format",
			config:  Config{Capture: CaptureConfig{Format: "jpeg"}},
			wantErr: true,
		},
		{
			name:   "mixed case",
			config: Config{Capture: CaptureConfig{Format: "PNG", Selection: "Strict"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigPathResolution(t *testing.T) {
	t.Run("override wins", func(t *testing.T) {
		resetConfig(t)
		SetConfigPath("/etc/wdotool/custom.toml")
		if got := GetConfigPath(); got != "/etc/wdotool/custom.toml" {
			t.Errorf("Expected override path, got %s", got)
		}
	})

	t.Run("user config dir", func(t *testing.T) {
		resetConfig(t)
		t.Setenv("XDG_CONFIG_HOME", "/home/testuser/.config")
		want := "/home/testuser/.config/wdotool/wdotool.toml"
		if got := GetConfigPath(); got != want {
			t.Errorf("Expected path %s, got %s", want, got)
		}
	})
}

func TestSave(t *testing.T) {
	resetConfig(t)
	path := filepath.Join(t.TempDir(), "nested", "wdotool.toml")
	SetConfigPath(path)
	viper.Set("capture.output", "DP-2")

	if err := Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Config file not written: %v", err)
	}
	if !strings.Contains(string(data), "DP-2") {
		t.Errorf("Saved config missing output, got:\n%s", data)
	}
}

func TestGetReturnsDefaultsBeforeInit(t *testing.T) {
	resetConfig(t)
	if got := Get(); got.Capture.Format != DefaultConfig.Capture.Format {
		t.Errorf("Expected defaults before Init, got %+v", got)
	}

	custom := &Config{Capture: CaptureConfig{Format: "bmp"}}
	Set(custom)
	if Get() != custom {
		t.Error("Set() did not replace the config")
	}
}

package cmd

import (
	"fmt"
	"strconv"

	"github.com/bnema/wdotool/internal/config"
	"github.com/bnema/wdotool/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wdotool configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, ui.FormatHeader("Configuration"))
		fmt.Fprintln(out, ui.SubtleStyle.Render("file: "+config.GetConfigPath()))
		for _, section := range configSections(cfg) {
			fmt.Fprintln(out)
			fmt.Fprintln(out, ui.HeaderStyle.Render("["+section.name+"]"))
			for _, kv := range section.values {
				fmt.Fprintln(out, ui.FormatKeyValue(kv[0], kv[1], 14))
			}
		}
		return nil
	},
}

type configSection struct {
	name   string
	values [][2]string
}

func configSections(cfg *config.Config) []configSection {
	orDefault := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return []configSection{
		{"wayland", [][2]string{
			{"display", orDefault(cfg.Wayland.Display, "$WAYLAND_DISPLAY")},
		}},
		{"keyboard", [][2]string{
			{"keymap", orDefault(cfg.Keyboard.Keymap, "builtin")},
			{"keymap_file", orDefault(cfg.Keyboard.KeymapFile, "-")},
		}},
		{"capture", [][2]string{
			{"output", orDefault(cfg.Capture.Output, "-")},
			{"selection", orDefault(cfg.Capture.Selection, "first")},
			{"overlay_cursor", strconv.FormatBool(cfg.Capture.OverlayCursor)},
			{"format", orDefault(cfg.Capture.Format, "png")},
		}},
		{"logging", [][2]string{
			{"log_level", orDefault(cfg.Logging.LogLevel, "$LOG_LEVEL")},
		}},
	}
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.GetConfigPath())
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save current configuration to file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatSaved("configuration saved to", config.GetConfigPath()))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSaveCmd)
	rootCmd.AddCommand(configCmd)
}

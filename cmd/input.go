package cmd

import (
	"github.com/bnema/wdotool/internal/logger"
	"github.com/bnema/wdotool/session"
	"github.com/spf13/cobra"
)

var moveCmd = &cobra.Command{
	Use:   "move",
	Short: "Move the pointer to an absolute position",
	Long: `Move the pointer to (x, y) on a surface of --width by --height.
Give --x-max or --y-max to sample the coordinate from a range instead.
With --output the surface is mapped onto that output rather than the
whole output layout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		width, _ := cmd.Flags().GetUint32("width")
		height, _ := cmd.Flags().GetUint32("height")
		x, err := valueFlags(cmd, "x")
		if err != nil {
			return err
		}
		y, err := valueFlags(cmd, "y")
		if err != nil {
			return err
		}

		var opts []session.Option
		if name, _ := cmd.Flags().GetString("output"); name != "" {
			opts = append(opts, session.WithPointerOutput(name))
		}

		return withSession(func(s *session.Session) error {
			return s.MoveMouse(width, height, x, y)
		}, opts...)
	},
}

var clickCmd = &cobra.Command{
	Use:       "click [left|right|middle]",
	Short:     "Click a pointer button",
	Long:      `Press a pointer button, hold it for --duration milliseconds and release it.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"left", "right", "middle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		button, err := session.ParseButton(name)
		if err != nil {
			return err
		}
		d, err := valueFlags(cmd, "duration")
		if err != nil {
			return err
		}

		return withSession(func(s *session.Session) error {
			return s.Click(button, d)
		})
	},
}

var keyCmd = &cobra.Command{
	Use:   "key CODE|NAME",
	Short: "Press a key by evdev code or name",
	Long: `Press the key with the given Linux evdev code (for example 30) or key
name (for example "a", "enter" or "KEY_LEFTSHIFT"), hold it for --duration
milliseconds and release it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := session.ParseKeyCode(args[0])
		if err != nil {
			return err
		}
		d, err := valueFlags(cmd, "duration")
		if err != nil {
			return err
		}

		return withSession(func(s *session.Session) error {
			logger.Debug("pressing key", "code", code, "duration", d)
			return s.KeyPress(code, d)
		})
	},
}

func init() {
	moveCmd.Flags().Uint32("width", 0, "surface width the coordinates refer to")
	moveCmd.Flags().Uint32("height", 0, "surface height the coordinates refer to")
	moveCmd.Flags().Uint32("x", 0, "x coordinate")
	moveCmd.Flags().Uint32("x-max", 0, "sample x between --x and --x-max")
	moveCmd.Flags().Uint32("y", 0, "y coordinate")
	moveCmd.Flags().Uint32("y-max", 0, "sample y between --y and --y-max")
	moveCmd.Flags().StringP("output", "o", "", "map the surface onto this output")
	_ = moveCmd.MarkFlagRequired("width")
	_ = moveCmd.MarkFlagRequired("height")

	for _, c := range []*cobra.Command{clickCmd, keyCmd} {
		c.Flags().Uint32("duration", 50, "hold time in milliseconds")
		c.Flags().Uint32("duration-max", 0, "sample the hold time between --duration and --duration-max")
	}

	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(clickCmd)
	rootCmd.AddCommand(keyCmd)
}

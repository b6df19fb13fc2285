package cmd

import (
	"fmt"

	"github.com/bnema/wdotool/internal/config"
	"github.com/bnema/wdotool/internal/input"
	"github.com/bnema/wdotool/internal/logger"
	"github.com/bnema/wdotool/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version info set during build
	Version = "0.1.0-dev"
	Commit  = "none"
	Date    = "unknown"

	configFile string

	rootCmd = &cobra.Command{
		Use:   "wdotool",
		Short: "wdotool - drive a Wayland compositor like a user",
		Long: `wdotool moves the pointer, clicks, presses keys and takes screenshots on
wlroots-based Wayland compositors. It uses the virtual keyboard, virtual
pointer and screencopy protocols, so no kernel input devices are needed.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/wdotool/wdotool.toml)")
	flags.String("display", "", "Wayland display name or socket path (default is $WAYLAND_DISPLAY)")
	flags.String("log-level", "", "log level: debug, info, warn or error (default is $LOG_LEVEL)")

	_ = viper.BindPFlag("wayland.display", flags.Lookup("display"))
	_ = viper.BindPFlag("logging.log_level", flags.Lookup("log-level"))
}

func initConfig(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		config.SetConfigPath(configFile)
	}
	if err := config.Init(); err != nil {
		return err
	}

	if level := config.Get().Logging.LogLevel; level != "" {
		if err := logger.SetLevel(level); err != nil {
			return err
		}
	}
	logger.Debug("configuration loaded", "path", config.GetConfigPath())
	return nil
}

// sessionOptions maps the loaded configuration onto session options.
func sessionOptions(cfg *config.Config) ([]session.Option, error) {
	source, err := input.ParseKeymapSource(cfg.Keyboard.Keymap)
	if err != nil {
		return nil, err
	}
	selection, err := session.ParseSelection(cfg.Capture.Selection)
	if err != nil {
		return nil, err
	}

	return []session.Option{
		session.WithDisplay(cfg.Wayland.Display),
		session.WithKeymap(source, cfg.Keyboard.KeymapFile),
		session.WithDefaultOutput(cfg.Capture.Output),
		session.WithSelection(selection),
		session.WithOverlayCursor(cfg.Capture.OverlayCursor),
	}, nil
}

// withSession opens a session from the configuration plus extra, runs fn
// and closes the session.
func withSession(fn func(s *session.Session) error, extra ...session.Option) (err error) {
	opts, err := sessionOptions(config.Get())
	if err != nil {
		return err
	}
	opts = append(opts, extra...)

	s, err := session.Open(opts...)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close session: %w", cerr)
		}
	}()

	return fn(s)
}

// valueFlags reads a parameter given as --name and optional --name-max.
func valueFlags(cmd *cobra.Command, name string) (session.Value, error) {
	p, err := cmd.Flags().GetUint32(name)
	if err != nil {
		return session.Value{}, err
	}
	if !cmd.Flags().Changed(name + "-max") {
		return session.Exact(p), nil
	}
	pMax, err := cmd.Flags().GetUint32(name + "-max")
	if err != nil {
		return session.Value{}, err
	}
	return session.Range(p, pMax), nil
}

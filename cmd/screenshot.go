package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bnema/wdotool/internal/config"
	"github.com/bnema/wdotool/internal/logger"
	"github.com/bnema/wdotool/internal/ui"
	"github.com/bnema/wdotool/session"
	"github.com/spf13/cobra"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot FILE",
	Short: "Capture an output to an image file",
	Long: `Capture one output and write it to FILE. The format follows the file
extension (png, bmp, tiff or frame) unless --format is given. Use "-" to
write to stdout. --region X,Y,WxH captures only that rectangle of the
output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		outputName, _ := cmd.Flags().GetString("output")

		format, err := parseImageFormat(config.Get().Capture.Format)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("format") {
			name, _ := cmd.Flags().GetString("format")
			if format, err = parseImageFormat(name); err != nil {
				return err
			}
		} else if path != "-" {
			format = formatForPath(path, format)
		}

		var region *session.Region
		if cmd.Flags().Changed("region") {
			spec, _ := cmd.Flags().GetString("region")
			r, err := parseRegion(spec)
			if err != nil {
				return err
			}
			region = &r
		}

		var frame *session.Frame
		err = withSession(func(s *session.Session) error {
			if region != nil {
				frame, err = s.ScreenshotRegion(outputName, *region)
			} else {
				frame, err = s.Screenshot(outputName)
			}
			return err
		})
		if err != nil {
			return err
		}
		logger.Debug("captured frame", "width", frame.Width, "height", frame.Height, "source", frame.SourceFormat)

		if path == "-" {
			w := bufio.NewWriter(cmd.OutOrStdout())
			if err := encodeFrame(w, frame, format); err != nil {
				return err
			}
			return w.Flush()
		}

		if err := writeFrameFile(path, frame, format); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatSaved(fmt.Sprintf("%dx%d %s", frame.Width, frame.Height, format), path))
		return nil
	},
}

// parseRegion reads a rectangle written as X,Y,WxH.
func parseRegion(s string) (session.Region, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return session.Region{}, fmt.Errorf("invalid region %q (want X,Y,WxH)", s)
	}
	w, h, ok := strings.Cut(parts[2], "x")
	if !ok {
		return session.Region{}, fmt.Errorf("invalid region %q (want X,Y,WxH)", s)
	}

	var vals [4]int32
	for i, field := range []string{parts[0], parts[1], w, h} {
		v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 32)
		if err != nil {
			return session.Region{}, fmt.Errorf("invalid region %q: %w", s, err)
		}
		vals[i] = int32(v)
	}
	if vals[2] <= 0 || vals[3] <= 0 {
		return session.Region{}, fmt.Errorf("invalid region %q: size must be positive", s)
	}
	return session.Region{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

func writeFrameFile(path string, frame *session.Frame, format imageFormat) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			err = errors.Join(err, os.Remove(path))
		}
	}()

	w := bufio.NewWriter(f)
	if err := encodeFrame(w, frame, format); err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return w.Flush()
}

func init() {
	screenshotCmd.Flags().StringP("output", "o", "", "output to capture (default from config, else the first output)")
	screenshotCmd.Flags().String("format", "", "image format: png, bmp, tiff or frame")
	screenshotCmd.Flags().String("region", "", "capture only X,Y,WxH of the output")

	rootCmd.AddCommand(screenshotCmd)
}

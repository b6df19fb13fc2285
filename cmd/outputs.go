package cmd

import (
	"fmt"
	"strconv"

	"github.com/bnema/wdotool/internal/ui"
	"github.com/bnema/wdotool/session"
	"github.com/spf13/cobra"
)

var outputsCmd = &cobra.Command{
	Use:   "outputs",
	Short: "List the compositor's outputs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var outputs []session.OutputInfo
		if err := withSession(func(s *session.Session) error {
			outputs = s.Outputs()
			return nil
		}); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.Table(
			[]string{"NAME", "SIZE", "POSITION", "SCALE", "REFRESH", "DESCRIPTION"},
			outputRows(outputs),
		).String())
		for _, w := range outputWarnings(outputs) {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatWarning(w))
		}
		return nil
	},
}

func outputWarnings(outputs []session.OutputInfo) []string {
	if len(outputs) == 0 {
		return []string{"compositor advertises no outputs, screenshots will fail"}
	}
	var warnings []string
	for _, o := range outputs {
		if o.Lost {
			warnings = append(warnings, fmt.Sprintf("output %s changed mode or transform and cannot be captured by this session", o.Name))
		}
	}
	return warnings
}

func outputRows(outputs []session.OutputInfo) [][]string {
	rows := make([][]string, 0, len(outputs))
	for _, o := range outputs {
		rows = append(rows, []string{
			ui.FormatStatus(!o.Lost, o.Name),
			fmt.Sprintf("%dx%d", o.Width, o.Height),
			fmt.Sprintf("%d,%d", o.X, o.Y),
			strconv.Itoa(int(o.Scale)),
			fmt.Sprintf("%.2f Hz", float64(o.Refresh)/1000),
			o.Description,
		})
	}
	return rows
}

var globalsCmd = &cobra.Command{
	Use:   "globals",
	Short: "List the globals the compositor advertises",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var globals []session.Global
		if err := withSession(func(s *session.Session) error {
			globals = s.Globals()
			return nil
		}); err != nil {
			return err
		}

		rows := make([][]string, 0, len(globals))
		for _, g := range globals {
			rows = append(rows, []string{strconv.FormatUint(uint64(g.Name), 10), g.Interface, strconv.FormatUint(uint64(g.Version), 10)})
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Table([]string{"NAME", "INTERFACE", "VERSION"}, rows).String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(outputsCmd)
	rootCmd.AddCommand(globalsCmd)
}

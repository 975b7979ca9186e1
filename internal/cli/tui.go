package cli

import "github.com/spf13/cobra"

func newTUICmd(app *App) *cobra.Command {
	var noColor bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive terminal list (same as running without a command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app, noColor)
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colors")
	return cmd
}

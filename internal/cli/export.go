package cli

import (
	"github.com/spf13/cobra"

	"todoblock/internal/client"
	"todoblock/internal/model"
	"todoblock/internal/publish"
)

func newExportCmd(app *App) *cobra.Command {
	opts := &itemsOpts{}
	var to string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the list as a markdown file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return writeErr(cmd, err)
			}
			loc, err := app.localizer()
			if err != nil {
				return writeErr(cmd, err)
			}
			t, closeFn, err := transport(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeFn()

			vs := model.ViewState{CurrentGroup: model.GroupID(opts.showGroup), IncludeHidden: !opts.hideDone}
			vm, err := client.New(t, cfg.InstanceID, client.WithViewState(vs)).Refresh(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}

			res, err := publish.WriteList(vm, loc, to, publish.WriteOptions{Overwrite: overwrite, ActorID: cfg.Actor})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Output directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing export")
	cmd.Flags().IntVar(&opts.showGroup, "show-group", 0, "Only export items of this group (0 = all)")
	cmd.Flags().BoolVar(&opts.hideDone, "hide-done", false, "Leave hidden completed items out")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

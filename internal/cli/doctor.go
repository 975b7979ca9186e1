package cli

import (
	"github.com/spf13/cobra"

	"todoblock/internal/store"
)

func newDoctorCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the local database for problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			rep, err := st.Doctor(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := writeOut(cmd, app, map[string]any{
				"data": rep,
				"meta": map[string]any{"db": cfg.DBPath},
			}); err != nil {
				return err
			}
			if rep.HasErrors() {
				return store.ErrDoctorIssuesFound
			}
			return nil
		},
	}
}

func newBackupCmd(app *App) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy the local database to a new file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			if err := st.Backup(cmd.Context(), to); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"written": []string{to}}})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Backup file path")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

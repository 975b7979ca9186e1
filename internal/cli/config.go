package cli

import (
	"github.com/spf13/cobra"

	"todoblock/internal/config"
	"todoblock/internal/i18n"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (defaults, file, environment, flags)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return writeErr(cmd, err)
			}
			dir, _ := config.Dir()
			return writeOut(cmd, app, map[string]any{
				"data": cfg,
				"meta": map[string]any{"home": dir},
			})
		},
	})
	return cmd
}

func newLocalesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "locales",
		Short: "List the UI languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := i18n.Default()
			if err != nil {
				return writeErr(cmd, err)
			}
			type locale struct {
				Locale string `json:"locale"`
				Name   string `json:"name"`
			}
			var out []locale
			for _, l := range b.Locales() {
				out = append(out, locale{Locale: l, Name: b.Localizer(l).String("pluginname")})
			}
			return writeOut(cmd, app, map[string]any{"data": out, "meta": map[string]any{"base": i18n.BaseLocale}})
		},
	}
}

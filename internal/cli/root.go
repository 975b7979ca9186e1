package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"todoblock/internal/apperr"
	"todoblock/internal/client"
	"todoblock/internal/config"
	"todoblock/internal/format"
	"todoblock/internal/i18n"
	"todoblock/internal/mutate"
	"todoblock/internal/store"
	"todoblock/internal/tui"
)

type App struct {
	ConfigPath string
	ActorID    string
	Server     string
	Locale     string
	PrettyJSON bool
	Format     string

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "todoblock",
		Short:        "Personal to-do list: web widget, CLI and TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  todoblock

  # Serve the web widget
  todoblock serve --addr 127.0.0.1:3340

  # Scriptable commands
  todoblock items add "Buy milk" --due 2024-03-14 --group 2
  todoblock items list --hide-done
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app, false)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if _, err := format.Parse(app.Format); err != nil {
			return writeErr(cmd, err)
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("TODOBLOCK_CONFIG", ""), "Path to config.toml")
	cmd.PersistentFlags().StringVar(&app.ActorID, "actor", "", "Actor id (overrides the configured actor)")
	cmd.PersistentFlags().StringVar(&app.Server, "server", envOr("TODOBLOCK_SERVER", ""), "Base URL of a running server; empty uses the local database")
	cmd.PersistentFlags().StringVar(&app.Locale, "locale", "", "UI language (overrides the configured locale)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TODOBLOCK_FORMAT", "json"), "Output format (json|edn)")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newItemsCmd(app))
	cmd.AddCommand(newViewCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newLocalesCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newDoctorCmd(app))
	cmd.AddCommand(newBackupCmd(app))

	return cmd
}

func (app *App) config() (config.Config, error) {
	if app.cfg != nil {
		return *app.cfg, nil
	}
	cfg, err := config.Load(app.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if v := strings.TrimSpace(app.ActorID); v != "" {
		cfg.Actor = v
	}
	if v := strings.TrimSpace(app.Locale); v != "" {
		cfg.Locale = v
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	app.cfg = &cfg
	return cfg, nil
}

func (app *App) localizer() (*i18n.Localizer, error) {
	cfg, err := app.config()
	if err != nil {
		return nil, err
	}
	b, err := i18n.Default()
	if err != nil {
		return nil, err
	}
	return b.Localizer(cfg.Locale), nil
}

// openService opens the configured database. The returned func closes it.
func openService(ctx context.Context, app *App) (*mutate.Service, func() error, error) {
	cfg, err := app.config()
	if err != nil {
		return nil, nil, err
	}
	tz, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	loc, err := app.localizer()
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(ctx, app)
	if err != nil {
		return nil, nil, err
	}
	return &mutate.Service{Store: st, Labels: loc, Location: tz}, st.Close, nil
}

func openStore(ctx context.Context, app *App) (*store.Store, error) {
	cfg, err := app.config()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.DBPath)
}

// transport picks the remote server when --server is set, else the local database.
func transport(ctx context.Context, app *App) (client.Transport, func() error, error) {
	if base := strings.TrimSpace(app.Server); base != "" {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, nil, err
		}
		return client.HTTP{BaseURL: base, Client: &http.Client{Jar: jar}}, func() error { return nil }, nil
	}
	cfg, err := app.config()
	if err != nil {
		return nil, nil, err
	}
	svc, closeFn, err := openService(ctx, app)
	if err != nil {
		return nil, nil, err
	}
	return client.Local{Service: svc, Actor: cfg.Actor}, closeFn, nil
}

func runTUI(cmd *cobra.Command, app *App, noColor bool) error {
	cfg, err := app.config()
	if err != nil {
		return writeErr(cmd, err)
	}
	t, closeFn, err := transport(cmd.Context(), app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer closeFn()
	loc, err := app.localizer()
	if err != nil {
		return writeErr(cmd, err)
	}
	tz, err := cfg.Location()
	if err != nil {
		return writeErr(cmd, err)
	}
	return tui.Run(t, tui.Options{InstanceID: cfg.InstanceID, Localizer: loc, Location: tz, NoColor: noColor})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

// writeErr prints err as "CODE: message" for domain errors, or as is.
func writeErr(cmd *cobra.Command, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", ae.Code, err.Error())
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"todoblock/internal/i18n"
	"todoblock/internal/web"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var authMode string
	var open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the to-do widget over HTTP",
		Long: strings.TrimSpace(`
Serve the widget page on / and its operations on POST /api/<method>.

With --auth none every request acts as the configured actor. With --auth dev
each browser picks an identity on /login and keeps it in a signed cookie.
`),
		Example: strings.TrimSpace(`
# Serve on localhost as the configured actor
todoblock serve --addr 127.0.0.1:3340

# Let each browser choose who it is
todoblock serve --auth dev
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return writeErr(cmd, err)
			}
			if v := strings.TrimSpace(addr); v != "" {
				cfg.Addr = v
			}
			if v := strings.TrimSpace(authMode); v != "" {
				cfg.AuthMode = v
			}
			if err := cfg.Validate(); err != nil {
				return writeErr(cmd, err)
			}

			svc, closeFn, err := openService(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeFn()
			// The server localizes per request.
			svc.Labels = nil

			bundle, err := i18n.Default()
			if err != nil {
				return writeErr(cmd, err)
			}
			// Browsers negotiate their language unless --locale pins one.
			locale := strings.TrimSpace(app.Locale)
			srv, err := web.NewServer(web.ServerConfig{
				Addr:       cfg.Addr,
				Service:    svc,
				Bundle:     bundle,
				Locale:     locale,
				AuthMode:   cfg.AuthMode,
				Actor:      cfg.Actor,
				SecretPath: cfg.SecretPath,
				InstanceID: cfg.InstanceID,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", srv.Addr())
			if err != nil {
				return writeErr(cmd, err)
			}
			url := "http://" + ln.Addr().String() + "/"

			opened := false
			openErr := ""
			if open {
				if err := openPath(url); err != nil {
					openErr = err.Error()
				} else {
					opened = true
				}
			}
			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      ln.Addr().String(),
					"url":       url,
					"authMode":  cfg.AuthMode,
					"db":        cfg.DBPath,
					"opened":    opened,
					"openError": openErr,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "todoblock running at %s\n", url)

			return serve(cmd.Context(), ln, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Bind address (host:port or :port; default from config)")
	cmd.Flags().StringVar(&authMode, "auth", "", "Identity mode (none|dev; default from config)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the widget in your default browser")
	return cmd
}

// serve runs until ctx is cancelled or SIGINT/SIGTERM arrives, then drains
// in-flight requests.
func serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hs := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}

func openPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("empty path")
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path).Run()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path).Run()
	default:
		return exec.Command("xdg-open", path).Run()
	}
}

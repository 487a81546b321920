package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/semshift/semshift/internal/api"
	"github.com/semshift/semshift/internal/config"
	"github.com/semshift/semshift/internal/engine"
	"github.com/semshift/semshift/internal/logging"
	"github.com/semshift/semshift/internal/ws"
	"github.com/semshift/semshift/web"
)

var (
	servePort    int
	serveDevMode bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the migration status web UI",
	Long: `Host the embedded status page and JSON API on localhost. Runs can be
started, watched over websocket, and their artifacts fetched from the
browser.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg *config.Config
		if c, err := config.Load(cfgFile); err == nil {
			cfg = c
		} else if cfgFile != "" {
			return fmt.Errorf("loading config: %w", err)
		}

		logCfg := config.LogConfig{Level: logLevel, Format: "text"}
		if cfg != nil {
			logCfg = cfg.Logging
			logCfg.Level = logLevel
		}
		logger, err := logging.Setup(logCfg)
		if err != nil {
			return fmt.Errorf("configuring logging: %w", err)
		}

		port := servePort
		if port == 0 {
			port = 8080
			if cfg != nil && cfg.Serve.Port != 0 {
				port = cfg.Serve.Port
			}
		}

		eng := engine.New(cfg, logger)

		hub := ws.NewHub(logger)
		go hub.Run()

		distFS, err := fs.Sub(web.DistFS, "dist")
		if err != nil {
			return fmt.Errorf("loading embedded web UI: %w", err)
		}

		srv := api.New(eng, logger, port,
			api.WithStaticFS(distFS),
			api.WithHub(hub),
			api.WithDevMode(serveDevMode),
		)
		hub.SetStateProvider(srv.FullState)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		fmt.Fprintf(os.Stderr, "semshift status UI: http://localhost:%d\n", port)

		select {
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return err
			}
		case <-ctx.Done():
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port for the status server (default from config, else 8080)")
	serveCmd.Flags().BoolVar(&serveDevMode, "dev", false, "enable CORS for development mode")
	rootCmd.AddCommand(serveCmd)
}

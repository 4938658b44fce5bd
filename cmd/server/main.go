package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docviewer/internal/api"
	"github.com/dgallion1/docviewer/internal/backend"
	"github.com/dgallion1/docviewer/internal/config"
	"github.com/dgallion1/docviewer/internal/session"
	"github.com/dgallion1/docviewer/internal/source"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "docviewer",
	Short: "Side-by-side viewer for chunked documents",
	Long: `docviewer shows a source document, its chunk markup and the chunk
list for one page at a time, keeping the three panes on the same page.
Chunks are read from the document service at backend_url.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "docview.yml", "config file path")
	rootCmd.AddCommand(pagesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newBackend(cfg *config.Config, log *slog.Logger) *backend.Client {
	return backend.NewClient(cfg.BackendURL, backend.Options{
		Timeout:    cfg.BackendTimeout,
		MaxRetries: cfg.BackendRetries,
		RPS:        cfg.BackendRPS,
		Burst:      cfg.BackendBurst,
	}, log.With("component", "backend"))
}

func serve() error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := loadConfig()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		return err
	}

	client := newBackend(cfg, log)
	library := source.NewLibrary(cfg.DocDir, cfg.SourceCacheTTL, log.With("component", "source"))
	sessions := session.NewStore(cfg.SessionTTL, cfg.CookieSecure)

	srv := api.NewServer(client, library, sessions, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.BackendTimeout*time.Duration(cfg.BackendRetries+1) + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		client.Close()
	}()

	log.Info("starting docviewer",
		"port", cfg.Port,
		"backend_url", client.BaseURL(),
		"doc_dir", cfg.DocDir,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		return err
	}
	return nil
}

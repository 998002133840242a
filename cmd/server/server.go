package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/axellelanca/shortlinks/cmd"
	"github.com/axellelanca/shortlinks/internal/api"
	"github.com/axellelanca/shortlinks/internal/config"
	"github.com/axellelanca/shortlinks/internal/logger"
	"github.com/axellelanca/shortlinks/internal/metrics"
	"github.com/axellelanca/shortlinks/internal/monitor"
	"github.com/axellelanca/shortlinks/internal/repository"
	"github.com/axellelanca/shortlinks/internal/services"
)

// RunServerCmd représente la commande 'run-server' de Cobra.
// C'est le point d'entrée pour lancer le serveur de l'application.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Starts the HTTP API, the click workers and the optional URL monitor.",
	Long: `Opens the configured link store, starts the asynchronous click workers and
the optional destination monitor, then serves the HTTP API until SIGINT/SIGTERM.
On shutdown the HTTP server stops accepting requests, queued clicks are drained
and the store is closed.`,
	RunE: func(c *cobra.Command, args []string) error {
		return run(cmd.Cfg)
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}

func run(cfg *config.Config) error {
	log := slog.Default().With("component", "server")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := repository.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open link store: %w", err)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector("shortlinks", nil)
	}

	gen, err := services.NewNanoidGenerator(cfg.Shortener.CodeLength)
	if err != nil {
		_ = repo.Close()
		return err
	}

	recorder := services.NewClickService(repo)
	dispatcher := services.StartClickWorkers(cfg.Analytics.WorkerCount, cfg.Analytics.BufferSize, recorder, collector)
	linkService := services.NewLinkService(repo, gen, dispatcher, services.WithMaxAttempts(cfg.Shortener.MaxAttempts))
	statsService := services.NewStatsService(repo)

	if cfg.Monitor.Enabled {
		urlMonitor := monitor.NewUrlMonitor(repo, cfg.Monitor.Schedule, collector)
		if err := urlMonitor.Start(ctx); err != nil {
			_ = repo.Close()
			return err
		}
	}

	cfg.Watch(func(next *config.Config) {
		if err := logger.SetLevel(next.Log.Level); err != nil {
			log.Warn("ignoring log level change", "error", err)
			return
		}
		log.Info("log level updated", "level", next.Log.Level)
	})

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Dependencies{
		Links:       linkService,
		Stats:       statsService,
		ShortURL:    cfg.ShortURL,
		Metrics:     collector,
		MetricsPath: cfg.Metrics.Path,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", srv.Addr, "base_url", cfg.Server.BaseURL, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	timeout := time.Duration(cfg.Shutdown.TimeoutSeconds) * time.Second
	wait := gfshutdown.GracefulShutdown(context.Background(), timeout, map[string]gfshutdown.Operation{
		// One operation so the steps run in order: stop traffic, drain clicks, close the store.
		"shortlinks": func(shutdownCtx context.Context) error {
			log.Info("shutting down")
			var errs []error
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("http server: %w", err))
			}
			cancel()
			if err := dispatcher.Stop(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("click workers: %w (%d clicks pending)", err, dispatcher.Pending()))
			}
			if err := repo.Close(); err != nil {
				errs = append(errs, fmt.Errorf("link store: %w", err))
			}
			return errors.Join(errs...)
		},
	})

	exitCode := <-wait
	log.Info("server stopped", "exit_code", exitCode)
	if exitCode != 0 {
		return fmt.Errorf("shutdown finished with exit code %d", exitCode)
	}
	return nil
}

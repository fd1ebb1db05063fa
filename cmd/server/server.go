package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/axellelanca/shortlink/cmd"
	"github.com/axellelanca/shortlink/internal/api"
	"github.com/axellelanca/shortlink/internal/models"
	"github.com/axellelanca/shortlink/internal/monitor"
	"github.com/axellelanca/shortlink/internal/registry"
	"github.com/axellelanca/shortlink/internal/repository"
	"github.com/axellelanca/shortlink/internal/workers"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// RunServerCmd représente la commande 'run-server' de Cobra.
// C'est le point d'entrée pour lancer le serveur de l'application.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Lance le serveur API de raccourcissement d'URLs et les processus de fond.",
	Long: `Cette commande initialise le registre en mémoire et l'archive de clics,
démarre les workers asynchrones pour les clics et le moniteur d'URLs,
puis lance le serveur HTTP.`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		cfg := cmd.Cfg
		if cfg == nil {
			log.Fatal("Configuration not loaded")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// The click archive: in-memory SQLite by default, so it lives and
		// dies with the process like the registry itself.
		db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to open click archive database: %v", err)
		}
		if err := db.AutoMigrate(&models.Click{}); err != nil {
			log.Fatalf("Failed to migrate click archive: %v", err)
		}
		clickRepo := repository.NewClickRepository(db)

		// The registry is the single source of truth for links and their
		// counters; everything else observes it through its methods.
		reg := registry.New(registry.Options{
			MaxLinks:   cfg.Registry.MaxLinks,
			CodeLength: cfg.Registry.CodeLength,
		})
		slog.Info("Registry initialized",
			"max_links", reg.Capacity(), "code_length", cfg.Registry.CodeLength)

		// Click queue plus worker pool draining it into the archive.
		clickQueue := make(chan models.Click, cfg.Analytics.BufferSize)
		api.ClickQueue = clickQueue
		wg := workers.StartClickWorkers(cfg.Analytics.WorkerCount, clickQueue, clickRepo)
		slog.Info("Click pipeline initialized",
			"buffer_size", cfg.Analytics.BufferSize, "workers", cfg.Analytics.WorkerCount)

		// URL health monitor, on its own cancellable context.
		monitorCtx, cancelMonitor := context.WithCancel(context.Background())
		defer cancelMonitor()
		if cfg.Monitor.Enabled {
			interval := time.Duration(cfg.Monitor.IntervalMinutes) * time.Minute
			urlMonitor := monitor.NewURLMonitor(reg, interval)
			go urlMonitor.Start(monitorCtx)
		}

		// Gin router with the API routes and middleware chain.
		if cfg.App.Env == "production" {
			gin.SetMode(gin.ReleaseMode)
		}
		router := gin.Default()
		limiter := api.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		api.SetupRoutes(router, reg, clickRepo, cfg.Server.BaseURL, limiter, cfg.Analytics.BufferSize)

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: router,
		}

		serverErr := make(chan error, 1)
		go func() {
			slog.Info("Starting server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()

		// Bloquer jusqu'à un signal d'arrêt ou une erreur serveur.
		select {
		case err := <-serverErr:
			log.Fatalf("Failed to start server: %v", err)
		case <-ctx.Done():
			slog.Info("Shutdown signal received, stopping server...")
		}

		// Graceful shutdown: stop accepting requests, then let the workers
		// drain whatever is left in the click queue.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		cancelMonitor()
		close(clickQueue)
		wg.Wait()

		slog.Info("Server stopped cleanly")
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}

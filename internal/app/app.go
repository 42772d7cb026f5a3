package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"bulk-mail-verify-go/internal/bouncer"
	"bulk-mail-verify-go/internal/config"
	"bulk-mail-verify-go/internal/db"
	"bulk-mail-verify-go/internal/handlers"
	"bulk-mail-verify-go/internal/metrics"
	"bulk-mail-verify-go/internal/ratelimit"
	"bulk-mail-verify-go/internal/scheduler"
	"bulk-mail-verify-go/internal/server"
	"bulk-mail-verify-go/internal/store"
	"bulk-mail-verify-go/internal/verifier"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Bulk Mail Verify Service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dbConn, err := db.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	client := bouncer.NewClient(cfg.Bouncer)
	st := store.New(dbConn, cfg.Limits.MaxActiveBatches)
	limiter := ratelimit.NewWindow(dbConn, cfg.Limits.RateLimitQuota, cfg.Limits.RateLimitBuffer)

	sched := scheduler.New()

	v := verifier.NewService(st, client, limiter, sched, m, cfg.Scheduler, cfg.Limits)
	v.RegisterJobs()

	h := handlers.NewHandlers(dbConn, st, v, sched)
	ipLimiter := ratelimit.NewIPLimiter(cfg.Limits.OpsRateRPS, cfg.Limits.OpsRateBurst)
	router := server.SetupRouter(h, ipLimiter)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}

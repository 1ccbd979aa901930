package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/yoockh/intervuo/config"
	"github.com/yoockh/intervuo/internal/app"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	a, err := app.New(bootCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	defer a.Close()

	if err := a.StartWorkers(ctx); err != nil {
		a.Log.WithError(err).Fatal("failed to start workers")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.Log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	a.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Log.WithError(err).Warn("graceful shutdown failed")
	}
}

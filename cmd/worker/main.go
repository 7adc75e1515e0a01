package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mzhuravlev/ai-tutor-backend/internal/bootstrap"
	"github.com/mzhuravlev/ai-tutor-backend/internal/config"
	"github.com/mzhuravlev/ai-tutor-backend/internal/core/domain"
	"github.com/mzhuravlev/ai-tutor-backend/internal/observability/logging"
	"github.com/mzhuravlev/ai-tutor-backend/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Events.SubscribeChatTurns(ctx, func(_ context.Context, event domain.ChatTurnEvent) error {
		workerMetrics.ObserveTurn("worker", string(event.Category), string(event.Method), event.LatencyMS)
		workerMetrics.ObserveFallbackDepth("worker", event.FallbackDepth)
		workerMetrics.ObserveEventLag("worker", time.Since(event.OccurredAt))

		logger.Info("chat turn consumed",
			"user_id", event.UserID,
			"session_id", event.SessionID,
			"category", event.Category,
			"method", event.Method,
			"model_used", event.ModelUsed,
			"fallback_depth", event.FallbackDepth,
			"source_count", event.SourceCount,
			"latency_ms", event.LatencyMS,
		)
		return nil
	})
	if err != nil {
		logger.Error("worker subscribe failed", "error", err)
		os.Exit(1)
	}
}

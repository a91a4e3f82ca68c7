package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/answer-evidence/internal/bootstrap"
	"github.com/kirillkom/answer-evidence/internal/config"
	"github.com/kirillkom/answer-evidence/internal/core/domain"
	"github.com/kirillkom/answer-evidence/internal/observability/logging"
	"github.com/kirillkom/answer-evidence/internal/observability/metrics"
)

const (
	serviceName     = "candidate-worker"
	questionTimeout = 30 * time.Second
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:    logger,
		Metrics:   workerMetrics.Registry(),
		WithQueue: true,
	})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	go app.Pressure.Run(ctx)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed",
		"question_subject", cfg.NATSQuestionSubject,
		"result_subject", cfg.NATSResultSubject,
	)
	err = app.Queue.SubscribeQuestions(ctx, func(handlerCtx context.Context, question domain.Question) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, questionTimeout)
		defer cancel()

		start := time.Now()
		workerMetrics.StartQuestion()
		candidates, err := handleQuestion(processCtx, app, question, cfg.SearchTopN)
		workerMetrics.FinishQuestion(serviceName, time.Since(start), candidates, err)
		return err
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func handleQuestion(ctx context.Context, app *bootstrap.App, question domain.Question, limit int) (int, error) {
	pool, err := app.Pipeline.Collect(ctx, question, limit)
	if err != nil {
		return 0, fmt.Errorf("collect candidates: %w", err)
	}
	if err := app.Queue.PublishPool(ctx, pool); err != nil {
		return 0, fmt.Errorf("publish pool: %w", err)
	}
	return len(pool.Candidates), nil
}

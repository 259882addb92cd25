package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/storefront-commerce/internal/config"
	"github.com/joao-fontenele/storefront-commerce/internal/domain"
	"github.com/joao-fontenele/storefront-commerce/internal/messaging"
	"github.com/joao-fontenele/storefront-commerce/internal/telemetry"
	"github.com/joao-fontenele/storefront-commerce/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}
	if cfg.EmailServiceURL == "" {
		logger.Error("EMAIL_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "receipt-worker", "0.1.0", cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	consumer := messaging.NewConsumer(cfg.KafkaBrokers, messaging.TopicOrderCompleted, "receipt-worker", logger,
		messaging.WithEventType(domain.EventOrderCompleted))
	defer func() { _ = consumer.Close() }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	receipts := worker.NewReceiptHandler(cfg.EmailServiceURL, httpClient, logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting receipt worker", "brokers", cfg.KafkaBrokers, "topic", messaging.TopicOrderCompleted)

	if err := consumer.Consume(ctx, receipts.Handle); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}

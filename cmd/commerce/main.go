package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/joao-fontenele/storefront-commerce/internal/accounts"
	"github.com/joao-fontenele/storefront-commerce/internal/auth"
	"github.com/joao-fontenele/storefront-commerce/internal/catalog"
	"github.com/joao-fontenele/storefront-commerce/internal/config"
	"github.com/joao-fontenele/storefront-commerce/internal/entitlements"
	"github.com/joao-fontenele/storefront-commerce/internal/fulfillment"
	"github.com/joao-fontenele/storefront-commerce/internal/messaging"
	"github.com/joao-fontenele/storefront-commerce/internal/orders"
	"github.com/joao-fontenele/storefront-commerce/internal/storage"
	"github.com/joao-fontenele/storefront-commerce/internal/telemetry"
	"github.com/joao-fontenele/storefront-commerce/internal/webhook"
)

const (
	serviceName    = "commerce"
	serviceVersion = "0.1.0"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateCommerce(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	amountUnit, err := fulfillment.ParseAmountUnit(cfg.AmountUnit)
	if err != nil {
		logger.Error("invalid PROCESSOR_AMOUNT_UNIT", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, serviceVersion, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	metrics, err := telemetry.NewCommerceMetrics(otel.Meter(serviceName))
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB(ctx, cfg.PostgresURL, cfg.PostgresSchema)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	awsCfg, err := storage.LoadAWSConfig(ctx, cfg.AWSEndpoint)
	if err != nil {
		logger.Error("failed to load aws config", "error", err)
		os.Exit(1)
	}

	webhookSecret := cfg.WebhookSecret
	if webhookSecret == "" {
		secrets := storage.NewSecretsClient(awsCfg)
		webhookSecret, err = secrets.GetSecret(ctx, cfg.WebhookSecretID)
		if err != nil {
			logger.Error("failed to load webhook secret", "error", err, "secret_id", cfg.WebhookSecretID)
			os.Exit(1)
		}
	}

	var publisher fulfillment.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderCompleted)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	profileRepo := accounts.NewProfileRepository(db)
	productRepo := catalog.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)
	entitlementStore := entitlements.NewStore(db)

	reconciler := fulfillment.NewReconciler(
		fulfillment.NewUserResolver(profileRepo, logger),
		productRepo,
		orderRepo,
		publisher,
		amountUnit,
		logger,
	)
	webhookHandler := webhook.NewHandler(
		webhook.NewVerifier(webhookSecret, cfg.WebhookTolerance),
		reconciler,
		cfg.WebhookTimeout,
		metrics,
		logger,
	)

	entitlementHandler := entitlements.NewHandler(
		entitlements.NewIssuer(entitlementStore, productRepo, storage.NewPresigner(awsCfg, cfg.DownloadBucket), cfg.DownloadExpiry, logger),
		entitlements.NewClaimer(productRepo, profileRepo, entitlementStore, logger),
		entitlementStore,
		metrics,
		logger,
	)
	orderHandler := orders.NewHandler(orderRepo, logger)
	sessions := auth.NewSessionVerifier(cfg.SessionSecret, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhooks/payments", telemetry.WithHTTPRoute(webhookHandler.HandlePayment))
	mux.HandleFunc("GET /downloads/{productId}", telemetry.WithHTTPRoute(entitlementHandler.HandleDownload))
	mux.HandleFunc("POST /free-claim/{productId}", telemetry.WithHTTPRoute(entitlementHandler.HandleFreeClaim))
	mux.HandleFunc("GET /purchases/{productId}", telemetry.WithHTTPRoute(entitlementHandler.HandlePurchaseStatus))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(sessions.Middleware(mux), serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting commerce service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

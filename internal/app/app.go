package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/huongnv75/customer-orders/internal/dal/postgres"
	inboxrepo "github.com/huongnv75/customer-orders/internal/dal/repositories/inbox/postgres"
	orderrepo "github.com/huongnv75/customer-orders/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/huongnv75/customer-orders/internal/dal/repositories/orderitem/postgres"
	"github.com/huongnv75/customer-orders/internal/otel"
	"github.com/huongnv75/customer-orders/internal/rabbitmq"
	"github.com/huongnv75/customer-orders/internal/service/services/ingestsvc"
	"github.com/huongnv75/customer-orders/internal/service/services/ordersvc"
	"github.com/huongnv75/customer-orders/internal/transport/consumer"
	httptransport "github.com/huongnv75/customer-orders/internal/transport/http"
	inboxworker "github.com/huongnv75/customer-orders/internal/worker/inbox"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 100
)

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	ingestSvc      *ingestsvc.IngestService
	transport      *httptransport.HTTPTransport
	consumerTransp *consumer.Consumer
	inboxWorker    *inboxworker.Worker
	rabbitMqClient *rabbitmq.Client
	postgresClient *postgres.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()
	postgresClient := postgres.MustNewClient()
	rabbitMqClient := rabbitmq.MustNewClient()

	orderRepository := orderrepo.NewOrderRepository(postgresClient.Pool())
	orderItemRepository := orderitemrepo.NewOrderItemRepository(postgresClient.Pool())
	inboxRepository := inboxrepo.NewInboxRepository(postgresClient.Pool())

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithOrderRepository(orderRepository),
		ordersvc.WithOrderItemRepository(orderItemRepository),
	)

	ingestSvc := ingestsvc.MustNewIngestService(
		ingestsvc.WithPostgresClient(postgresClient),
	)

	transport := httptransport.NewHTTPTransport(orderSvc)
	transport.RegisterRoutes()

	consumerTransp := consumer.NewConsumer(rabbitMqClient, ingestSvc, inboxRepository)

	pollInterval := viper.GetDuration("inbox.poll_interval")
	if pollInterval == 0 {
		pollInterval = defaultPollInterval
	}
	batchSize := viper.GetInt("inbox.batch_size")
	if batchSize == 0 {
		batchSize = defaultBatchSize
	}
	inboxWorker := inboxworker.NewWorker(inboxRepository, ingestSvc, pollInterval, batchSize)

	return &App{
		orderSvc:       orderSvc,
		ingestSvc:      ingestSvc,
		transport:      transport,
		consumerTransp: consumerTransp,
		inboxWorker:    inboxWorker,
		rabbitMqClient: rabbitMqClient,
		postgresClient: postgresClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting consumer")
		if err := a.consumerTransp.Run(ctx); err != nil {
			slog.Error("Consumer error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting inbox worker")
		a.inboxWorker.Start(ctx)
	}()

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown stops components in order: HTTP server, inbox worker,
// consumer, RabbitMQ, Postgres, tracing.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	a.inboxWorker.Stop()
	slog.Info("Inbox worker stopped gracefully")

	if err := a.consumerTransp.Shutdown(); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	} else {
		slog.Info("Consumer stopped gracefully")
	}

	if err := a.rabbitMqClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Otel trace provider close error", "error", err)
	} else {
		slog.Info("Otel trace provider closed gracefully")
	}

	slog.Info("Application shutdown complete")
}

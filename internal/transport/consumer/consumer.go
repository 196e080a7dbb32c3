package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/huongnv75/customer-orders/internal/dal/interfaces/iinboxrepo"
	"github.com/huongnv75/customer-orders/internal/rabbitmq"
	"github.com/huongnv75/customer-orders/internal/service/models/inbox"
	"github.com/huongnv75/customer-orders/internal/service/models/order"
)

const (
	defaultMaxRetries = 5
	firstRetryDelay   = 30 * time.Second
)

// service represents the service layer interface.
type service interface {
	ApplyOrderSnapshot(ctx context.Context, snapshot order.Order) error
}

// Consumer ingests order snapshot events from RabbitMQ into the read model.
type Consumer struct {
	client    *rabbitmq.Client
	service   service
	inboxRepo iinboxrepo.IInboxRepository
	queue     amqp.Queue
	stop      chan struct{}
	done      chan struct{}
}

// NewConsumer creates a new Consumer.
func NewConsumer(
	client *rabbitmq.Client,
	service service,
	inboxRepo iinboxrepo.IInboxRepository,
) *Consumer {
	queueName := viper.GetString("rabbitmq.queue")
	if queueName == "" {
		panic("rabbitmq.queue is not set in config")
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       queueName,
		Durable:    true,
		AutoDelete: false,
		Exclusive:  false,
		NoWait:     false,
	})
	if err != nil {
		panic(err)
	}

	if prefetch := viper.GetInt("rabbitmq.prefetch"); prefetch > 0 {
		if err := client.SetPrefetch(prefetch); err != nil {
			panic(err)
		}
	}

	return &Consumer{
		client:    client,
		service:   service,
		inboxRepo: inboxRepo,
		queue:     queue,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run starts consuming messages from RabbitMQ.
func (c *Consumer) Run(ctx context.Context) error {
	consumerTag := viper.GetString("rabbitmq.consumer_tag")
	if consumerTag == "" {
		consumerTag = "orders-svc"
	}

	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:     c.queue.Name,
		Consumer:  consumerTag,
		AutoAck:   false,
		Exclusive: viper.GetBool("rabbitmq.exclusive"),
		NoLocal:   viper.GetBool("rabbitmq.no_local"),
		NoWait:    viper.GetBool("rabbitmq.no_wait"),
	})
	if err != nil {
		return err
	}

	slog.Info("Consumer started", "queue", c.queue.Name, "consumer_tag", consumerTag)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(50)

	go func() {
		for {
			select {
			case <-c.stop:
				slog.Info("Stopping consumer")
				close(c.done)

				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("Message channel closed")
					close(c.done)

					return
				}

				g.Go(func() error {
					return c.handleMessage(gctx, msg)
				})
			}
		}
	}()

	<-c.done
	// wait for in-flight deliveries to settle
	_ = g.Wait()

	return nil
}

// handleMessage shields the group from per-delivery failures. Each message's
// disposition (ack, nack, park) is settled inside processMessage; returning
// its error here would cancel the context shared by every other in-flight
// delivery.
func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) error {
	if err := c.processMessage(ctx, msg); err != nil {
		slog.Error("Failed to process message", "error", err, "delivery_tag", msg.DeliveryTag)
	}

	return nil
}

// processMessage applies a single order snapshot. Snapshots that fail to
// apply are parked in the inbox table and acknowledged; the inbox worker
// owns retries from there. Malformed payloads are rejected outright.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) error {
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.processMessage")
	defer span.End()

	slog.Info("Received message", "delivery_tag", msg.DeliveryTag)

	var snapshot order.Order
	if err := json.Unmarshal(msg.Body, &snapshot); err != nil {
		slog.Error("Failed to unmarshal order snapshot", "error", err)
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return err
	}

	if err := c.service.ApplyOrderSnapshot(ctx, snapshot); err != nil {
		slog.Error("Failed to apply order snapshot, parking in inbox",
			"error", err, "order_id", snapshot.ID)

		if err := c.parkMessage(ctx, msg, err); err != nil {
			slog.Error("Failed to park message in inbox", "error", err)
			if err := msg.Nack(false, true); err != nil {
				slog.Error("Failed to nack message", "error", err)
			}

			return err
		}
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)

		return err
	}

	return nil
}

func (c *Consumer) parkMessage(ctx context.Context, msg amqp.Delivery, cause error) error {
	messageID := msg.MessageId
	if messageID == "" {
		messageID = uuid.NewString()
	}

	maxRetries := viper.GetInt("inbox.max_retries")
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}

	now := time.Now()

	return c.inboxRepo.Insert(ctx, inbox.Message{
		MessageID:   messageID,
		QueueName:   c.queue.Name,
		RoutingKey:  msg.RoutingKey,
		Payload:     msg.Body,
		ContentType: msg.ContentType,
		RetryCount:  0,
		MaxRetries:  maxRetries,
		LastError:   cause.Error(),
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now.Add(firstRetryDelay),
	})
}

// Shutdown gracefully shuts down the consumer.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")
	close(c.stop)

	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}

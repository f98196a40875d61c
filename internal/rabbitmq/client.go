package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/GoArmGo/BookCatalog/internal/config"
	"github.com/GoArmGo/BookCatalog/internal/core/ports"
	"github.com/GoArmGo/BookCatalog/internal/messaging/payloads"
)

const (
	publishTimeout = 5 * time.Second
	prefetchCount  = 16
	consumerTag    = "catalog-audit"
)

var (
	_ ports.CatalogEventPublisher = (*Client)(nil)
	_ ports.CatalogEventConsumer  = (*Client)(nil)
)

// Client представляет собой клиент RabbitMQ: публикует события каталога
// и раздаёт их воркеру аудита.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  *slog.Logger
}

// NewClient подключается к брокеру и объявляет очередь событий
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.RabbitMQ.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// Объявление идемпотентно: существующая очередь не меняется
	q, err := ch.QueueDeclare(
		cfg.RabbitMQ.RabbitMQQueueName, // name
		true,                           // durable
		false,                          // delete when unused
		false,                          // exclusive
		false,                          // no-wait
		nil,                            // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare a queue: %w", err)
	}

	logger.Info("rabbitmq connected", "queue", q.Name, "messages", q.Messages)
	return &Client{conn: conn, channel: ch, queue: q, logger: logger}, nil
}

// Close закрывает канал и соединение
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	c.logger.Info("rabbitmq connection closed")
	return errors.Join(errs...)
}

// PublishCatalogEvent публикует событие в очередь. ID события становится MessageId,
// по нему воркер отсеивает повторные доставки.
func (c *Client) PublishCatalogEvent(ctx context.Context, payload payloads.CatalogEventPayload) error {
	msg, err := newPublishing(payload)
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		publishCtx,
		"",           // exchange
		c.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}
	c.logger.Debug("catalog event published", "queue", c.queue.Name, "event_id", payload.ID, "type", payload.Type)
	return nil
}

func newPublishing(payload payloads.CatalogEventPayload) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal payload to JSON: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    payload.ID.String(),
		Type:         payload.Type,
		Timestamp:    payload.OccurredAt,
		Body:         body,
	}, nil
}

// StartConsumingCatalogEvents регистрирует потребителя и обрабатывает сообщения
// в отдельной горутине до отмены ctx или закрытия канала.
func (c *Client) StartConsumingCatalogEvents(ctx context.Context, handler func(context.Context, payloads.CatalogEventPayload) error) (<-chan struct{}, error) {
	if err := c.channel.Qos(prefetchCount, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.ConsumeWithContext(
		ctx,
		c.queue.Name, // queue
		consumerTag,  // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register a consumer: %w", err)
	}

	c.logger.Info("consumer registered", "queue", c.queue.Name)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Info("rabbitmq delivery channel closed, stopping consumer")
					return
				}
				c.settle(msg, handleDelivery(ctx, msg.Body, handler, c.logger))
			case <-ctx.Done():
				c.logger.Info("context cancelled, stopping rabbitmq consumer")
				return
			}
		}
	}()

	return done, nil
}

func (c *Client) settle(msg amqp.Delivery, o outcome) {
	var err error
	switch o {
	case ack:
		err = msg.Ack(false)
	case requeue:
		err = msg.Nack(false, true)
	case drop:
		err = msg.Nack(false, false)
	}
	if err != nil {
		c.logger.Error("failed to settle delivery", "delivery_tag", msg.DeliveryTag, "error", err)
	}
}

type outcome int

const (
	ack outcome = iota
	requeue
	drop
)

// handleDelivery решает судьбу сообщения. Нечитаемое сообщение выбрасывается,
// чтобы не крутиться в очереди вечно; ошибка обработчика возвращает его в очередь.
func handleDelivery(ctx context.Context, body []byte, handler func(context.Context, payloads.CatalogEventPayload) error, logger *slog.Logger) outcome {
	var payload payloads.CatalogEventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Error("failed to unmarshal catalog event", "error", err, "body", string(body))
		return drop
	}

	if err := handler(ctx, payload); err != nil {
		logger.Error("failed to process catalog event", "event_id", payload.ID, "error", err)
		return requeue
	}
	return ack
}

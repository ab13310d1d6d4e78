package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"OrderPulse/entity"
	"OrderPulse/internal/config"
	"OrderPulse/internal/lib/sl"
)

// RabbitEmitter mirrors inbox events onto a RabbitMQ queue for external
// consumers (notification workers, analytics). Publishing is best-effort:
// connection problems are logged and the event is dropped.
type RabbitEmitter struct {
	channel *amqp091.Channel
	conn    *amqp091.Connection
	queue   string
	log     *slog.Logger
}

type rabbitEvent struct {
	Type    string      `json:"type"`
	Tenant  string      `json:"tenant"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

// NewRabbitEmitter connects and declares the queue. Returns nil when the
// transport is disabled in config.
func NewRabbitEmitter(conf *config.Config, logger *slog.Logger) (*RabbitEmitter, error) {
	if !conf.Rabbit.Enabled || conf.Rabbit.URL == "" {
		return nil, nil
	}

	conn, err := amqp091.Dial(conf.Rabbit.URL)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	_, err = channel.QueueDeclare(conf.Rabbit.Queue, true, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitEmitter{
		channel: channel,
		conn:    conn,
		queue:   conf.Rabbit.Queue,
		log:     logger.With(sl.Module("rabbit.emitter")),
	}, nil
}

func (e *RabbitEmitter) publish(eventType, tenant string, payload interface{}) {
	body, err := json.Marshal(rabbitEvent{
		Type:    eventType,
		Tenant:  tenant,
		Payload: payload,
		At:      time.Now(),
	})
	if err != nil {
		e.log.Error("marshal event", sl.Err(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = e.channel.PublishWithContext(ctx, "", e.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Body:         body,
	})
	if err != nil {
		e.log.With(
			slog.String("tenant", tenant),
			slog.String("type", eventType),
		).Error("publish event", sl.Err(err))
	}
}

func (e *RabbitEmitter) NewMessage(tenant string, payload entity.NewMessageEvent) {
	e.publish(entity.EventNewMessage, tenant, payload)
}

func (e *RabbitEmitter) OrderDetected(tenant string, payload entity.OrderDetectedEvent) {
	e.publish(entity.EventOrderDetected, tenant, payload)
}

func (e *RabbitEmitter) ConversationUpdated(tenant string, payload entity.ConversationUpdatedEvent) {
	e.publish(entity.EventConversationUpdated, tenant, payload)
}

// Close tears the channel and connection down.
func (e *RabbitEmitter) Close() {
	if e.channel != nil {
		_ = e.channel.Close()
	}
	if e.conn != nil {
		_ = e.conn.Close()
	}
}

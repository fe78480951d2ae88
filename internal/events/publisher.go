// Package events publishes order ledger changes to a RabbitMQ topic exchange.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type EventType string

const (
	OrderCreated        EventType = "order.created"
	OrderUpdated        EventType = "order.updated"
	OrderDeleted        EventType = "order.deleted"
	OrderItemAdded      EventType = "order.item_added"
	OrderItemUpdated    EventType = "order.item_updated"
	OrderItemRemoved    EventType = "order.item_removed"
	OrderAdjusted       EventType = "order.adjusted"
	OrderRecalculated   EventType = "order.recalculated"
	OrderPaymentAdded   EventType = "order.payment_added"
	OrderPaymentRemoved EventType = "order.payment_removed"
	OrderSettled        EventType = "order.settled"
	OrderReopened       EventType = "order.reopened"
)

type OrderEvent struct {
	EventID    string      `json:"event_id"`
	Type       EventType   `json:"type"`
	OrderID    uint        `json:"order_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data,omitempty"`
}

func NewOrderEvent(eventType EventType, orderID uint, data interface{}) OrderEvent {
	return OrderEvent{
		EventID:    uuid.New().String(),
		Type:       eventType,
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }

// RabbitMQ publishes events with the event type as routing key.
type RabbitMQ struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	mu       sync.Mutex
}

func NewRabbitMQ(url, exchange string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &RabbitMQ{conn: conn, channel: ch, exchange: exchange}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, event OrderEvent) error {
	msg, err := Encode(event)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.channel.PublishWithContext(ctx,
		r.exchange,
		string(event.Type),
		false, // mandatory
		false, // immediate
		msg,
	)
}

// Encode builds the AMQP message for an event.
func Encode(event OrderEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		ContentType:  "application/json",
		MessageId:    event.EventID,
		Type:         string(event.Type),
		Body:         body,
	}, nil
}

func (r *RabbitMQ) Close() {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}

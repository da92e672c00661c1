package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"leapsdash/internal/models"
)

// Producer publishes ledger and position events for downstream consumers
type Producer struct {
	writer         *kafka.Writer
	tradesTopic    string
	positionsTopic string
}

// NewProducer creates a Kafka producer publishing trade events on
// tradesTopic and position lifecycle events on positionsTopic.
func NewProducer(brokers []string, tradesTopic, positionsTopic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer:         writer,
		tradesTopic:    tradesTopic,
		positionsTopic: positionsTopic,
	}
}

// Close closes the Kafka writer
func (p *Producer) Close() error {
	return p.writer.Close()
}

type eventEnvelope struct {
	EventType string      `json:"event_type"`
	Source    string      `json:"source"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// PublishTradeLogged announces a trade appended to a position's ledger
func (p *Producer) PublishTradeLogged(ctx context.Context, trade *models.Trade) error {
	return p.publish(ctx, p.tradesTopic, fmt.Sprintf("%d", trade.PositionID), eventEnvelope{
		EventType: "TRADE_LOGGED",
		Source:    "leaps-dashboard",
		Timestamp: time.Now().Format(time.RFC3339),
		Data:      trade,
	})
}

// PublishPositionUpdated announces a position create, update, close or delete
func (p *Producer) PublishPositionUpdated(ctx context.Context, eventType string, position *models.Position) error {
	return p.publish(ctx, p.positionsTopic, fmt.Sprintf("%d", position.ID), eventEnvelope{
		EventType: eventType,
		Source:    "leaps-dashboard",
		Timestamp: time.Now().Format(time.RFC3339),
		Data:      position,
	})
}

func (p *Producer) publish(ctx context.Context, topic, key string, event eventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.EventType, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.EventType, err)
	}

	log.Printf("Published %s event (key=%s)", event.EventType, key)
	return nil
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"leapsdash/internal/models"
)

// TradeRepository defines the ledger operations the consumer needs
type TradeRepository interface {
	CreateTrade(t *models.Trade) error
}

// TradesConsumer ingests trade fills published by external recorders
// (broker sync jobs, manual entry tools) and appends them to the ledger
type TradesConsumer struct {
	reader *kafka.Reader
	repo   TradeRepository
}

// NewTradesConsumer creates a Kafka consumer for trade fill events
func NewTradesConsumer(brokers []string, topic, groupID string, repo TradeRepository) *TradesConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID + "-fills",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset, // Only read new messages (not historical)
		CommitInterval: time.Second,
	})

	return &TradesConsumer{
		reader: reader,
		repo:   repo,
	}
}

// Start begins consuming messages from Kafka
func (c *TradesConsumer) Start(ctx context.Context) error {
	log.Printf("Starting Kafka trades consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Trades consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading trades message: %v", err)
				continue
			}

			if err := c.processMessage(msg); err != nil {
				log.Printf("Error processing trades message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *TradesConsumer) processMessage(msg kafka.Message) error {
	var event models.TradeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal trade event: %w", err)
	}

	// Only process TRADE_FILLED events
	if event.EventType != "TRADE_FILLED" {
		log.Printf("Ignoring event type: %s", event.EventType)
		return nil
	}

	trade, err := c.convertTradeData(event.Data)
	if err != nil {
		return fmt.Errorf("failed to convert trade event: %w", err)
	}

	if err := c.repo.CreateTrade(trade); err != nil {
		return fmt.Errorf("failed to record trade: %w", err)
	}

	log.Printf("Recorded %s trade for position %d (strike=%s, premium=%s)",
		trade.Action, trade.PositionID, trade.Strike, trade.Premium)
	return nil
}

// convertTradeData converts Kafka trade data to a Trade model
func (c *TradesConsumer) convertTradeData(data models.TradeEventData) (*models.Trade, error) {
	if data.PositionID <= 0 {
		return nil, fmt.Errorf("invalid position_id: %d", data.PositionID)
	}
	if !models.IsValidAction(data.Action) {
		return nil, fmt.Errorf("invalid action: %s", data.Action)
	}

	tradeDate, err := time.Parse("2006-01-02", data.TradeDate)
	if err != nil {
		return nil, fmt.Errorf("invalid trade_date %s: %w", data.TradeDate, err)
	}

	strike, err := decimal.NewFromString(data.Strike)
	if err != nil {
		strike = decimal.Zero
	}

	premium, err := decimal.NewFromString(data.Premium)
	if err != nil {
		premium = decimal.Zero
	}

	trade := &models.Trade{
		PositionID: data.PositionID,
		Action:     data.Action,
		TradeDate:  tradeDate,
		Strike:     strike,
		Premium:    premium,
		Notes:      data.Notes,
	}

	if data.Expiry != "" {
		expiry, err := time.Parse("2006-01-02", data.Expiry)
		if err != nil {
			return nil, fmt.Errorf("invalid expiry %s: %w", data.Expiry, err)
		}
		trade.Expiry = &expiry
	}

	return trade, nil
}

// Close closes the Kafka consumer
func (c *TradesConsumer) Close() error {
	return c.reader.Close()
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/logger"
	"github.com/segmentio/kafka-go"

	"luckydraw/internal/models"
)

const publishTimeout = 5 * time.Second

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer streams draw results to a Kafka topic, keyed by prize id so all
// results of one prize land in the same partition.
type Producer struct {
	writer messageWriter
}

// NewProducer creates a producer for topic on brokers.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer}, nil
}

// SendResult writes one result message.
func (p *Producer) SendResult(ctx context.Context, result *models.DrawResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal draw result: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(result.PrizeID),
		Value: data,
		Time:  result.DrawTime,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("send draw result: %w", err)
	}
	return nil
}

// PublishResult sends result and only logs a failure.
func (p *Producer) PublishResult(result *models.DrawResult) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.SendResult(ctx, result); err != nil {
		logger.Errorf("kafka: %v", err)
	}
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

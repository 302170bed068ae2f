package repository

import (
	"context"
	"fmt"

	"GammaDesk/internal/domain/models"
)

// Producer is the part of the kafka producer the alert publisher uses.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaAlertPublisher ships macro alerts keyed by symbol so one symbol's alerts stay ordered.
type KafkaAlertPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaAlertPublisher(producer Producer, topic string) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

func (p *KafkaAlertPublisher) PublishAlerts(ctx context.Context, ev models.AlertEvent) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev); err != nil {
		return fmt.Errorf("publish alerts %s: %w", ev.Symbol, err)
	}
	return nil
}

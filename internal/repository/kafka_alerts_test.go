package repository

import (
	"context"
	"errors"
	"testing"

	"GammaDesk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProducer struct {
	topic string
	key   []byte
	value interface{}
	err   error
}

func (p *recordingProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.topic, p.key, p.value = topic, key, value
	return p.err
}

func TestKafkaAlertPublisher(t *testing.T) {
	prod := &recordingProducer{}
	pub := NewKafkaAlertPublisher(prod, "alerts")
	ev := models.AlertEvent{Symbol: "PETR4", Expiration: "20250321", Alerts: []models.Alert{{Type: "HIGH_IV"}}}

	require.NoError(t, pub.PublishAlerts(context.Background(), ev))
	assert.Equal(t, "alerts", prod.topic)
	assert.Equal(t, []byte("PETR4"), prod.key)
	assert.Equal(t, ev, prod.value)

	prod.err = errors.New("broker down")
	err := pub.PublishAlerts(context.Background(), ev)
	assert.ErrorContains(t, err, "PETR4")
	assert.ErrorIs(t, err, prod.err)
}

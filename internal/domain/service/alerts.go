package service

import (
	"context"

	"GammaDesk/internal/domain/models"
)

// AlertPublisher ships macro alerts to downstream consumers.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, ev models.AlertEvent) error
}

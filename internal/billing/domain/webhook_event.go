package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// WebhookEvent is the processed-event record backing webhook idempotency.
// The unique provider_event_id index is what makes redelivery a no-op.
type WebhookEvent struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	ProviderEventID string            `gorm:"not null;uniqueIndex:ux_billing_webhook_events_provider_event_id" json:"provider_event_id"`
	EventType       string            `gorm:"not null" json:"event_type"`
	Payload         datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"payload"`
	OccurredAt      time.Time         `gorm:"not null" json:"occurred_at"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (WebhookEvent) TableName() string {
	return "billing_webhook_events"
}

package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type WebhookEventRepository interface {
	Insert(ctx context.Context, db *gorm.DB, event *WebhookEvent) error
	FindByProviderEventID(ctx context.Context, db *gorm.DB, providerEventID string) (*WebhookEvent, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}

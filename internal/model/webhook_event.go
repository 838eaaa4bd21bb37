package model

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent is the deduplication record for inbound billing provider
// events. The unique index on ProviderEventID makes re-deliveries visible
// before any side effect is applied.
type WebhookEvent struct {
	ID              uint           `gorm:"primaryKey"`
	Provider        string         `gorm:"size:50;not null;uniqueIndex:idx_provider_event"`
	ProviderEventID string         `gorm:"size:191;not null;uniqueIndex:idx_provider_event"`
	EventType       string         `gorm:"size:100"`
	Payload         datatypes.JSON `gorm:"type:jsonb"`
	SignatureValid  bool           `gorm:"default:false"`
	ProcessedAt     *time.Time
	ProcessingError string    `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

// Tablo adını özelleştir
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

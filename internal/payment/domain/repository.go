package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type EventRepository interface {
	// Insert stores the delivery and reports whether it was new. A conflict
	// on (provider, provider_event_id) returns (false, nil).
	Insert(ctx context.Context, db *gorm.DB, record *EventRecord) (bool, error)
	FindByProviderEventID(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id int64, processedAt time.Time) error
}

package domain

import (
	"time"

	"gorm.io/datatypes"
)

// ProcessedEvent records the response produced for an inbound bot event,
// keyed by (user_id, key). The transport supplies the key (its delivery id);
// a redelivered event is answered from Body without running side effects
// a second time.
type ProcessedEvent struct {
	ID        string         `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID    string         `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_event_user_key,priority:1"`
	Key       string         `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_event_user_key,priority:2"`
	Status    int            `gorm:"type:INTEGER NOT NULL"`
	Body      datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time      `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (ProcessedEvent) TableName() string { return "processed_events" }

package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CircleEventKind string

const (
	EventJoin       CircleEventKind = "join"
	EventPayment    CircleEventKind = "payment"
	EventRoundStart CircleEventKind = "round_start"
	EventInfo       CircleEventKind = "info"
)

// CircleEvent is the display-oriented timeline. It is informational only;
// nothing is derived from it.
type CircleEvent struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CircleID  uuid.UUID       `gorm:"type:uuid;not null;index;column:circle_id" json:"circle_id"`
	UserID    *uuid.UUID      `gorm:"type:uuid;column:user_id" json:"user_id,omitempty"`
	Kind      CircleEventKind `gorm:"not null;column:kind" json:"kind"`
	Message   string          `gorm:"column:message" json:"message"`
	Data      datatypes.JSON  `gorm:"column:data" json:"data,omitempty"`
	CreatedAt time.Time       `gorm:"not null;index" json:"created_at"`
}

func (CircleEvent) TableName() string {
	return "circle_event"
}

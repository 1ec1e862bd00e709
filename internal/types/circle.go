package types

import (
	"time"

	"github.com/google/uuid"
)

type CircleStatus string

const (
	CircleRecruiting CircleStatus = "recruiting"
	CircleActive     CircleStatus = "active"
	CirclePaused     CircleStatus = "paused"
	CircleCompleted  CircleStatus = "completed"
)

type CircleFrequency string

const (
	FrequencyWeekly   CircleFrequency = "weekly"
	FrequencyBiweekly CircleFrequency = "biweekly"
	FrequencyMonthly  CircleFrequency = "monthly"
)

// Circle is a rotating savings group. Amount is the per-round contribution
// unit, Duration the number of rounds (one payout each). The current round
// is never stored here; it is derived from the ledger.
type Circle struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string          `gorm:"not null;column:name" json:"name"`
	AdminID    uuid.UUID       `gorm:"type:uuid;not null;index;column:admin_id" json:"admin_id"`
	Amount     int64           `gorm:"not null;column:amount" json:"amount"`
	Frequency  CircleFrequency `gorm:"not null;default:monthly;column:frequency" json:"frequency"`
	MaxMembers int             `gorm:"not null;column:max_members" json:"max_members"`
	Duration   int             `gorm:"not null;column:duration" json:"duration"`
	Status     CircleStatus    `gorm:"not null;default:recruiting;index;column:status" json:"status"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updated_at"`
}

func (Circle) TableName() string {
	return "circle"
}

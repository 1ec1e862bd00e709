package types

import (
	"time"

	"github.com/google/uuid"
)

// Trust score bounds. A fresh account starts at BaseTrustScore and the
// fold over ledger history can never push it outside [MinTrustScore,
// MaxTrustScore].
const (
	BaseTrustScore = 100
	MinTrustScore  = 0
	MaxTrustScore  = 850
)

type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email      string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password   string    `gorm:"not null;column:password" json:"-"`
	FirstName  string    `gorm:"column:first_name" json:"first_name"`
	LastName   string    `gorm:"column:last_name" json:"last_name"`
	Role       Role      `gorm:"not null;default:user;column:role" json:"role"`
	TrustScore int       `gorm:"not null;default:100;column:trust_score" json:"trust_score"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}

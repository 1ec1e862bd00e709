package types

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LedgerEntryType enumerates the immutable facts the ledger records.
type LedgerEntryType string

const (
	EntryCircleCreated         LedgerEntryType = "CIRCLE_CREATED"
	EntryMemberApproved        LedgerEntryType = "MEMBER_APPROVED"
	EntryMemberRejected        LedgerEntryType = "MEMBER_REJECTED"
	EntryMemberRemoved         LedgerEntryType = "MEMBER_REMOVED"
	EntryContributionMarked    LedgerEntryType = "CONTRIBUTION_MARKED_PAID"
	EntryContributionConfirmed LedgerEntryType = "CONTRIBUTION_CONFIRMED"
	EntryContributionUnmarked  LedgerEntryType = "CONTRIBUTION_MARKED_UNPAID"
	EntryContributionFinalized LedgerEntryType = "CONTRIBUTION_FINALIZED"
	EntryContributionOverdue   LedgerEntryType = "CONTRIBUTION_OVERDUE_FLAGGED"
	EntryPayoutDistributed     LedgerEntryType = "PAYOUT_DISTRIBUTED"
)

type LedgerDirection string

const (
	DirectionDebit   LedgerDirection = "debit"
	DirectionCredit  LedgerDirection = "credit"
	DirectionNeutral LedgerDirection = "neutral"
)

// LedgerEntry is the system of record: created once, never updated or
// deleted. Sign lives exclusively in Direction; Amount, when present, is
// non-negative. Metadata carries the round number and free-form reason.
type LedgerEntry struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Type      LedgerEntryType `gorm:"not null;index;column:type" json:"type"`
	Direction LedgerDirection `gorm:"not null;default:neutral;column:direction" json:"direction"`
	Amount    *int64          `gorm:"column:amount" json:"amount,omitempty"`
	CircleID  *uuid.UUID      `gorm:"type:uuid;index;column:circle_id" json:"circle_id,omitempty"`
	UserID    *uuid.UUID      `gorm:"type:uuid;index;column:user_id" json:"user_id,omitempty"`
	AdminID   *uuid.UUID      `gorm:"type:uuid;column:admin_id" json:"admin_id,omitempty"`
	Metadata  datatypes.JSON  `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt time.Time       `gorm:"not null;index" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entry"
}

var ErrLedgerImmutable = errors.New("ledger entries are immutable")

func (LedgerEntry) BeforeUpdate(*gorm.DB) error { return ErrLedgerImmutable }
func (LedgerEntry) BeforeDelete(*gorm.DB) error { return ErrLedgerImmutable }

// TrustTrigger reports whether an append of this entry type must schedule
// a trust-score recomputation for the associated user.
func (t LedgerEntryType) TrustTrigger() bool {
	switch t {
	case EntryContributionMarked,
		EntryContributionConfirmed,
		EntryContributionUnmarked,
		EntryContributionOverdue,
		EntryMemberRemoved:
		return true
	}
	return false
}

package types

import (
	"time"

	"github.com/google/uuid"
)

// MemberStatus tracks a member's progress through one round's payment
// cycle. The cached value is always rederivable from the ledger.
type MemberStatus string

const (
	MemberRequested         MemberStatus = "requested"
	MemberPending           MemberStatus = "pending"
	MemberPaidPending       MemberStatus = "paid_pending"
	MemberRecipientVerified MemberStatus = "recipient_verified"
	MemberPaid              MemberStatus = "paid"
	MemberLate              MemberStatus = "late"
)

type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

type PayoutPreference string

const (
	PreferEarly PayoutPreference = "early"
	PreferLate  PayoutPreference = "late"
	PreferAny   PayoutPreference = "any"
)

// Member joins a user to a circle. At most one row may exist per
// (user, circle) pair, and no two members of a circle may hold the same
// rotation slot; the composite unique indexes are the last line of
// defense behind the join guard and the order assigner.
type Member struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CircleID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_member_circle_user;uniqueIndex:idx_member_circle_payout,priority:1;column:circle_id" json:"circle_id"`
	UserID           uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_member_circle_user;column:user_id" json:"user_id"`
	Role             MemberRole       `gorm:"not null;default:member;column:role" json:"role"`
	Status           MemberStatus     `gorm:"not null;default:requested;index;column:status" json:"status"`
	PayoutMonth      *int             `gorm:"column:payout_month;uniqueIndex:idx_member_circle_payout,priority:2" json:"payout_month,omitempty"`
	PayoutPreference PayoutPreference `gorm:"not null;default:any;column:payout_preference" json:"payout_preference"`
	CreatedAt        time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"not null" json:"updated_at"`
}

func (Member) TableName() string {
	return "member"
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Commission event types. Each maps to a fixed level-1 rate; only
// user_order and group_buy carry a level-2 rate.
const (
	CommissionTypeUserOrder     = "user_order"
	CommissionTypeMerchantOrder = "merchant_order"
	CommissionTypeCreatorOrder  = "creator_order"
	CommissionTypeGroupBuy      = "group_buy"
)

// ReferralRelation is the fixed two-level referral linkage for a user.
// Created exactly once when the user redeems an invite code; GrandParentID
// is resolved from the parent's own relation at bind time and never
// recomputed afterwards.
type ReferralRelation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User          *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ParentID      *uint     `gorm:"index" json:"parent_id,omitempty"`
	Parent        *User     `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	GrandParentID *uint     `gorm:"index" json:"grand_parent_id,omitempty"`
	GrandParent   *User     `gorm:"foreignKey:GrandParentID" json:"grand_parent,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (ReferralRelation) TableName() string {
	return "referral_relations"
}

// ReferralCommission is one immutable payout record. The unique index on
// (order_id, to_user_id, level) is the idempotency key: a duplicate settle
// for the same order and tier is rejected at the storage layer.
type ReferralCommission struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	FromUserID uint            `gorm:"not null;index" json:"from_user_id"`
	FromUser   *User           `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	ToUserID   uint            `gorm:"not null;index;index:idx_commission_order_tier,unique" json:"to_user_id"`
	ToUser     *User           `gorm:"foreignKey:ToUserID" json:"to_user,omitempty"`
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_commission_order_tier,unique" json:"order_id"`
	Level      int             `gorm:"not null;index:idx_commission_order_tier,unique" json:"level"` // 1 or 2
	Amount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Type       string          `gorm:"size:20;not null" json:"type"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (ReferralCommission) TableName() string {
	return "referral_commissions"
}

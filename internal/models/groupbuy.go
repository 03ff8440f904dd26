package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GroupBuyStatus is the lifecycle state of a group buy
type GroupBuyStatus string

const (
	GroupBuyStatusPending GroupBuyStatus = "PENDING"
	GroupBuyStatusSuccess GroupBuyStatus = "SUCCESS"
	GroupBuyStatusFailed  GroupBuyStatus = "FAILED"
)

// Refund strategies applied to paid orders when a group buy fails
const (
	RefundStrategyRefund = "REFUND"
	RefundStrategyCoupon = "COUPON"
)

// GroupBuy is a time-boxed collective purchase. Status is terminal once it
// leaves PENDING; CurrentMembers only ever grows, and both fields are
// mutated exclusively through conditional updates in the repository.
type GroupBuy struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID      uint             `gorm:"not null;index" json:"product_id"`
	InitiatorID    uint             `gorm:"not null;index" json:"initiator_id"`
	Initiator      *User            `gorm:"foreignKey:InitiatorID" json:"initiator,omitempty"`
	GroupPrice     decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"group_price"`
	MaxMembers     int              `gorm:"not null" json:"max_members"`
	CurrentMembers int              `gorm:"not null;default:1" json:"current_members"`
	Status         GroupBuyStatus   `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	RefundStrategy string           `gorm:"size:20;not null;default:COUPON" json:"refund_strategy"`
	CouponAmount   *decimal.Decimal `gorm:"type:decimal(20,2)" json:"coupon_amount,omitempty"`
	ExpiresAt      time.Time        `gorm:"not null;index" json:"expires_at"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	Participants []GroupParticipant `gorm:"foreignKey:GroupBuyID" json:"participants,omitempty"`
}

func (GroupBuy) TableName() string {
	return "group_buys"
}

// GroupParticipant links a user and the order created for their
// contribution to one group buy. ReferrerID is the join referrer carried
// from the invite link, settled only if the group succeeds.
type GroupParticipant struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	GroupBuyID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_group_member,unique" json:"group_buy_id"`
	UserID     uint      `gorm:"not null;index:idx_group_member,unique" json:"user_id"`
	User       *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null" json:"order_id"`
	ReferrerID *uint     `gorm:"index" json:"referrer_id,omitempty"`
	JoinedAt   time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (GroupParticipant) TableName() string {
	return "group_participants"
}

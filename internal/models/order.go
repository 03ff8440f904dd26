package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order statuses as seen by this core. PAID orders tied to a failed group
// buy are the ones eligible for compensation.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusFailed   OrderStatus = "FAILED"
	OrderStatusRefunded OrderStatus = "REFUNDED"
)

// Refund progress on a compensated order
const (
	RefundStatusNone      = ""
	RefundStatusCompleted = "COMPLETED"
)

// Order is a participant's paid contribution. CouponIssued doubles as the
// exactly-once guard for compensation: it is flipped with a conditional
// update before any coupon is created.
type Order struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	User         *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	GroupBuyID   *uuid.UUID      `gorm:"type:uuid;index" json:"group_buy_id,omitempty"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status       OrderStatus     `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	ReferrerID   *uint           `gorm:"index" json:"referrer_id,omitempty"`
	RefundStatus string          `gorm:"size:20;not null;default:''" json:"refund_status"`
	CouponIssued bool            `gorm:"not null;default:false" json:"coupon_issued"`
	CouponID     *uint           `gorm:"index" json:"coupon_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

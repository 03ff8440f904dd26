package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon statuses. A coupon moves active -> used or active -> expired and
// is never reopened.
const (
	CouponStatusActive  = "active"
	CouponStatusUsed    = "used"
	CouponStatusExpired = "expired"
)

// Coupon is the compensation artifact issued instead of a cash refund when
// a group buy fails. GroupBuyID/OrderID record its provenance.
type Coupon struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"not null;index" json:"user_id"`
	User       *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status     string          `gorm:"size:20;not null;default:active;index" json:"status"`
	GroupBuyID *uuid.UUID      `gorm:"type:uuid;index" json:"group_buy_id,omitempty"`
	OrderID    *uuid.UUID      `gorm:"type:uuid;index" json:"order_id,omitempty"`
	UsedOnID   *uuid.UUID      `gorm:"type:uuid" json:"used_on_id,omitempty"`
	ValidTo    time.Time       `gorm:"not null;index" json:"valid_to"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (Coupon) TableName() string {
	return "coupons"
}

package models

import "time"

// Notification types emitted by this core
const (
	NotificationTypeCommission  = "commission_received"
	NotificationTypeReferral    = "referral_bound"
	NotificationTypeGroupFailed = "group_failed"
	NotificationTypeRefund      = "refund_issued"
)

// Notification is one inbox entry. Delivery beyond this row (email, push)
// is out of scope; the engine only appends.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Type      string    `gorm:"size:30;not null" json:"type"`
	Title     string    `gorm:"size:100;not null" json:"title"`
	Content   string    `gorm:"size:500;not null" json:"content"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

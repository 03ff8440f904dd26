package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a marketplace user. Balance is only mutated by the
// commission engine and the compensation service; everything else reads it.
type User struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	WalletAddress string          `gorm:"uniqueIndex;not null" json:"wallet_address"`
	Email         *string         `gorm:"uniqueIndex" json:"email,omitempty"`
	Nickname      string          `gorm:"not null" json:"nickname"`
	InviteCode    string          `gorm:"uniqueIndex;size:20;not null" json:"invite_code"`
	Balance       decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

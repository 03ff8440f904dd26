package services

import (
	"context"
	"log"

	"gorm.io/gorm"

	"group-market/internal/models"
)

// NotificationSink receives best-effort notifications from the commission
// and compensation flows. Implementations must never block the caller's
// transaction; failures are swallowed after logging.
type NotificationSink interface {
	Notify(ctx context.Context, userID uint, kind, title, content string)
}

// InboxSink appends notifications to the user's inbox table.
type InboxSink struct {
	db *gorm.DB
}

func NewInboxSink(db *gorm.DB) *InboxSink {
	return &InboxSink{db: db}
}

func (s *InboxSink) Notify(ctx context.Context, userID uint, kind, title, content string) {
	n := models.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Content: content,
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		log.Printf("Failed to notify user %d (%s): %v", userID, kind, err)
	}
}

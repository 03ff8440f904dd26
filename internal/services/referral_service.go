package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"group-market/internal/models"
)

// ReferralService owns the referral graph: one-time invite-code binding and
// the parent/grandparent lookup the commission engine settles against.
type ReferralService struct {
	db   *gorm.DB
	sink NotificationSink
}

func NewReferralService(db *gorm.DB, sink NotificationSink) *ReferralService {
	return &ReferralService{
		db:   db,
		sink: sink,
	}
}

// ReferralInfo aggregates a user's referral relation and commission stats.
type ReferralInfo struct {
	Relation          *models.ReferralRelation `json:"relation,omitempty"`
	TotalCommission   decimal.Decimal          `json:"total_commission"`
	MonthlyCommission decimal.Decimal          `json:"monthly_commission"`
	ReferralCount     int64                    `json:"referral_count"`
}

// GetOrCreateInviteCode returns the user's invite code, generating one on
// first use.
func (s *ReferralService) GetOrCreateInviteCode(ctx context.Context, userID uint) (string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	if user.InviteCode != "" {
		return user.InviteCode, nil
	}

	code, err := generateInviteCode()
	if err != nil {
		return "", err
	}

	err = s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND (invite_code IS NULL OR invite_code = '')", userID).
		Update("invite_code", code).Error
	if err != nil {
		return "", fmt.Errorf("failed to store invite code: %w", err)
	}

	log.Printf("Generated invite code %s for user %d", code, userID)
	return code, nil
}

// generateInviteCode generates a random 8-character code
func generateInviteCode() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b)[:8], nil
}

// BindReferral binds the user to the owner of the given invite code. The
// relation is created exactly once: re-binding fails with ErrAlreadyBound,
// a code that resolves to nobody fails with ErrInvalidCode, and the
// grandparent is frozen from the parent's relation as it stands right now.
func (s *ReferralService) BindReferral(ctx context.Context, userID uint, code string) (*models.ReferralRelation, error) {
	var existing models.ReferralRelation
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyBound
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check referral relation: %w", err)
	}

	var referrer models.User
	err = s.db.WithContext(ctx).Where("invite_code = ?", code).First(&referrer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCode
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve invite code: %w", err)
	}

	if referrer.ID == userID {
		return nil, ErrSelfReferral
	}

	// Grandparent is the referrer's own parent, read once here. Later
	// changes to the referrer's lineage never touch this relation.
	var grandParentID *uint
	var parentRelation models.ReferralRelation
	err = s.db.WithContext(ctx).Where("user_id = ?", referrer.ID).First(&parentRelation).Error
	if err == nil {
		grandParentID = parentRelation.ParentID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to resolve grandparent: %w", err)
	}

	parentID := referrer.ID
	relation := models.ReferralRelation{
		UserID:        userID,
		ParentID:      &parentID,
		GrandParentID: grandParentID,
	}

	err = s.db.WithContext(ctx).Create(&relation).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrAlreadyBound // concurrent bind won
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create referral relation: %w", err)
	}

	log.Printf("Referral bound: user %d -> parent %d", userID, referrer.ID)

	s.sink.Notify(ctx, userID, models.NotificationTypeReferral,
		"Referrer bound", fmt.Sprintf("You are now referred by %s", referrer.Nickname))
	s.sink.Notify(ctx, referrer.ID, models.NotificationTypeReferral,
		"New referral", "A new user signed up with your invite code")

	return &relation, nil
}

// GetRelation returns the user's referral relation, or nil when unbound.
func (s *ReferralService) GetRelation(ctx context.Context, userID uint) (*models.ReferralRelation, error) {
	var relation models.ReferralRelation
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&relation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &relation, nil
}

// GetReferralInfo returns the relation plus total, month-to-date and
// head-count stats for the user's referral earnings.
func (s *ReferralService) GetReferralInfo(ctx context.Context, userID uint) (*ReferralInfo, error) {
	info := &ReferralInfo{
		TotalCommission:   decimal.Zero,
		MonthlyCommission: decimal.Zero,
	}

	relation, err := s.GetRelation(ctx, userID)
	if err != nil {
		return nil, err
	}
	info.Relation = relation

	row := s.db.WithContext(ctx).Model(&models.ReferralCommission{}).
		Where("to_user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").Row()
	if err := row.Scan(&info.TotalCommission); err != nil {
		info.TotalCommission = decimal.Zero
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	row = s.db.WithContext(ctx).Model(&models.ReferralCommission{}).
		Where("to_user_id = ? AND created_at >= ?", userID, monthStart).
		Select("COALESCE(SUM(amount), 0)").Row()
	if err := row.Scan(&info.MonthlyCommission); err != nil {
		info.MonthlyCommission = decimal.Zero
	}

	err = s.db.WithContext(ctx).Model(&models.ReferralRelation{}).
		Where("parent_id = ?", userID).
		Count(&info.ReferralCount).Error
	if err != nil {
		return nil, err
	}

	return info, nil
}

package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"group-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CouponService handles coupon redemption and expiry for coupons issued by
// the compensation flow (and any promotional flow that writes the same
// table).
type CouponService struct {
	db *gorm.DB
}

func NewCouponService(db *gorm.DB) *CouponService {
	return &CouponService{db: db}
}

// GetActiveCoupons returns the user's redeemable coupons, oldest first so
// the oldest coupon gets spent before it expires.
func (s *CouponService) GetActiveCoupons(ctx context.Context, userID uint) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND valid_to > ?", userID, models.CouponStatusActive, time.Now()).
		Order("created_at ASC").
		Find(&coupons).Error
	if err != nil {
		return nil, err
	}
	return coupons, nil
}

// Redeem marks a coupon used against the given order. The conditional
// update makes double spends impossible: only one redeem call can move the
// coupon out of active.
func (s *CouponService) Redeem(ctx context.Context, couponID uint, userID uint, orderID uuid.UUID) (*models.Coupon, error) {
	res := s.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ? AND user_id = ? AND status = ? AND valid_to > ?",
			couponID, userID, models.CouponStatusActive, time.Now()).
		Updates(map[string]interface{}{
			"status":     models.CouponStatusUsed,
			"used_on_id": orderID,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to redeem coupon: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrCouponInvalid
	}

	var coupon models.Coupon
	if err := s.db.WithContext(ctx).Where("id = ?", couponID).First(&coupon).Error; err != nil {
		return nil, err
	}

	log.Printf("Coupon %d redeemed by user %d on order %s", couponID, userID, orderID)
	return &coupon, nil
}

// ExpireOverdue moves every active coupon past its validity to expired and
// returns how many were affected. Invoked by the periodic coupon job.
func (s *CouponService) ExpireOverdue(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("status = ? AND valid_to < ?", models.CouponStatusActive, time.Now()).
		Update("status", models.CouponStatusExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

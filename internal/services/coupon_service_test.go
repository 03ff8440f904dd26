package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"group-market/internal/models"
)

func seedCoupon(t *testing.T, db *gorm.DB, userID uint, validTo time.Time) *models.Coupon {
	t.Helper()

	coupon := models.Coupon{
		UserID:  userID,
		Amount:  decimal.NewFromInt(30),
		Status:  models.CouponStatusActive,
		ValidTo: validTo,
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("failed to create coupon: %v", err)
	}
	return &coupon
}

func TestRedeemCoupon(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCouponService(db)
	user := createTestUser(t, db, 1, "CODE1111")
	coupon := seedCoupon(t, db, user.ID, time.Now().Add(24*time.Hour))

	orderID := uuid.New()
	redeemed, err := svc.Redeem(context.Background(), coupon.ID, user.ID, orderID)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if redeemed.Status != models.CouponStatusUsed {
		t.Errorf("expected used, got %s", redeemed.Status)
	}
	if redeemed.UsedOnID == nil || *redeemed.UsedOnID != orderID {
		t.Errorf("expected used_on %s, got %v", orderID, redeemed.UsedOnID)
	}

	// Spent is spent.
	if _, err := svc.Redeem(context.Background(), coupon.ID, user.ID, uuid.New()); !errors.Is(err, ErrCouponInvalid) {
		t.Errorf("expected ErrCouponInvalid on double spend, got %v", err)
	}
}

func TestRedeemExpiredCoupon(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCouponService(db)
	user := createTestUser(t, db, 1, "CODE1111")
	coupon := seedCoupon(t, db, user.ID, time.Now().Add(-time.Minute))

	if _, err := svc.Redeem(context.Background(), coupon.ID, user.ID, uuid.New()); !errors.Is(err, ErrCouponInvalid) {
		t.Errorf("expected ErrCouponInvalid, got %v", err)
	}
}

func TestRedeemSomeoneElsesCoupon(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCouponService(db)
	owner := createTestUser(t, db, 1, "CODE1111")
	other := createTestUser(t, db, 2, "CODE2222")
	coupon := seedCoupon(t, db, owner.ID, time.Now().Add(24*time.Hour))

	if _, err := svc.Redeem(context.Background(), coupon.ID, other.ID, uuid.New()); !errors.Is(err, ErrCouponInvalid) {
		t.Errorf("expected ErrCouponInvalid, got %v", err)
	}
}

func TestGetActiveCouponsSkipsExpired(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCouponService(db)
	user := createTestUser(t, db, 1, "CODE1111")
	live := seedCoupon(t, db, user.ID, time.Now().Add(24*time.Hour))
	seedCoupon(t, db, user.ID, time.Now().Add(-time.Minute))

	coupons, err := svc.GetActiveCoupons(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetActiveCoupons failed: %v", err)
	}
	if len(coupons) != 1 {
		t.Fatalf("expected 1 coupon, got %d", len(coupons))
	}
	if coupons[0].ID != live.ID {
		t.Errorf("expected coupon %d, got %d", live.ID, coupons[0].ID)
	}
}

func TestExpireOverdue(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCouponService(db)
	user := createTestUser(t, db, 1, "CODE1111")
	seedCoupon(t, db, user.ID, time.Now().Add(-time.Minute))
	live := seedCoupon(t, db, user.ID, time.Now().Add(24*time.Hour))

	n, err := svc.ExpireOverdue(context.Background())
	if err != nil {
		t.Fatalf("ExpireOverdue failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired, got %d", n)
	}

	var check models.Coupon
	db.Where("id = ?", live.ID).First(&check)
	if check.Status != models.CouponStatusActive {
		t.Errorf("live coupon was expired: %s", check.Status)
	}

	// Nothing left to expire.
	n, err = svc.ExpireOverdue(context.Background())
	if err != nil {
		t.Fatalf("second ExpireOverdue failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 on second run, got %d", n)
	}
}

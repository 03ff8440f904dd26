package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"group-market/internal/models"
	"group-market/internal/repository"
	"group-market/internal/services"
)

func setupSweepTest(t *testing.T) (*gorm.DB, *services.GroupBuyService) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.ReferralRelation{},
		&models.ReferralCommission{},
		&models.GroupBuy{},
		&models.GroupParticipant{},
		&models.Order{},
		&models.Coupon{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	sink := services.NewInboxSink(db)
	repo := repository.NewRepository(db)
	commissions := services.NewCommissionService(db, sink)
	compensation := services.NewCompensationService(db, repo, sink)
	return db, services.NewGroupBuyService(repo, commissions, compensation, sink)
}

func TestSweepFailsExpiredGroups(t *testing.T) {
	db, svc := setupSweepTest(t)

	user := models.User{ID: 1, WalletAddress: "w1", Nickname: "n1", InviteCode: "CODE1111"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	expired, err := svc.Create(context.Background(), user.ID, 42, decimal.NewFromInt(30), 3, time.Hour, models.RefundStrategyCoupon, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	db.Model(&models.GroupBuy{}).Where("id = ?", expired.ID).
		Update("expires_at", time.Now().Add(-time.Minute))

	fresh, err := svc.Create(context.Background(), user.ID, 43, decimal.NewFromInt(30), 3, time.Hour, models.RefundStrategyCoupon, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	sweep := NewGroupBuySweep(svc, time.Minute)
	sweep.RunOnce()

	var check models.GroupBuy
	db.Where("id = ?", expired.ID).First(&check)
	if check.Status != models.GroupBuyStatusFailed {
		t.Errorf("expired group: expected FAILED, got %s", check.Status)
	}

	check = models.GroupBuy{}
	db.Where("id = ?", fresh.ID).First(&check)
	if check.Status != models.GroupBuyStatusPending {
		t.Errorf("fresh group: expected PENDING, got %s", check.Status)
	}

	// The failed group's paid order was compensated.
	var coupons int64
	db.Model(&models.Coupon{}).Where("user_id = ?", user.ID).Count(&coupons)
	if coupons != 1 {
		t.Errorf("expected 1 coupon after sweep, got %d", coupons)
	}

	// A second pass finds nothing to do.
	sweep.RunOnce()
	db.Model(&models.Coupon{}).Where("user_id = ?", user.ID).Count(&coupons)
	if coupons != 1 {
		t.Errorf("second sweep issued another coupon, got %d", coupons)
	}
}

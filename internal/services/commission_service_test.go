package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"group-market/internal/models"
)

func bindRelation(t *testing.T, db *gorm.DB, userID uint, parentID, grandParentID *uint) {
	t.Helper()

	rel := models.ReferralRelation{
		UserID:        userID,
		ParentID:      parentID,
		GrandParentID: grandParentID,
	}
	if err := db.Create(&rel).Error; err != nil {
		t.Fatalf("failed to create relation for user %d: %v", userID, err)
	}
}

func userBalance(t *testing.T, db *gorm.DB, userID uint) decimal.Decimal {
	t.Helper()

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		t.Fatalf("failed to load user %d: %v", userID, err)
	}
	return user.Balance
}

func TestSettleTwoTiers(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCommissionService(db, NewInboxSink(db))

	grandParent := createTestUser(t, db, 1, "gp")
	parent := createTestUser(t, db, 2, "pp")
	buyer := createTestUser(t, db, 3, "bb")
	bindRelation(t, db, parent.ID, &grandParent.ID, nil)
	bindRelation(t, db, buyer.ID, &parent.ID, &grandParent.ID)

	orderID := uuid.New()
	created, err := svc.Settle(context.Background(), models.CommissionTypeUserOrder, buyer.ID, orderID, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 commissions, got %d", len(created))
	}

	if got := userBalance(t, db, parent.ID); !got.Equal(decimal.NewFromFloat(10.00)) {
		t.Errorf("parent balance: expected 10.00, got %s", got)
	}
	if got := userBalance(t, db, grandParent.ID); !got.Equal(decimal.NewFromFloat(5.00)) {
		t.Errorf("grandparent balance: expected 5.00, got %s", got)
	}

	var levels []int
	for _, c := range created {
		levels = append(levels, c.Level)
	}
	if levels[0] != 1 || levels[1] != 2 {
		t.Errorf("expected levels [1 2], got %v", levels)
	}
}

func TestSettleIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCommissionService(db, NewInboxSink(db))

	parent := createTestUser(t, db, 1, "pp")
	buyer := createTestUser(t, db, 2, "bb")
	bindRelation(t, db, buyer.ID, &parent.ID, nil)

	orderID := uuid.New()
	amount := decimal.NewFromInt(50)

	first, err := svc.Settle(context.Background(), models.CommissionTypeUserOrder, buyer.ID, orderID, amount)
	if err != nil {
		t.Fatalf("first Settle failed: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 commission, got %d", len(first))
	}

	second, err := svc.Settle(context.Background(), models.CommissionTypeUserOrder, buyer.ID, orderID, amount)
	if err != nil {
		t.Fatalf("second Settle failed: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("replayed settle created %d commissions, expected 0", len(second))
	}

	var count int64
	db.Model(&models.ReferralCommission{}).Where("order_id = ?", orderID).Count(&count)
	if count != 1 {
		t.Errorf("ledger has %d rows for order, expected 1", count)
	}
	if got := userBalance(t, db, parent.ID); !got.Equal(decimal.NewFromFloat(5.00)) {
		t.Errorf("parent balance credited twice: expected 5.00, got %s", got)
	}
}

func TestSettleWithoutReferrer(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCommissionService(db, NewInboxSink(db))

	buyer := createTestUser(t, db, 1, "bb")

	created, err := svc.Settle(context.Background(), models.CommissionTypeUserOrder, buyer.ID, uuid.New(), decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("expected no commissions for unbound user, got %d", len(created))
	}
}

func TestSettleMerchantOrderSkipsLevel2(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCommissionService(db, NewInboxSink(db))

	grandParent := createTestUser(t, db, 1, "gp")
	parent := createTestUser(t, db, 2, "pp")
	buyer := createTestUser(t, db, 3, "bb")
	bindRelation(t, db, buyer.ID, &parent.ID, &grandParent.ID)

	created, err := svc.Settle(context.Background(), models.CommissionTypeMerchantOrder, buyer.ID, uuid.New(), decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 commission, got %d", len(created))
	}
	if created[0].Level != 1 {
		t.Errorf("expected level 1, got %d", created[0].Level)
	}
	if !created[0].Amount.Equal(decimal.NewFromFloat(10.00)) {
		t.Errorf("expected 5%% of 200 = 10.00, got %s", created[0].Amount)
	}
	if got := userBalance(t, db, grandParent.ID); !got.IsZero() {
		t.Errorf("grandparent credited on merchant order: %s", got)
	}
}

func TestSettleRoundsToCents(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCommissionService(db, NewInboxSink(db))

	parent := createTestUser(t, db, 1, "pp")
	buyer := createTestUser(t, db, 2, "bb")
	bindRelation(t, db, buyer.ID, &parent.ID, nil)

	// 15% of 99.99 is 14.9985, which rounds up to 15.00.
	created, err := svc.Settle(context.Background(), models.CommissionTypeGroupBuy, buyer.ID, uuid.New(), decimal.NewFromFloat(99.99))
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 commission, got %d", len(created))
	}
	if !created[0].Amount.Equal(decimal.NewFromFloat(15.00)) {
		t.Errorf("expected 15.00, got %s", created[0].Amount)
	}
}

func TestSettleUnknownEvent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCommissionService(db, NewInboxSink(db))

	if _, err := svc.Settle(context.Background(), "cashback", 1, uuid.New(), decimal.NewFromInt(10)); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestGetOrderCommissions(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCommissionService(db, NewInboxSink(db))

	grandParent := createTestUser(t, db, 1, "gp")
	parent := createTestUser(t, db, 2, "pp")
	buyer := createTestUser(t, db, 3, "bb")
	bindRelation(t, db, buyer.ID, &parent.ID, &grandParent.ID)

	orderID := uuid.New()
	if _, err := svc.Settle(context.Background(), models.CommissionTypeGroupBuy, buyer.ID, orderID, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	rows, err := svc.GetOrderCommissions(context.Background(), parent.ID, orderID)
	if err != nil {
		t.Fatalf("GetOrderCommissions failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row for parent, got %d", len(rows))
	}
	if !rows[0].Amount.Equal(decimal.NewFromFloat(15.00)) {
		t.Errorf("expected 15.00, got %s", rows[0].Amount)
	}
}

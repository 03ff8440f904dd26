package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"group-market/internal/models"
)

func TestBindReferral(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db, NewInboxSink(db))

	referrer := createTestUser(t, db, 1, "CODE1111")
	user := createTestUser(t, db, 2, "CODE2222")

	rel, err := svc.BindReferral(context.Background(), user.ID, "CODE1111")
	if err != nil {
		t.Fatalf("BindReferral failed: %v", err)
	}
	if rel.ParentID == nil || *rel.ParentID != referrer.ID {
		t.Errorf("expected parent %d, got %v", referrer.ID, rel.ParentID)
	}
	if rel.GrandParentID != nil {
		t.Errorf("expected no grandparent, got %v", *rel.GrandParentID)
	}

	// Binding is one-shot.
	if _, err := svc.BindReferral(context.Background(), user.ID, "CODE1111"); !errors.Is(err, ErrAlreadyBound) {
		t.Errorf("expected ErrAlreadyBound, got %v", err)
	}
}

func TestBindReferralInvalidCode(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db, NewInboxSink(db))

	user := createTestUser(t, db, 1, "CODE1111")

	if _, err := svc.BindReferral(context.Background(), user.ID, "NOPE0000"); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode, got %v", err)
	}
}

func TestBindReferralSelf(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db, NewInboxSink(db))

	user := createTestUser(t, db, 1, "CODE1111")

	_, err := svc.BindReferral(context.Background(), user.ID, "CODE1111")
	if !errors.Is(err, ErrSelfReferral) {
		t.Errorf("expected ErrSelfReferral, got %v", err)
	}
	// Self binding is a special case of an invalid code.
	if !errors.Is(err, ErrInvalidCode) {
		t.Errorf("ErrSelfReferral should match ErrInvalidCode, got %v", err)
	}
}

func TestGrandparentFrozenAtBindTime(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db, NewInboxSink(db))

	a := createTestUser(t, db, 1, "CODEAAAA")
	b := createTestUser(t, db, 2, "CODEBBBB")
	c := createTestUser(t, db, 3, "CODECCCC")
	d := createTestUser(t, db, 4, "CODEDDDD")

	// C binds to B while B has no parent yet: grandparent stays empty.
	relC, err := svc.BindReferral(context.Background(), c.ID, "CODEBBBB")
	if err != nil {
		t.Fatalf("bind C failed: %v", err)
	}
	if relC.GrandParentID != nil {
		t.Errorf("C bound before B had a parent, expected nil grandparent, got %v", *relC.GrandParentID)
	}

	// B acquires A as parent. D binds to B afterwards and picks up A.
	if _, err := svc.BindReferral(context.Background(), b.ID, "CODEAAAA"); err != nil {
		t.Fatalf("bind B failed: %v", err)
	}
	relD, err := svc.BindReferral(context.Background(), d.ID, "CODEBBBB")
	if err != nil {
		t.Fatalf("bind D failed: %v", err)
	}
	if relD.GrandParentID == nil || *relD.GrandParentID != a.ID {
		t.Errorf("expected D's grandparent %d, got %v", a.ID, relD.GrandParentID)
	}

	// C's relation was frozen at its own bind and never backfilled.
	got, err := svc.GetRelation(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetRelation failed: %v", err)
	}
	if got.GrandParentID != nil {
		t.Errorf("C's grandparent was backfilled to %v", *got.GrandParentID)
	}
}

func TestGetOrCreateInviteCode(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db, NewInboxSink(db))

	user := models.User{ID: 1, WalletAddress: "w1", Nickname: "n1"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	code, err := svc.GetOrCreateInviteCode(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetOrCreateInviteCode failed: %v", err)
	}
	if len(code) != 8 {
		t.Errorf("expected 8-character code, got %q", code)
	}

	again, err := svc.GetOrCreateInviteCode(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("second GetOrCreateInviteCode failed: %v", err)
	}
	if again != code {
		t.Errorf("invite code changed between calls: %q then %q", code, again)
	}
}

func TestGetReferralInfo(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReferralService(db, NewInboxSink(db))
	commissions := NewCommissionService(db, NewInboxSink(db))

	parent := createTestUser(t, db, 1, "CODE1111")
	buyer := createTestUser(t, db, 2, "CODE2222")
	if _, err := svc.BindReferral(context.Background(), buyer.ID, "CODE1111"); err != nil {
		t.Fatalf("bind failed: %v", err)
	}

	if _, err := commissions.Settle(context.Background(), models.CommissionTypeUserOrder, buyer.ID, uuid.New(), decimal.NewFromInt(100)); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	info, err := svc.GetReferralInfo(context.Background(), parent.ID)
	if err != nil {
		t.Fatalf("GetReferralInfo failed: %v", err)
	}
	if info.ReferralCount != 1 {
		t.Errorf("expected 1 referral, got %d", info.ReferralCount)
	}
	if !info.TotalCommission.Equal(decimal.NewFromFloat(10.00)) {
		t.Errorf("expected total 10.00, got %s", info.TotalCommission)
	}
	if !info.MonthlyCommission.Equal(decimal.NewFromFloat(10.00)) {
		t.Errorf("expected monthly 10.00, got %s", info.MonthlyCommission)
	}
}

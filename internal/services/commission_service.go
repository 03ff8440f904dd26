package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"group-market/internal/models"
)

// Level-1 commission rates per event type. Level 2 pays a flat 5% and
// applies only to user orders and group buys.
var (
	level1Rates = map[string]decimal.Decimal{
		models.CommissionTypeUserOrder:     decimal.NewFromFloat(0.10),
		models.CommissionTypeMerchantOrder: decimal.NewFromFloat(0.05),
		models.CommissionTypeCreatorOrder:  decimal.NewFromFloat(0.08),
		models.CommissionTypeGroupBuy:      decimal.NewFromFloat(0.15),
	}
	level2Rate = decimal.NewFromFloat(0.05)
)

func supportsLevel2(event string) bool {
	return event == models.CommissionTypeUserOrder || event == models.CommissionTypeGroupBuy
}

// CommissionService distributes referral commissions across the two-level
// referral graph when an order completes.
type CommissionService struct {
	db   *gorm.DB
	sink NotificationSink
}

func NewCommissionService(db *gorm.DB, sink NotificationSink) *CommissionService {
	return &CommissionService{
		db:   db,
		sink: sink,
	}
}

// Settle looks up the acting user's referral relation, computes the tier
// amounts for the given event and credits each referrer. It is safe to call
// more than once for the same order: each tier is keyed by
// (orderID, toUserID, level) both by a pre-check and by a unique index, so
// retried webhooks and overlapping cron ticks settle every tier at most
// once. Returns only the rows created by this call.
func (s *CommissionService) Settle(
	ctx context.Context,
	event string,
	fromUserID uint,
	orderID uuid.UUID,
	amount decimal.Decimal,
) ([]models.ReferralCommission, error) {
	rate1, ok := level1Rates[event]
	if !ok {
		return nil, fmt.Errorf("unknown commission event %q", event)
	}

	var relation models.ReferralRelation
	err := s.db.WithContext(ctx).Where("user_id = ?", fromUserID).First(&relation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // no referrer, nothing to pay
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load referral relation: %w", err)
	}

	var tiers []models.ReferralCommission
	if relation.ParentID != nil {
		tiers = append(tiers, models.ReferralCommission{
			FromUserID: fromUserID,
			ToUserID:   *relation.ParentID,
			OrderID:    orderID,
			Level:      1,
			Amount:     amount.Mul(rate1).Round(2),
			Type:       event,
		})
	}
	if relation.GrandParentID != nil && supportsLevel2(event) {
		tiers = append(tiers, models.ReferralCommission{
			FromUserID: fromUserID,
			ToUserID:   *relation.GrandParentID,
			OrderID:    orderID,
			Level:      2,
			Amount:     amount.Mul(level2Rate).Round(2),
			Type:       event,
		})
	}

	var created []models.ReferralCommission
	for i := range tiers {
		tier := tiers[i]

		var dupes int64
		err := s.db.WithContext(ctx).Model(&models.ReferralCommission{}).
			Where("order_id = ? AND to_user_id = ? AND level = ?", tier.OrderID, tier.ToUserID, tier.Level).
			Count(&dupes).Error
		if err != nil {
			return created, fmt.Errorf("failed to check ledger: %w", err)
		}
		if dupes > 0 {
			continue // tier already settled for this order
		}

		// Ledger insert and balance credit commit as one unit. A concurrent
		// duplicate loses on the unique index and rolls back whole.
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&tier).Error; err != nil {
				return err
			}
			return tx.Model(&models.User{}).
				Where("id = ?", tier.ToUserID).
				Update("balance", gorm.Expr("balance + ?", tier.Amount)).Error
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue // lost the race to a concurrent settle
		}
		if err != nil {
			return created, fmt.Errorf("failed to settle level %d commission: %w", tier.Level, err)
		}

		created = append(created, tier)
		log.Printf("Commission settled: %s to user %d (level %d, order %s)",
			tier.Amount, tier.ToUserID, tier.Level, orderID)

		s.sink.Notify(ctx, tier.ToUserID, models.NotificationTypeCommission,
			"Referral commission received",
			fmt.Sprintf("You received a level %d referral commission of %s", tier.Level, tier.Amount))
	}

	return created, nil
}

// GetUserCommissions returns all commissions credited to a user, newest first.
func (s *CommissionService) GetUserCommissions(ctx context.Context, userID uint) ([]models.ReferralCommission, error) {
	var commissions []models.ReferralCommission
	err := s.db.WithContext(ctx).
		Where("to_user_id = ?", userID).
		Order("created_at DESC").
		Find(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

// GetOrderCommissions returns the ledger rows credited to a user for one order.
func (s *CommissionService) GetOrderCommissions(ctx context.Context, userID uint, orderID uuid.UUID) ([]models.ReferralCommission, error) {
	var commissions []models.ReferralCommission
	err := s.db.WithContext(ctx).
		Where("to_user_id = ? AND order_id = ?", userID, orderID).
		Order("level ASC").
		Find(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

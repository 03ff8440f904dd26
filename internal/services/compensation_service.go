package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"group-market/internal/models"
	"group-market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// couponValidity is how long a compensation coupon stays redeemable.
const couponValidity = 7 * 24 * time.Hour

// CompensationService settles the FAILED path of a group buy: every paid
// order gets exactly one remedy, a cash refund or an equivalent-value
// coupon, per the group's configured strategy.
type CompensationService struct {
	db   *gorm.DB
	repo *repository.Repository
	sink NotificationSink
}

func NewCompensationService(db *gorm.DB, repo *repository.Repository, sink NotificationSink) *CompensationService {
	return &CompensationService{
		db:   db,
		repo: repo,
		sink: sink,
	}
}

// Compensate processes all paid orders of a failed group buy. Each order is
// guarded by a conditional status update, so calling this twice for the
// same group (overlapping sweeps, manual retries) never refunds or issues a
// coupon twice.
func (s *CompensationService) Compensate(ctx context.Context, groupID uuid.UUID) error {
	gb, err := s.repo.GetGroupBuyByID(ctx, groupID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrGroupNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load group buy: %w", err)
	}

	orders, err := s.repo.ListPaidGroupOrders(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load group orders: %w", err)
	}

	var firstErr error
	for _, order := range orders {
		var err error
		if gb.RefundStrategy == models.RefundStrategyRefund {
			err = s.refundOrder(ctx, order)
		} else {
			err = s.issueCoupon(ctx, gb, order)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// refundOrder marks a paid order refunded. The actual fund movement is
// delegated to the payment gateway outside this core.
func (s *CompensationService) refundOrder(ctx context.Context, order *models.Order) error {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderStatusPaid).
		Updates(map[string]interface{}{
			"status":        models.OrderStatusRefunded,
			"refund_status": models.RefundStatusCompleted,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to refund order %s: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil // already compensated
	}

	log.Printf("Order %s refunded after group-buy failure", order.ID)

	s.sink.Notify(ctx, order.UserID, models.NotificationTypeRefund,
		"Group buy refund",
		fmt.Sprintf("Your group buy failed; order %s was refunded %s", order.ID, order.Amount))
	return nil
}

// issueCoupon creates one compensation coupon and closes the order. The
// conditional flag flip and the coupon insert commit together, so a crash
// in between cannot strand a flagged order without its coupon.
func (s *CompensationService) issueCoupon(ctx context.Context, gb *models.GroupBuy, order *models.Order) error {
	amount := order.Amount
	if gb.CouponAmount != nil {
		amount = *gb.CouponAmount
	}

	issued := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ? AND coupon_issued = ?", order.ID, models.OrderStatusPaid, false).
			Updates(map[string]interface{}{
				"status":        models.OrderStatusFailed,
				"coupon_issued": true,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // already compensated
		}

		coupon := models.Coupon{
			UserID:     order.UserID,
			Amount:     amount,
			Status:     models.CouponStatusActive,
			GroupBuyID: &gb.ID,
			OrderID:    &order.ID,
			ValidTo:    time.Now().Add(couponValidity),
		}
		if err := tx.Create(&coupon).Error; err != nil {
			return err
		}

		issued = true
		return tx.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("coupon_id", coupon.ID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to issue coupon for order %s: %w", order.ID, err)
	}
	if !issued {
		return nil
	}

	log.Printf("Coupon of %s issued for order %s after group-buy failure", amount, order.ID)

	s.sink.Notify(ctx, order.UserID, models.NotificationTypeGroupFailed,
		"Group buy failed",
		fmt.Sprintf("Your group buy failed; a coupon of %s was issued as compensation", amount))
	return nil
}

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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GroupBuyService drives a group buy through PENDING -> SUCCESS / FAILED.
// Both terminal transitions are single conditional row updates, so whoever
// wins the update owns the follow-up work (commissions or compensation) and
// every other caller observes a terminal state and no-ops.
type GroupBuyService struct {
	repo         *repository.Repository
	commissions  *CommissionService
	compensation *CompensationService
	sink         NotificationSink
}

func NewGroupBuyService(
	repo *repository.Repository,
	commissions *CommissionService,
	compensation *CompensationService,
	sink NotificationSink,
) *GroupBuyService {
	return &GroupBuyService{
		repo:         repo,
		commissions:  commissions,
		compensation: compensation,
		sink:         sink,
	}
}

// Create opens a new PENDING group buy with the initiator auto-joined as
// the first participant, backed by a paid order like every later join.
func (s *GroupBuyService) Create(
	ctx context.Context,
	initiatorID uint,
	productID uint,
	groupPrice decimal.Decimal,
	maxMembers int,
	ttl time.Duration,
	refundStrategy string,
	couponAmount *decimal.Decimal,
) (*models.GroupBuy, error) {
	if maxMembers < 2 {
		return nil, errors.New("group buy needs at least 2 members")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	if !groupPrice.IsPositive() {
		return nil, errors.New("group price must be positive")
	}
	if refundStrategy == "" {
		refundStrategy = models.RefundStrategyCoupon
	}
	if refundStrategy != models.RefundStrategyCoupon && refundStrategy != models.RefundStrategyRefund {
		return nil, fmt.Errorf("unknown refund strategy %q", refundStrategy)
	}

	gb := &models.GroupBuy{
		ID:             uuid.New(),
		ProductID:      productID,
		InitiatorID:    initiatorID,
		GroupPrice:     groupPrice,
		MaxMembers:     maxMembers,
		CurrentMembers: 1,
		Status:         models.GroupBuyStatusPending,
		RefundStrategy: refundStrategy,
		CouponAmount:   couponAmount,
		ExpiresAt:      time.Now().Add(ttl),
	}

	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if err := txRepo.CreateGroupBuy(ctx, gb); err != nil {
			return err
		}

		order := &models.Order{
			ID:         uuid.New(),
			UserID:     initiatorID,
			GroupBuyID: &gb.ID,
			Amount:     groupPrice,
			Status:     models.OrderStatusPaid,
		}
		if err := txRepo.CreateOrder(ctx, order); err != nil {
			return err
		}

		return txRepo.CreateParticipant(ctx, &models.GroupParticipant{
			GroupBuyID: gb.ID,
			UserID:     initiatorID,
			OrderID:    order.ID,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create group buy: %w", err)
	}

	log.Printf("Group buy %s created by user %d (%d members, expires %s)",
		gb.ID, initiatorID, maxMembers, gb.ExpiresAt.Format(time.RFC3339))

	return gb, nil
}

// Join adds a user to a pending group buy. The capacity check and the
// member increment execute as one conditional update, so concurrent joins
// can never overfill the group. When this join fills the last slot the
// PENDING -> SUCCESS transition commits in the same transaction, and the
// winner settles group-buy commissions afterwards, outside the critical
// section.
func (s *GroupBuyService) Join(
	ctx context.Context,
	groupID uuid.UUID,
	userID uint,
	referrerID *uint,
) (*models.GroupParticipant, error) {
	gb, err := s.repo.GetGroupBuyByID(ctx, groupID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group buy: %w", err)
	}

	if gb.Status != models.GroupBuyStatusPending {
		return nil, ErrGroupFinished
	}
	// Expiry is checked lazily here as well as by the sweep, so a group can
	// never be joined after its deadline even before the sweep notices.
	if time.Now().After(gb.ExpiresAt) {
		return nil, ErrGroupExpired
	}

	joined, err := s.repo.HasParticipant(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check participants: %w", err)
	}
	if joined {
		return nil, ErrAlreadyJoined
	}

	participant := &models.GroupParticipant{
		GroupBuyID: groupID,
		UserID:     userID,
		ReferrerID: referrerID,
	}
	becameSuccessful := false

	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		ok, err := txRepo.TryIncrementMembers(ctx, groupID)
		if err != nil {
			return err
		}
		if !ok {
			// The conditional update rejected us: terminal or full.
			current, err := txRepo.GetGroupBuyByID(ctx, groupID)
			if err != nil {
				return err
			}
			if current.Status != models.GroupBuyStatusPending {
				return ErrGroupFinished
			}
			return ErrGroupFull
		}

		order := &models.Order{
			ID:         uuid.New(),
			UserID:     userID,
			GroupBuyID: &groupID,
			Amount:     gb.GroupPrice,
			Status:     models.OrderStatusPaid,
			ReferrerID: referrerID,
		}
		if err := txRepo.CreateOrder(ctx, order); err != nil {
			return err
		}

		participant.OrderID = order.ID
		if err := txRepo.CreateParticipant(ctx, participant); err != nil {
			return err
		}

		becameSuccessful, err = txRepo.MarkSuccessIfFull(ctx, groupID)
		return err
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrAlreadyJoined
	}
	if err != nil {
		if errors.Is(err, ErrGroupFinished) || errors.Is(err, ErrGroupFull) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to join group buy: %w", err)
	}

	log.Printf("User %d joined group buy %s", userID, groupID)

	if becameSuccessful {
		s.onGroupSuccess(ctx, groupID)
	}

	return participant, nil
}

// onGroupSuccess settles group-buy commissions for every participant that
// carried a join referrer, keyed by that participant's own order. Each
// settlement is independently idempotent, so a partial failure here heals
// on the next settle webhook for the same orders.
func (s *GroupBuyService) onGroupSuccess(ctx context.Context, groupID uuid.UUID) {
	log.Printf("Group buy %s reached capacity, now SUCCESS", groupID)

	participants, err := s.repo.ListParticipants(ctx, groupID)
	if err != nil {
		log.Printf("Error loading participants of group %s: %v", groupID, err)
		return
	}

	for _, p := range participants {
		if p.ReferrerID == nil {
			continue
		}
		order, err := s.repo.GetOrderByID(ctx, p.OrderID)
		if err != nil {
			log.Printf("Error loading order %s: %v", p.OrderID, err)
			continue
		}
		if _, err := s.commissions.Settle(ctx, models.CommissionTypeGroupBuy, p.UserID, order.ID, order.Amount); err != nil {
			log.Printf("Error settling group-buy commission for order %s: %v", order.ID, err)
		}
	}
}

// ExpireIfDue transitions a pending group buy past its deadline to FAILED
// and compensates its paid orders. Safe to call redundantly: once the
// status is terminal the conditional update no-ops and reports false.
func (s *GroupBuyService) ExpireIfDue(ctx context.Context, groupID uuid.UUID) (bool, error) {
	transitioned, err := s.repo.MarkFailedIfExpired(ctx, groupID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to expire group buy: %w", err)
	}
	if !transitioned {
		return false, nil
	}

	log.Printf("Group buy %s expired, now FAILED", groupID)

	if err := s.compensation.Compensate(ctx, groupID); err != nil {
		// Compensation is per-order idempotent; the next sweep tick retries.
		return true, fmt.Errorf("failed to compensate group buy %s: %w", groupID, err)
	}
	return true, nil
}

// GetGroupBuy retrieves a group buy with its participants.
func (s *GroupBuyService) GetGroupBuy(ctx context.Context, groupID uuid.UUID) (*models.GroupBuy, []*models.GroupParticipant, error) {
	gb, err := s.repo.GetGroupBuyByID(ctx, groupID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	participants, err := s.repo.ListParticipants(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	return gb, participants, nil
}

// GetUserGroupBuys retrieves group buys the user initiated or joined.
func (s *GroupBuyService) GetUserGroupBuys(ctx context.Context, userID uint, limit, offset int) ([]*models.GroupBuy, error) {
	return s.repo.GetUserGroupBuys(ctx, userID, limit, offset)
}

// ListExpiredPending exposes the sweep query.
func (s *GroupBuyService) ListExpiredPending(ctx context.Context, limit int) ([]*models.GroupBuy, error) {
	return s.repo.ListExpiredPending(ctx, time.Now(), limit)
}

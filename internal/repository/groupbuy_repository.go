package repository

import (
	"context"
	"time"

	"group-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository wraps all group-buy persistence. The status and member-count
// mutations go through conditional updates only, so concurrent joins and
// overlapping sweeps serialize on the database row instead of on
// application-level reads.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Transaction runs fn inside one database transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// CreateGroupBuy creates a new group buy
func (r *Repository) CreateGroupBuy(ctx context.Context, gb *models.GroupBuy) error {
	return r.db.WithContext(ctx).Create(gb).Error
}

// GetGroupBuyByID retrieves a group buy by ID
func (r *Repository) GetGroupBuyByID(ctx context.Context, id uuid.UUID) (*models.GroupBuy, error) {
	var gb models.GroupBuy
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&gb).Error
	if err != nil {
		return nil, err
	}
	return &gb, nil
}

// GetUserGroupBuys retrieves group buys the user initiated or joined.
func (r *Repository) GetUserGroupBuys(ctx context.Context, userID uint, limit, offset int) ([]*models.GroupBuy, error) {
	var groups []*models.GroupBuy
	err := r.db.WithContext(ctx).
		Where("initiator_id = ? OR id IN (?)", userID,
			r.db.Model(&models.GroupParticipant{}).Select("group_buy_id").Where("user_id = ?", userID)).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// TryIncrementMembers atomically bumps current_members if the group is
// still pending and below capacity. Exactly one of two racing joins on the
// last slot sees true here; the loser re-reads the row to classify its
// failure.
func (r *Repository) TryIncrementMembers(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.GroupBuy{}).
		Where("id = ? AND status = ? AND current_members < max_members", id, models.GroupBuyStatusPending).
		Update("current_members", gorm.Expr("current_members + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkSuccessIfFull transitions PENDING -> SUCCESS once capacity is
// reached. The single row update is the only success path, so at most one
// caller observes the transition.
func (r *Repository) MarkSuccessIfFull(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.GroupBuy{}).
		Where("id = ? AND status = ? AND current_members >= max_members", id, models.GroupBuyStatusPending).
		Update("status", models.GroupBuyStatusSuccess)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkFailedIfExpired transitions PENDING -> FAILED for a group past its
// deadline. Redundant calls see zero rows affected and no-op.
func (r *Repository) MarkFailedIfExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.GroupBuy{}).
		Where("id = ? AND status = ? AND expires_at < ?", id, models.GroupBuyStatusPending, now).
		Update("status", models.GroupBuyStatusFailed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListExpiredPending retrieves pending group buys whose deadline has passed.
func (r *Repository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*models.GroupBuy, error) {
	var groups []*models.GroupBuy
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.GroupBuyStatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// HasParticipant reports whether the user already joined the group.
func (r *Repository) HasParticipant(ctx context.Context, groupID uuid.UUID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GroupParticipant{}).
		Where("group_buy_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

// CreateParticipant creates a participant row
func (r *Repository) CreateParticipant(ctx context.Context, p *models.GroupParticipant) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// ListParticipants retrieves all participants of a group buy.
func (r *Repository) ListParticipants(ctx context.Context, groupID uuid.UUID) ([]*models.GroupParticipant, error) {
	var participants []*models.GroupParticipant
	err := r.db.WithContext(ctx).
		Where("group_buy_id = ?", groupID).
		Order("joined_at ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// CreateOrder creates an order row
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetOrderByID retrieves an order by ID
func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListPaidGroupOrders retrieves the paid, not yet fulfilled orders tied to
// a group buy — the set eligible for compensation after a failure.
func (r *Repository) ListPaidGroupOrders(ctx context.Context, groupID uuid.UUID) ([]*models.Order, error) {
	var orders []*models.Order
	err := r.db.WithContext(ctx).
		Where("group_buy_id = ? AND status = ?", groupID, models.OrderStatusPaid).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

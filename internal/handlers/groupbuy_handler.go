package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"group-market/internal/auth"
	"group-market/internal/services"
)

// GroupBuyHandler exposes the group-buy lifecycle over HTTP
type GroupBuyHandler struct {
	groupBuys *services.GroupBuyService
}

func NewGroupBuyHandler(groupBuys *services.GroupBuyService) *GroupBuyHandler {
	return &GroupBuyHandler{groupBuys: groupBuys}
}

// CreateGroupBuy opens a new group buy with the caller as initiator
// POST /api/group-buys
func (h *GroupBuyHandler) CreateGroupBuy(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		ProductID      uint             `json:"product_id" binding:"required"`
		GroupPrice     decimal.Decimal  `json:"group_price" binding:"required"`
		MaxMembers     int              `json:"max_members"`
		TTLMinutes     int              `json:"ttl_minutes"`
		RefundStrategy string           `json:"refund_strategy"`
		CouponAmount   *decimal.Decimal `json:"coupon_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxMembers == 0 {
		req.MaxMembers = 3
	}
	if req.TTLMinutes == 0 {
		req.TTLMinutes = 60
	}

	gb, err := h.groupBuys.Create(
		c.Request.Context(),
		userID,
		req.ProductID,
		req.GroupPrice,
		req.MaxMembers,
		time.Duration(req.TTLMinutes)*time.Minute,
		req.RefundStrategy,
		req.CouponAmount,
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gb,
	})
}

// JoinGroupBuy joins the caller into a pending group buy
// POST /api/group-buys/:id/join
func (h *GroupBuyHandler) JoinGroupBuy(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group buy id"})
		return
	}

	var req struct {
		ReferrerID *uint `json:"referrer_id"`
	}
	_ = c.ShouldBindJSON(&req) // body is optional

	if req.ReferrerID != nil && *req.ReferrerID == userID {
		req.ReferrerID = nil // self-referral carries no commission
	}

	participant, err := h.groupBuys.Join(c.Request.Context(), groupID, userID, req.ReferrerID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrGroupNotFound):
			status = http.StatusNotFound
		case errors.Is(err, services.ErrGroupFinished),
			errors.Is(err, services.ErrGroupExpired),
			errors.Is(err, services.ErrAlreadyJoined),
			errors.Is(err, services.ErrGroupFull):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    participant,
	})
}

// GetGroupBuy returns a group buy with its participants
// GET /api/group-buys/:id
func (h *GroupBuyHandler) GetGroupBuy(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group buy id"})
		return
	}

	gb, participants, err := h.groupBuys.GetGroupBuy(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, services.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group buy not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get group buy"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"data":         gb,
		"participants": participants,
	})
}

// GetMyGroupBuys returns group buys the caller initiated or joined
// GET /api/group-buys/my
func (h *GroupBuyHandler) GetMyGroupBuys(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	groups, err := h.groupBuys.GetUserGroupBuys(c.Request.Context(), userID, 50, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get group buys"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    groups,
		"count":   len(groups),
	})
}

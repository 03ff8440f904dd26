package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"group-market/internal/auth"
	"group-market/internal/payment"
	"group-market/internal/services"
)

// CommissionHandler exposes the settlement webhook and the commission
// ledger queries.
type CommissionHandler struct {
	commissions *services.CommissionService
	gateway     payment.Gateway
}

func NewCommissionHandler(commissions *services.CommissionService, gateway payment.Gateway) *CommissionHandler {
	return &CommissionHandler{
		commissions: commissions,
		gateway:     gateway,
	}
}

// SettleCommission is the order-completion webhook: the order subsystem
// calls it on delivery confirmation, merchant settlement and creator
// settlement. When the event carries an on-chain tx hash the payment is
// re-verified before any commission is paid. Duplicate deliveries are
// harmless — settlement is idempotent per (order, recipient, level).
// POST /api/commissions/settle
func (h *CommissionHandler) SettleCommission(c *gin.Context) {
	var req struct {
		Event      string          `json:"event" binding:"required"`
		FromUserID uint            `json:"from_user_id" binding:"required"`
		OrderID    uuid.UUID       `json:"order_id" binding:"required"`
		Amount     decimal.Decimal `json:"amount" binding:"required"`
		TxHash     string          `json:"tx_hash"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	if req.TxHash != "" {
		verified, err := h.gateway.Verify(c.Request.Context(), req.TxHash, req.Amount)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment verification failed"})
			return
		}
		if !verified {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment not confirmed"})
			return
		}
	}

	created, err := h.commissions.Settle(c.Request.Context(), req.Event, req.FromUserID, req.OrderID, req.Amount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    created,
		"count":   len(created),
	})
}

// GetMyCommissions returns commissions credited to the caller
// GET /api/commissions/my
func (h *CommissionHandler) GetMyCommissions(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	commissions, err := h.commissions.GetUserCommissions(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get commissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    commissions,
		"count":   len(commissions),
	})
}

// GetOrderCommissions returns the caller's commissions for one order
// GET /api/commissions/order/:orderId
func (h *CommissionHandler) GetOrderCommissions(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	commissions, err := h.commissions.GetOrderCommissions(c.Request.Context(), userID, orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get commissions"})
		return
	}
	if len(commissions) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no commission records for this order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    commissions,
	})
}

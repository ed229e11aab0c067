package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/andresuchdata/gallery-feed/internal/order"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type OrderSubmitter interface {
	Submit(ctx context.Context, o order.Order) (time.Time, error)
}

type OrderHandler struct {
	orders OrderSubmitter
}

func NewOrderHandler(orders OrderSubmitter) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// SubmitOrder appends the posted order to the order sheet.
func (h *OrderHandler) SubmitOrder(c *gin.Context) {
	var req order.Order
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if _, err := h.orders.Submit(c.Request.Context(), req); err != nil {
		if errors.Is(err, order.ErrMissingFields) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
			return
		}
		log.Error().Err(err).Msg("order: submit failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to submit order",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order submitted successfully",
	})
}

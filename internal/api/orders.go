package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harborlabs/harbor-backoffice/internal/domain/lifecycle"
	"github.com/harborlabs/harbor-backoffice/internal/usecase/orders"
	"github.com/harborlabs/harbor-backoffice/internal/usecase/returnrequests"
)

func (r *Router) CreateOrder(c *gin.Context) {
	var req struct {
		CustomerID int64  `json:"customer_id" binding:"required"`
		TotalCents int64  `json:"total_cents" binding:"required"`
		Currency   string `json:"currency" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	id, err := r.orderSvc.Create(c.Request.Context(), req.CustomerID, req.TotalCents, req.Currency)
	if err != nil {
		r.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order_id": strconv.FormatInt(id, 10)})
}

func (r *Router) ConfirmOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := r.orderSvc.Confirm(c.Request.Context(), id); err != nil {
		r.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}

func (r *Router) ShipOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		TrackingCode string `json:"tracking_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := r.orderSvc.Ship(c.Request.Context(), id, req.TrackingCode); err != nil {
		r.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "shipped"})
}

func (r *Router) DeliverOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := r.orderSvc.Deliver(c.Request.Context(), id); err != nil {
		r.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "delivered"})
}

func (r *Router) CancelOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := r.orderSvc.Cancel(c.Request.Context(), id, req.Reason); err != nil {
		r.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (r *Router) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := r.orderSvc.Delete(c.Request.Context(), id); err != nil {
		r.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// writeError maps domain failures onto HTTP statuses. Refused transitions
// are conflicts, not client syntax errors.
func (r *Router) writeError(c *gin.Context, err error) {
	var invalid *lifecycle.InvalidTransitionError
	var deleted *lifecycle.AlreadyDeletedError

	switch {
	case errors.Is(err, orders.ErrNotFound),
		errors.Is(err, returnrequests.ErrNotFound),
		errors.Is(err, returnrequests.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &invalid), errors.As(err, &deleted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		r.logger.Error("request_failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

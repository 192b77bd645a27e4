package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (r *Router) CreateReturnRequest(c *gin.Context) {
	var req struct {
		OrderID int64  `json:"order_id" binding:"required"`
		Reason  string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	id, err := r.returnSvc.Request(c.Request.Context(), req.OrderID, req.Reason)
	if err != nil {
		r.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"return_request_id": strconv.FormatInt(id, 10)})
}

func (r *Router) ApproveReturnRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := r.returnSvc.Approve(c.Request.Context(), id); err != nil {
		r.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

func (r *Router) RejectReturnRequest(c *gin.Context) {
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
	if err := r.returnSvc.Reject(c.Request.Context(), id, req.Reason); err != nil {
		r.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

func (r *Router) CompleteReturnRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := r.returnSvc.Complete(c.Request.Context(), id); err != nil {
		r.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

func (r *Router) DeleteReturnRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := r.returnSvc.Delete(c.Request.Context(), id); err != nil {
		r.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

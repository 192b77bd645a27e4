package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harborlabs/harbor-backoffice/internal/outbox"
)

type deadLetterView struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	AggregateID   string    `json:"aggregate_id"`
	AggregateType string    `json:"aggregate_type"`
	EventType     string    `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	RetryCount    int       `json:"retry_count"`
	LastError     string    `json:"last_error"`
}

func (r *Router) ListDeadLetters(c *gin.Context) {
	filter := outbox.DeadLetterFilter{
		EventType:     c.Query("event_type"),
		ErrorContains: c.Query("error_contains"),
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
			return
		}
		filter.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
			return
		}
		filter.To = t
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = n
	}

	rows, err := r.outboxStore.ListDeadLettered(c.Request.Context(), filter)
	if err != nil {
		r.writeError(c, err)
		return
	}

	views := make([]deadLetterView, 0, len(rows))
	for _, row := range rows {
		var lastError string
		if row.LastError != nil {
			lastError = *row.LastError
		}
		views = append(views, deadLetterView{
			ID:            strconv.FormatInt(row.ID, 10),
			EventID:       row.EventID,
			AggregateID:   row.AggregateID,
			AggregateType: row.AggregateType,
			EventType:     row.EventType,
			OccurredAt:    row.OccurredAt,
			RetryCount:    row.RetryCount,
			LastError:     lastError,
		})
	}

	c.JSON(http.StatusOK, gin.H{"dead_letters": views})
}

func (r *Router) ReplayDeadLetters(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ids := make([]int64, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id: " + raw})
			return
		}
		ids = append(ids, id)
	}

	replayed, err := r.outboxStore.Replay(c.Request.Context(), ids)
	if err != nil {
		r.writeError(c, err)
		return
	}

	r.logger.Info("dead_letters_replayed",
		zap.Int64("count", replayed),
		zap.String("request_id", c.GetString("request_id")),
	)
	c.JSON(http.StatusOK, gin.H{"replayed": replayed})
}

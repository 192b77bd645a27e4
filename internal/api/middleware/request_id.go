package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/harborlabs/harbor-backoffice/pkg/telemetry/correlation"
)

// RequestID attaches a correlation ID to every request. An incoming
// X-Request-ID header is honored so IDs survive proxy hops.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		ctx := correlation.ContextWithCorrelationID(c.Request.Context(), id)
		ctx, id = correlation.EnsureCorrelationID(ctx)

		c.Request = c.Request.WithContext(ctx)
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)

		c.Next()
	}
}

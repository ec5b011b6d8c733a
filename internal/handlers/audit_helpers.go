package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"comms-service/internal/middleware"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func accountIDFromContext(c *gin.Context) *int64 {
	if account, ok := middleware.CallerAccount(c); ok && account.ID != 0 {
		id := account.ID
		return &id
	}
	return nil
}

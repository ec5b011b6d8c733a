package ws

import (
	"time"

	"comms-service/internal/models"
)

// ConnInfo describes one websocket connection for audit events.
type ConnInfo struct {
	ConnID      string
	AccountID   int64
	Role        models.Role
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

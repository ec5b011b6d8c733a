package ws

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"comms-service/internal/middleware"
	"comms-service/internal/models"
	"comms-service/internal/observability"
	"comms-service/internal/rabbitmq"
	"comms-service/internal/repositories"
)

// ConversationWebSocketHandler upgrades participants into a conversation
// room for live delivery.
type ConversationWebSocketHandler struct {
	hub       *Hub
	convs     repositories.ConversationRepository
	publisher rabbitmq.Publisher
	jwtSecret []byte
}

// NewConversationWebSocketHandler constructs the handler.
func NewConversationWebSocketHandler(hub *Hub, convs repositories.ConversationRepository, publisher rabbitmq.Publisher, jwtSecret []byte) *ConversationWebSocketHandler {
	return &ConversationWebSocketHandler{hub: hub, convs: convs, publisher: publisher, jwtSecret: jwtSecret}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the caller, verifies participation and registers
// the connection.
func (h *ConversationWebSocketHandler) Handle(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	ctx, span := otel.Tracer("comms-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	account, ok := h.authenticate(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	member, err := h.convs.IsParticipant(ctx, conversationID, account.ID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation participant"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		AccountID:   account.ID,
		Role:        account.Role,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(conversationID, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishLifecycle(ctx, "ws_connect", conversationID, info, "")

	// The gin context is pooled and recycled once Handle returns; the
	// connection outlives the request, so the goroutine must not touch c.
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(conversationID, conn)
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			h.publishLifecycle(context.Background(), "ws_disconnect", conversationID, info, closeReason)
			conn.Close()
		}()
		for {
			// Clients only listen on this socket; reads exist to detect close.
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ws_error")
				}
				return
			}
		}
	}()
}

func (h *ConversationWebSocketHandler) authenticate(c *gin.Context) (models.Account, bool) {
	token := c.GetHeader("Authorization")
	if token != "" {
		parts := strings.SplitN(token, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return models.Account{}, false
		}
		token = parts[1]
	} else {
		token = c.Query("token")
	}
	if token == "" {
		return models.Account{}, false
	}

	account, err := middleware.ResolveToken(token, h.jwtSecret)
	if err != nil {
		return models.Account{}, false
	}
	return account, true
}

func (h *ConversationWebSocketHandler) publishLifecycle(ctx context.Context, event string, conversationID int64, info ConnInfo, reason string) {
	_ = h.publisher.Publish(ctx, "ws_events.conversations", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"conversation_id": conversationID,
				"event":           event,
				"conn_id":         info.ConnID,
				"duration_ms":     time.Since(info.ConnectedAt).Milliseconds(),
				"reason":          reason,
			},
			"identity": map[string]interface{}{
				"account_id": info.AccountID,
				"role":       info.Role,
				"ip":         info.IP,
			},
		},
	})
}

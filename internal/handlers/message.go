package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"comms-service/internal/dispatcher"
	"comms-service/internal/middleware"
	"comms-service/internal/policy"
	"comms-service/internal/repositories"
	"comms-service/internal/telemetry"
)

// MessageHandler exposes the send pipeline over HTTP.
type MessageHandler struct {
	dispatcher *dispatcher.Dispatcher
	dir        repositories.DirectoryRepository
	audit      *telemetry.AuditEmitter
	maxLength  int
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(d *dispatcher.Dispatcher, dir repositories.DirectoryRepository, audit *telemetry.AuditEmitter, maxLength int) *MessageHandler {
	return &MessageHandler{dispatcher: d, dir: dir, audit: audit, maxLength: maxLength}
}

type sendRequest struct {
	RecipientID int64  `json:"recipient_id" binding:"required"`
	ChildID     int64  `json:"child_id" binding:"required"`
	Content     string `json:"content" binding:"required"`
}

// Send runs the dispatcher for the authenticated caller. The sender is
// always the caller; the body never names a sender.
func (h *MessageHandler) Send(c *gin.Context) {
	sender, ok := middleware.CallerAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return
	}

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if utf8.RuneCountInString(req.Content) > h.maxLength {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("content exceeds %d characters", h.maxLength)})
		return
	}

	recipient, err := h.dir.GetAccount(c.Request.Context(), req.RecipientID)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipient not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve recipient"})
		return
	}

	receipt, err := h.dispatcher.Send(c.Request.Context(), sender, recipient, req.ChildID, req.Content)
	if err != nil {
		var denial *dispatcher.DenialError
		switch {
		case errors.As(err, &denial):
			h.audit.Emit(c.Request.Context(), "send_denied", string(denial.Reason), requestIDFromContext(c), accountIDFromContext(c))
			c.JSON(http.StatusForbidden, gin.H{"kind": string(denial.Reason), "message": denialMessage(denial)})
		case errors.Is(err, repositories.ErrConversationArchived):
			c.JSON(http.StatusConflict, gin.H{"kind": "conversation_archived", "message": "this conversation has been archived"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		}
		return
	}

	h.audit.Emit(c.Request.Context(), "message_sent",
		fmt.Sprintf("conversation=%d message=%d", receipt.ConversationID, receipt.MessageID),
		requestIDFromContext(c), accountIDFromContext(c))
	c.JSON(http.StatusCreated, receipt)
}

type precheckRequest struct {
	RecipientID int64 `json:"recipient_id" binding:"required"`
	ChildID     int64 `json:"child_id" binding:"required"`
}

// Precheck evaluates policy without sending, so a compose screen can tell
// the user up front whether (and under what monitoring) the message would
// go through.
func (h *MessageHandler) Precheck(c *gin.Context) {
	sender, ok := middleware.CallerAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return
	}

	var req precheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipient, err := h.dir.GetAccount(c.Request.Context(), req.RecipientID)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipient not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve recipient"})
		return
	}

	decision, err := h.dispatcher.Precheck(c.Request.Context(), sender, recipient, req.ChildID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to evaluate policy"})
		return
	}

	c.JSON(http.StatusOK, decision)
}

// denialMessage keeps the two denial kinds visibly distinct: the wrong
// recipient versus the right recipient at the wrong time.
func denialMessage(denial *dispatcher.DenialError) string {
	switch denial.Reason {
	case policy.DenyOutsideOfficeHours:
		return "this teacher only accepts student messages during office hours; try again later"
	default:
		return "you are not allowed to message this recipient about this child"
	}
}

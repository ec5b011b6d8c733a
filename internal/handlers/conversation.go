package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"comms-service/internal/middleware"
	"comms-service/internal/models"
	"comms-service/internal/repositories"
)

// ConversationHandler manages conversation list and thread endpoints.
type ConversationHandler struct {
	convs repositories.ConversationRepository
	msgs  repositories.MessageRepository
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(convs repositories.ConversationRepository, msgs repositories.MessageRepository) *ConversationHandler {
	return &ConversationHandler{convs: convs, msgs: msgs}
}

// List returns the caller's conversations, newest first, optionally
// filtered by counterparty name or snippet substring.
func (h *ConversationHandler) List(c *gin.Context) {
	viewer, ok := middleware.CallerAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return
	}

	summaries, err := h.convs.List(c.Request.Context(), viewer.ID, c.Query("filter"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// GetMessages returns the ordered thread and marks it read for the
// caller. Reading is what clears the unread counter; other participants'
// counters are untouched.
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}

	viewer, ok := middleware.CallerAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return
	}

	member, err := h.convs.IsParticipant(c.Request.Context(), conversationID, viewer.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation participant"})
		return
	}

	msgs, err := h.msgs.ListForConversation(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	if err := h.convs.MarkRead(c.Request.Context(), conversationID, viewer.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark conversation read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Archive closes the thread for new messages. Only the participant
// teacher or an admin may archive; the history remains readable.
func (h *ConversationHandler) Archive(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}

	caller, ok := middleware.CallerAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return
	}

	conv, err := h.convs.Get(c.Request.Context(), conversationID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "conversation not found"})
		return
	}

	allowed := caller.Role == models.RoleAdmin ||
		(caller.Role == models.RoleTeacher && conv.TeacherID == caller.ID)
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the teacher or an admin may archive"})
		return
	}

	if err := h.convs.Archive(c.Request.Context(), conversationID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to archive conversation"})
		return
	}

	c.Status(http.StatusNoContent)
}

func parseConversationID(c *gin.Context) (int64, bool) {
	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return 0, false
	}
	return conversationID, true
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"comms-service/internal/middleware"
	"comms-service/internal/repositories"
	"comms-service/internal/telemetry"
)

// TransparencyHandler serves the guardian view of a child's
// student-teacher messages.
type TransparencyHandler struct {
	mirrors repositories.ChildMessageRepository
	dir     repositories.DirectoryRepository
	audit   *telemetry.AuditEmitter
}

// NewTransparencyHandler builds a TransparencyHandler.
func NewTransparencyHandler(mirrors repositories.ChildMessageRepository, dir repositories.DirectoryRepository, audit *telemetry.AuditEmitter) *TransparencyHandler {
	return &TransparencyHandler{mirrors: mirrors, dir: dir, audit: audit}
}

// ListChildMessages returns the caller's transparency feed for one child.
// The caller must be a guardian of that child.
func (h *TransparencyHandler) ListChildMessages(c *gin.Context) {
	childID, err := strconv.ParseInt(c.Param("child_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid child id"})
		return
	}

	caller, ok := middleware.CallerAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return
	}

	guards, err := h.dir.IsGuardian(c.Request.Context(), caller.ID, childID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify guardianship"})
		return
	}
	if !guards {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a guardian of this child"})
		return
	}

	entries, err := h.mirrors.ListForGuardian(c.Request.Context(), childID, caller.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load child messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"child_messages": entries})
}

// Acknowledge marks one transparency entry as seen by the guardian.
func (h *TransparencyHandler) Acknowledge(c *gin.Context) {
	childMessageID, err := strconv.ParseInt(c.Param("child_message_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid child message id"})
		return
	}

	caller, ok := middleware.CallerAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return
	}

	err = h.mirrors.Acknowledge(c.Request.Context(), childMessageID, caller.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrChildMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "child message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to acknowledge"})
		return
	}

	h.audit.Emit(c.Request.Context(), "child_message_acknowledged",
		strconv.FormatInt(childMessageID, 10), requestIDFromContext(c), accountIDFromContext(c))
	c.Status(http.StatusNoContent)
}

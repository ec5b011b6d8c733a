package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"comms-service/internal/middleware"
	"comms-service/internal/models"
	"comms-service/internal/officehours"
	"comms-service/internal/repositories"
)

// OfficeHoursHandler manages the per-teacher weekly window set.
type OfficeHoursHandler struct {
	windows repositories.OfficeHoursRepository
	now     func() time.Time
}

// NewOfficeHoursHandler builds an OfficeHoursHandler.
func NewOfficeHoursHandler(windows repositories.OfficeHoursRepository) *OfficeHoursHandler {
	return &OfficeHoursHandler{windows: windows, now: time.Now}
}

// SetClock overrides the time source. Used by tests.
func (h *OfficeHoursHandler) SetClock(now func() time.Time) {
	h.now = now
}

type replaceWindowsRequest struct {
	Windows []models.OfficeHoursWindow `json:"windows" binding:"required"`
}

// Replace swaps the teacher's whole window set. A teacher may only edit
// their own; admins may edit any. The set is validated before storage so
// overlapping windows never land.
func (h *OfficeHoursHandler) Replace(c *gin.Context) {
	teacherID, ok := parseTeacherID(c)
	if !ok {
		return
	}

	caller, ok := middleware.CallerAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return
	}
	if caller.Role != models.RoleAdmin && !(caller.Role == models.RoleTeacher && caller.ID == teacherID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot edit another teacher's office hours"})
		return
	}

	var req replaceWindowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := officehours.Validate(req.Windows); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.windows.Replace(c.Request.Context(), teacherID, req.Windows); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store office hours"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Get returns the window set plus the live availability the student UI
// renders: whether the teacher is open right now and when they next will be.
func (h *OfficeHoursHandler) Get(c *gin.Context) {
	teacherID, ok := parseTeacherID(c)
	if !ok {
		return
	}

	windows, err := h.windows.WindowsFor(c.Request.Context(), teacherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load office hours"})
		return
	}

	now := h.now()
	resp := gin.H{
		"windows":  windows,
		"open_now": officehours.Contains(windows, now),
	}
	if next, ok := officehours.NextOpening(windows, now); ok {
		resp["next_opening"] = next
	}

	c.JSON(http.StatusOK, resp)
}

func parseTeacherID(c *gin.Context) (int64, bool) {
	teacherID, err := strconv.ParseInt(c.Param("teacher_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid teacher id"})
		return 0, false
	}
	return teacherID, true
}

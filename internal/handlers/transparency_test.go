package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"comms-service/internal/middleware"
	"comms-service/internal/mocks"
	"comms-service/internal/models"
	"comms-service/internal/repositories"
)

func setupTransparencyRouter(caller models.Account, mirrors *mocks.ChildMessageRepositoryMock, dir *mocks.DirectoryRepositoryMock) *gin.Engine {
	handler := NewTransparencyHandler(mirrors, dir, noopAudit())
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetCallerAccount(c, caller)
		c.Next()
	})
	r.GET("/children/:child_id/messages", handler.ListChildMessages)
	r.POST("/child-messages/:child_message_id/acknowledge", handler.Acknowledge)
	return r
}

func TestListChildMessagesForGuardian(t *testing.T) {
	mirrors := new(mocks.ChildMessageRepositoryMock)
	dir := new(mocks.DirectoryRepositoryMock)
	router := setupTransparencyRouter(testParent, mirrors, dir)

	dir.On("IsGuardian", mock.Anything, int64(1), int64(3)).Return(true, nil).Once()
	mirrors.On("ListForGuardian", mock.Anything, int64(3), int64(1)).
		Return([]models.ChildMessage{{ID: 5, MessageID: 9, ChildID: 3, GuardianID: 1, Direction: models.ChildMessageSent, Content: "hi"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/children/3/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		ChildMessages []models.ChildMessage `json:"child_messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.ChildMessages, 1)
	assert.Equal(t, models.ChildMessageSent, resp.ChildMessages[0].Direction)
	dir.AssertExpectations(t)
	mirrors.AssertExpectations(t)
}

func TestListChildMessagesNonGuardianForbidden(t *testing.T) {
	mirrors := new(mocks.ChildMessageRepositoryMock)
	dir := new(mocks.DirectoryRepositoryMock)
	router := setupTransparencyRouter(testParent, mirrors, dir)

	dir.On("IsGuardian", mock.Anything, int64(1), int64(8)).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/children/8/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	mirrors.AssertNotCalled(t, "ListForGuardian", mock.Anything, mock.Anything, mock.Anything)
}

func TestListChildMessagesInvalidID(t *testing.T) {
	router := setupTransparencyRouter(testParent, new(mocks.ChildMessageRepositoryMock), new(mocks.DirectoryRepositoryMock))

	req := httptest.NewRequest(http.MethodGet, "/children/abc/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcknowledgeChildMessage(t *testing.T) {
	mirrors := new(mocks.ChildMessageRepositoryMock)
	router := setupTransparencyRouter(testParent, mirrors, new(mocks.DirectoryRepositoryMock))

	mirrors.On("Acknowledge", mock.Anything, int64(5), int64(1)).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/child-messages/5/acknowledge", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	mirrors.AssertExpectations(t)
}

func TestAcknowledgeUnknownEntry(t *testing.T) {
	mirrors := new(mocks.ChildMessageRepositoryMock)
	router := setupTransparencyRouter(testParent, mirrors, new(mocks.DirectoryRepositoryMock))

	mirrors.On("Acknowledge", mock.Anything, int64(99), int64(1)).
		Return(repositories.ErrChildMessageNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/child-messages/99/acknowledge", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

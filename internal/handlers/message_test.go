package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"comms-service/internal/dispatcher"
	"comms-service/internal/middleware"
	"comms-service/internal/mocks"
	"comms-service/internal/models"
	"comms-service/internal/policy"
	"comms-service/internal/repositories"
	"comms-service/internal/safety"
	"comms-service/internal/telemetry"
)

var (
	testParent  = models.Account{ID: 1, FullName: "Dana Reyes", Role: models.RoleParent, SchoolID: 1}
	testTeacher = models.Account{ID: 2, FullName: "Sam Okafor", Role: models.RoleTeacher, SchoolID: 1}
	testStudent = models.Account{ID: 3, FullName: "Noah Reyes", Role: models.RoleStudent, SchoolID: 1}
	testAdmin   = models.Account{ID: 4, FullName: "Pat Lindqvist", Role: models.RoleAdmin, SchoolID: 1}
)

func noopAudit() *telemetry.AuditEmitter {
	return telemetry.NewAuditEmitter(nil, "audit.comms", "comms-service", "test", zap.NewNop())
}

type stubGate struct {
	open bool
}

func (g stubGate) IsOpen(ctx context.Context, teacherID int64, now time.Time) (bool, error) {
	return g.open, nil
}

type sendFixture struct {
	dir     *mocks.DirectoryRepositoryMock
	convs   *mocks.ConversationRepositoryMock
	msgs    *mocks.MessageRepositoryMock
	mirrors *mocks.ChildMessageRepositoryMock
	router  *gin.Engine
}

func newSendFixture(caller models.Account, gateOpen bool) *sendFixture {
	f := &sendFixture{
		dir:     new(mocks.DirectoryRepositoryMock),
		convs:   new(mocks.ConversationRepositoryMock),
		msgs:    new(mocks.MessageRepositoryMock),
		mirrors: new(mocks.ChildMessageRepositoryMock),
	}
	engine := policy.NewEngine(f.dir, stubGate{open: gateOpen})
	disp := dispatcher.New(engine, safety.NewFilter(0.5), f.convs, f.msgs, f.mirrors, f.dir, new(mocks.PublisherMock), nil, zap.NewNop(), dispatcher.Config{})
	handler := NewMessageHandler(disp, f.dir, noopAudit(), 2000)

	gin.SetMode(gin.TestMode)
	f.router = gin.New()
	f.router.Use(func(c *gin.Context) {
		middleware.SetCallerAccount(c, caller)
		c.Next()
	})
	f.router.POST("/messages", handler.Send)
	f.router.POST("/messages/precheck", handler.Precheck)
	return f
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSendSuccess(t *testing.T) {
	f := newSendFixture(testParent, false)
	f.dir.On("GetAccount", mock.Anything, int64(2)).Return(testTeacher, nil).Once()
	f.dir.On("IsGuardian", mock.Anything, int64(1), int64(3)).Return(true, nil).Once()
	f.dir.On("Teaches", mock.Anything, int64(2), int64(3)).Return(true, nil).Once()
	conv := models.Conversation{ID: 40, TeacherID: 2, CounterpartyID: 1, ChildID: 3, IsEncrypted: true}
	f.convs.On("GetOrCreate", mock.Anything, int64(2), int64(1), int64(3), true).Return(conv, nil).Once()
	f.msgs.On("Append", mock.Anything, int64(40), mock.Anything).
		Return(models.Message{ID: 7, ConversationID: 40, SenderID: 1, CreatedAt: time.Now()}, nil).Once()

	rec := postJSON(f.router, "/messages", `{"recipient_id":2,"child_id":3,"content":"How is Noah doing?"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.EqualValues(t, 7, resp["message_id"])
	assert.EqualValues(t, 40, resp["conversation_id"])
	f.dir.AssertExpectations(t)
	f.convs.AssertExpectations(t)
	f.msgs.AssertExpectations(t)
}

func TestSendDeniedOutsideOfficeHours(t *testing.T) {
	f := newSendFixture(testStudent, false)
	f.dir.On("GetAccount", mock.Anything, int64(2)).Return(testTeacher, nil).Once()
	f.dir.On("Teaches", mock.Anything, int64(2), int64(3)).Return(true, nil).Once()

	rec := postJSON(f.router, "/messages", `{"recipient_id":2,"child_id":3,"content":"hello"}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "outside_office_hours", resp["kind"])
	assert.Contains(t, resp["message"], "office hours")
	f.convs.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendDeniedUnauthorizedPair(t *testing.T) {
	f := newSendFixture(testParent, true)
	f.dir.On("GetAccount", mock.Anything, int64(3)).Return(testStudent, nil).Once()

	rec := postJSON(f.router, "/messages", `{"recipient_id":3,"child_id":3,"content":"hello"}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "unauthorized_pair", resp["kind"])
}

func TestSendRecipientNotFound(t *testing.T) {
	f := newSendFixture(testParent, false)
	f.dir.On("GetAccount", mock.Anything, int64(99)).
		Return(models.Account{}, repositories.ErrAccountNotFound).Once()

	rec := postJSON(f.router, "/messages", `{"recipient_id":99,"child_id":3,"content":"hello"}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendContentTooLong(t *testing.T) {
	f := newSendFixture(testParent, false)

	body := `{"recipient_id":2,"child_id":3,"content":"` + strings.Repeat("a", 2001) + `"}`
	rec := postJSON(f.router, "/messages", body)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	f.dir.AssertNotCalled(t, "GetAccount", mock.Anything, mock.Anything)
}

// The limit counts characters, not bytes: 2000 two-byte runes must pass
// the length gate even though the payload is 4000 bytes.
func TestSendLengthLimitCountsRunes(t *testing.T) {
	f := newSendFixture(testParent, false)
	f.dir.On("GetAccount", mock.Anything, int64(99)).
		Return(models.Account{}, repositories.ErrAccountNotFound).Once()

	body := `{"recipient_id":99,"child_id":3,"content":"` + strings.Repeat("ñ", 2000) + `"}`
	rec := postJSON(f.router, "/messages", body)

	// Reaching recipient resolution proves the length check passed.
	require.Equal(t, http.StatusNotFound, rec.Code)
	f.dir.AssertExpectations(t)

	rec = postJSON(f.router, "/messages", `{"recipient_id":99,"child_id":3,"content":"`+strings.Repeat("ñ", 2001)+`"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSendMissingFields(t *testing.T) {
	f := newSendFixture(testParent, false)

	rec := postJSON(f.router, "/messages", `{"recipient_id":2}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendArchivedConversationConflict(t *testing.T) {
	f := newSendFixture(testParent, false)
	f.dir.On("GetAccount", mock.Anything, int64(2)).Return(testTeacher, nil).Once()
	f.dir.On("IsGuardian", mock.Anything, int64(1), int64(3)).Return(true, nil).Once()
	f.dir.On("Teaches", mock.Anything, int64(2), int64(3)).Return(true, nil).Once()
	conv := models.Conversation{ID: 40, TeacherID: 2, CounterpartyID: 1, ChildID: 3, IsEncrypted: true}
	f.convs.On("GetOrCreate", mock.Anything, int64(2), int64(1), int64(3), true).Return(conv, nil).Once()
	f.msgs.On("Append", mock.Anything, int64(40), mock.Anything).
		Return(models.Message{}, repositories.ErrConversationArchived).Once()

	rec := postJSON(f.router, "/messages", `{"recipient_id":2,"child_id":3,"content":"hello"}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "conversation_archived", resp["kind"])
}

func TestPrecheckAllowed(t *testing.T) {
	f := newSendFixture(testParent, false)
	f.dir.On("GetAccount", mock.Anything, int64(2)).Return(testTeacher, nil).Once()
	f.dir.On("IsGuardian", mock.Anything, int64(1), int64(3)).Return(true, nil).Once()
	f.dir.On("Teaches", mock.Anything, int64(2), int64(3)).Return(true, nil).Once()

	rec := postJSON(f.router, "/messages/precheck", `{"recipient_id":2,"child_id":3}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var decision policy.Decision
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&decision))
	assert.True(t, decision.Allowed)
	assert.True(t, decision.ForcesEncryption)
	f.convs.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPrecheckDenied(t *testing.T) {
	f := newSendFixture(testStudent, false)
	f.dir.On("GetAccount", mock.Anything, int64(2)).Return(testTeacher, nil).Once()
	f.dir.On("Teaches", mock.Anything, int64(2), int64(3)).Return(true, nil).Once()

	rec := postJSON(f.router, "/messages/precheck", `{"recipient_id":2,"child_id":3}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var decision policy.Decision
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&decision))
	assert.False(t, decision.Allowed)
	assert.Equal(t, policy.DenyOutsideOfficeHours, decision.Reason)
}

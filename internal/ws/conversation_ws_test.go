package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"comms-service/internal/mocks"
	"comms-service/internal/models"
	"comms-service/internal/observability"
)

// Lifecycle events are published on a plain context the caller controls.
// The disconnect path in particular fires from a goroutine long after the
// originating request finished, so it must work on context.Background().
func TestPublishLifecycleDisconnectAfterRequestEnded(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	convs := new(mocks.ConversationRepositoryMock)
	handler := NewConversationWebSocketHandler(NewHub(zap.NewNop()), convs, publisher, []byte("secret"))

	info := ConnInfo{
		ConnID:      "conn-1",
		AccountID:   3,
		Role:        models.RoleStudent,
		IP:          "10.0.0.1",
		RequestID:   "req-1",
		ConnectedAt: time.Now().Add(-time.Minute),
	}

	publisher.On("Publish", mock.Anything, "ws_events.conversations", mock.MatchedBy(func(e any) bool {
		envelope, ok := e.(observability.EventEnvelope)
		if !ok || envelope.EventType != "ws_events" || envelope.EventName != "ws_disconnect" {
			return false
		}
		payload := envelope.Payload.(map[string]interface{})
		wsPayload := payload["ws"].(map[string]interface{})
		return wsPayload["conn_id"] == "conn-1" && wsPayload["conversation_id"] == int64(40)
	})).Return(nil).Once()

	handler.publishLifecycle(context.Background(), "ws_disconnect", 40, info, "going away")

	publisher.AssertExpectations(t)
}

func TestPublishLifecycleSwallowsPublishError(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	handler := NewConversationWebSocketHandler(NewHub(zap.NewNop()), new(mocks.ConversationRepositoryMock), publisher, []byte("secret"))

	publisher.On("Publish", mock.Anything, "ws_events.conversations", mock.Anything).
		Return(context.Canceled).Once()

	// Must not panic or propagate.
	handler.publishLifecycle(context.Background(), "ws_connect", 40, ConnInfo{ConnID: "conn-2"}, "")

	publisher.AssertExpectations(t)
}

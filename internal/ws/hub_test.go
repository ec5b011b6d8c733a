package ws

import (
	"testing"

	"go.uber.org/zap"
)

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub(zap.NewNop())

	hub.AddClient(1, nil, ConnInfo{ConnID: "a", AccountID: 3})
	if len(hub.rooms) != 1 {
		t.Fatalf("expected room to be created")
	}
	if hub.RoomSize(1) != 1 {
		t.Fatalf("expected one client in room")
	}

	hub.RemoveClient(1, nil)
	if len(hub.rooms) != 0 {
		t.Fatalf("expected empty room to be removed")
	}
}

func TestHubRoomSizeUnknownRoom(t *testing.T) {
	hub := NewHub(zap.NewNop())

	if hub.RoomSize(99) != 0 {
		t.Fatalf("expected unknown room to be empty")
	}
}

func TestHubRemoveFromUnknownRoom(t *testing.T) {
	hub := NewHub(zap.NewNop())

	// Must not panic.
	hub.RemoveClient(5, nil)
}

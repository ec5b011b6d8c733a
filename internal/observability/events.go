package observability

// EventEnvelope wraps websocket lifecycle events published to the events
// exchange for the audit pipeline.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

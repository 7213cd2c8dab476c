package domain

// EventType defines the type of real-time lifecycle event.
type EventType string

const (
	EventTicketCreated EventType = "TICKET_CREATED"
	EventStateChanged  EventType = "STATE_CHANGED"
	EventSlaApplied    EventType = "SLA_APPLIED"
	EventSlaCleared    EventType = "SLA_CLEARED"
)

// Event is the payload sent over WebSocket.
type Event struct {
	Type     EventType   `json:"type"`
	Payload  interface{} `json:"payload"`
	TicketID int64       `json:"ticketId"` // Used for routing to specific ticket "rooms"
}

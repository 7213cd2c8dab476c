package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Pre-defined errors for domain-specific validation.
var (
	ErrSubjectRequired    = errors.New("subject is required")
	ErrSubjectTooLong     = errors.New("subject exceeds maximum length of 255 characters")
	ErrDescriptionTooLong = errors.New("description exceeds maximum length")
	ErrChannelRequired    = errors.New("channel is required")
	ErrInvalidChannel     = errors.New("invalid ticket channel")
	ErrInvalidPriority    = errors.New("invalid ticket priority")
	ErrRequesterRequired  = errors.New("requester ID is required")
)

const (
	maxSubjectLength     = 255
	maxDescriptionLength = 65535
)

// TicketStatus is the coarse lifecycle category of a ticket, distinct from
// its workflow state slug.
type TicketStatus string

const (
	StatusOpen      TicketStatus = "open"
	StatusPending   TicketStatus = "pending"
	StatusResolved  TicketStatus = "resolved"
	StatusClosed    TicketStatus = "closed"
	StatusCancelled TicketStatus = "cancelled"
)

// TicketPriority represents the urgency of a ticket.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityNormal TicketPriority = "normal"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// Ticket is the core domain entity. Workflow state and SLA deadline fields
// are managed by the lifecycle service, never set directly by callers.
type Ticket struct {
	ID          int64
	TenantID    uuid.UUID
	BrandID     *uuid.UUID
	Subject     string
	Description string
	RequesterID uuid.UUID

	Channel  string
	Priority TicketPriority
	Status   TicketStatus

	WorkflowState    string
	TicketWorkflowID *int64

	SlaPolicyID        *int64
	FirstResponseDueAt *time.Time
	ResolutionDueAt    *time.Time
	SlaDueAt           *time.Time

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// IsValid reports whether the priority is one of the known levels.
func (p TicketPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// IsValidChannel reports whether the channel is one a ticket can arrive on.
func IsValidChannel(channel string) bool {
	switch channel {
	case "email", "web", "chat", "phone", "api":
		return true
	}
	return false
}

// NewTicket is a factory function to create a valid new ticket.
func NewTicket(tenantID uuid.UUID, brandID *uuid.UUID, subject, description, channel string, priority TicketPriority, requesterID uuid.UUID) (*Ticket, error) {
	if subject == "" {
		return nil, ErrSubjectRequired
	}
	if len(subject) > maxSubjectLength {
		return nil, ErrSubjectTooLong
	}
	if len(description) > maxDescriptionLength {
		return nil, ErrDescriptionTooLong
	}
	if channel == "" {
		return nil, ErrChannelRequired
	}
	if !IsValidChannel(channel) {
		return nil, ErrInvalidChannel
	}
	if !priority.IsValid() {
		return nil, ErrInvalidPriority
	}
	if requesterID == uuid.Nil {
		return nil, ErrRequesterRequired
	}

	return &Ticket{
		TenantID:    tenantID,
		BrandID:     brandID,
		Subject:     subject,
		Description: description,
		Channel:     channel,
		Priority:    priority,
		Status:      StatusOpen, // Default status
		RequesterID: requesterID,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// IsTerminalStatus reports whether the ticket's status is in the terminal
// category that clears SLA deadlines instead of recomputing them.
func (t *Ticket) IsTerminalStatus() bool {
	return IsTerminalStatus(t.Status)
}

// IsTerminalStatus reports whether a status belongs to the terminal category.
func IsTerminalStatus(status TicketStatus) bool {
	switch status {
	case StatusResolved, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// Touch records a mutation timestamp on the ticket.
func (t *Ticket) Touch() {
	now := time.Now().UTC()
	t.UpdatedAt = &now
}

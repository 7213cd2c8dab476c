package domain

import (
	"time"
)

// TicketSnapshot matches the API response shape for tickets.
type TicketSnapshot struct {
	ID                 int64   `json:"id"`
	TenantID           string  `json:"tenantId"`
	BrandID            *string `json:"brandId"`
	Subject            string  `json:"subject"`
	Description        string  `json:"description"`
	Channel            string  `json:"channel"`
	Priority           string  `json:"priority"`
	Status             string  `json:"status"`
	WorkflowState      string  `json:"workflowState"`
	WorkflowID         *int64  `json:"workflowId"`
	SlaPolicyID        *int64  `json:"slaPolicyId"`
	FirstResponseDueAt *string `json:"firstResponseDueAt"`
	ResolutionDueAt    *string `json:"resolutionDueAt"`
	SlaDueAt           *string `json:"slaDueAt"`
	RequesterID        string  `json:"requesterId"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          *string `json:"updatedAt"`
}

// StateChangeSnapshot is broadcast when a ticket moves between workflow states.
type StateChangeSnapshot struct {
	TicketID  int64  `json:"ticketId"`
	FromState string `json:"fromState"`
	ToState   string `json:"toState"`
	Status    string `json:"status"`
	ActorID   string `json:"actorId"`
	Comment   string `json:"comment,omitempty"`
	ChangedAt string `json:"changedAt"`
}

// SlaSnapshot is broadcast when SLA deadlines are applied to or cleared from
// a ticket.
type SlaSnapshot struct {
	TicketID           int64   `json:"ticketId"`
	PolicyID           *int64  `json:"policyId"`
	FirstResponseDueAt *string `json:"firstResponseDueAt"`
	ResolutionDueAt    *string `json:"resolutionDueAt"`
}

// NewTicketSnapshot builds a ticket snapshot from a domain ticket.
func NewTicketSnapshot(ticket *Ticket) TicketSnapshot {
	var brandID *string
	if ticket.BrandID != nil {
		value := ticket.BrandID.String()
		brandID = &value
	}

	var updatedAt *string
	if ticket.UpdatedAt != nil {
		value := ticket.UpdatedAt.UTC().Format(time.RFC3339)
		updatedAt = &value
	}

	return TicketSnapshot{
		ID:                 ticket.ID,
		TenantID:           ticket.TenantID.String(),
		BrandID:            brandID,
		Subject:            ticket.Subject,
		Description:        ticket.Description,
		Channel:            ticket.Channel,
		Priority:           string(ticket.Priority),
		Status:             string(ticket.Status),
		WorkflowState:      ticket.WorkflowState,
		WorkflowID:         ticket.TicketWorkflowID,
		SlaPolicyID:        ticket.SlaPolicyID,
		FirstResponseDueAt: formatDue(ticket.FirstResponseDueAt),
		ResolutionDueAt:    formatDue(ticket.ResolutionDueAt),
		SlaDueAt:           formatDue(ticket.SlaDueAt),
		RequesterID:        ticket.RequesterID.String(),
		CreatedAt:          ticket.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          updatedAt,
	}
}

// NewSlaSnapshot builds an SLA snapshot from the ticket's current deadline
// fields.
func NewSlaSnapshot(ticket *Ticket) SlaSnapshot {
	return SlaSnapshot{
		TicketID:           ticket.ID,
		PolicyID:           ticket.SlaPolicyID,
		FirstResponseDueAt: formatDue(ticket.FirstResponseDueAt),
		ResolutionDueAt:    formatDue(ticket.ResolutionDueAt),
	}
}

func formatDue(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := t.UTC().Format(time.RFC3339)
	return &value
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction identifies what kind of lifecycle fact an audit entry records.
type AuditAction string

const (
	AuditTransition AuditAction = "transition"
	AuditSlaApplied AuditAction = "sla_applied"
	AuditSlaCleared AuditAction = "sla_cleared"
)

// AuditEntry is an immutable record of a lifecycle mutation. Transition
// entries carry the workflow id and from/to state slugs; SLA-applied entries
// carry the policy and the deadlines it produced.
type AuditEntry struct {
	ID                 int64
	TicketID           int64
	TenantID           uuid.UUID
	BrandID            *uuid.UUID
	Action             AuditAction
	ActorID            *uuid.UUID
	WorkflowID         *int64
	FromState          string
	ToState            string
	Comment            string
	SlaPolicyID        *int64
	FirstResponseDueAt *time.Time
	ResolutionDueAt    *time.Time
	CreatedAt          time.Time
}

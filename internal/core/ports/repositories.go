package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/ticketwell/helpdesk-core/internal/core/domain"
)

// WorkflowRepository loads workflow graphs with their states and transitions
// fully populated.
type WorkflowRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Workflow, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Workflow, error)
}

// SlaPolicyRepository loads SLA policies with their targets fully populated.
type SlaPolicyRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.SlaPolicy, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.SlaPolicy, error)
}

// TicketFilter narrows ticket listings. Nil pointer fields are ignored.
type TicketFilter struct {
	Status        *string
	Priority      *string
	WorkflowState *string
	Channel       *string
}

// TicketRepository persists tickets. GetByIDForUpdate must be called inside a
// transaction; it locks the row until the transaction ends.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, tenantID uuid.UUID, ticketID int64) (*domain.Ticket, error)
	GetByIDForUpdate(ctx context.Context, tenantID uuid.UUID, ticketID int64) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	List(ctx context.Context, tenantID uuid.UUID, filter TicketFilter, limit, offset int) ([]*domain.Ticket, error)
}

// AuditRecorder appends immutable lifecycle records.
type AuditRecorder interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
	ListForTicket(ctx context.Context, tenantID uuid.UUID, ticketID int64, limit int) ([]*domain.AuditEntry, error)
}

package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ticketwell/helpdesk-core/internal/core/domain"
)

// TransitionContext carries the caller-supplied request context for a
// transition: the optional comment and any free-form fields guard/entry
// hooks may inspect.
type TransitionContext struct {
	Comment string
	Fields  map[string]string
}

// HookInput is what a guard or entry hook receives when invoked. Hooks fire
// only during transition validation; initial-state resolution at creation
// dispatches none.
type HookInput struct {
	Ticket     *domain.Ticket
	Workflow   *domain.Workflow
	Transition *domain.WorkflowTransition
	State      *domain.WorkflowState
	ActorID    uuid.UUID
	Context    TransitionContext
}

// Hook is an executable guard or entry handler. Returning an error vetoes
// the transition.
type Hook interface {
	Invoke(ctx context.Context, input HookInput) error
}

// HookFunc adapts a plain function to the Hook interface.
type HookFunc func(ctx context.Context, input HookInput) error

func (f HookFunc) Invoke(ctx context.Context, input HookInput) error {
	return f(ctx, input)
}

// HookRegistry maps hook identifiers stored in workflow configuration to
// executable handlers. Populated at process start; read-only afterwards.
type HookRegistry interface {
	Register(name string, hook Hook)
	Resolve(name string) (Hook, bool)
}

// TransitionResult reports a validated transition. Transition is nil for
// identity moves (target state equals current state).
type TransitionResult struct {
	Workflow   *domain.Workflow
	Transition *domain.WorkflowTransition
	FromState  *domain.WorkflowState
	State      *domain.WorkflowState
}

// WorkflowService resolves workflow graphs and validates state transitions.
type WorkflowService interface {
	ResolveWorkflow(ctx context.Context, tenantID uuid.UUID, brandID *uuid.UUID, explicitWorkflowID *int64) (*domain.Workflow, error)
	ResolveInitialState(workflow *domain.Workflow, requestedStateSlug string) (*domain.WorkflowState, error)
	ValidateTransition(ctx context.Context, ticket *domain.Ticket, targetStateSlug string, actorID uuid.UUID, tctx TransitionContext) (*TransitionResult, error)
}

// Deadlines is the output of an SLA deadline calculation. Nil fields mean
// "no deadline".
type Deadlines struct {
	FirstResponseDueAt *time.Time
	ResolutionDueAt    *time.Time
}

// SlaService resolves SLA policies and maintains ticket deadline fields.
// ApplyToTicket and ClearTicketSla mutate the ticket in memory and report
// whether any field actually changed; persistence stays with the caller.
type SlaService interface {
	ResolvePolicy(ctx context.Context, ticket *domain.Ticket) (*domain.SlaPolicy, error)
	ResolveTarget(policy *domain.SlaPolicy, channel string, priority domain.TicketPriority) *domain.SlaPolicyTarget
	CalculateDeadlines(policy *domain.SlaPolicy, target *domain.SlaPolicyTarget, reference time.Time) Deadlines
	ApplyToTicket(ctx context.Context, ticket *domain.Ticket, policy *domain.SlaPolicy, target *domain.SlaPolicyTarget, eventInstant time.Time) (bool, error)
	ClearTicketSla(ctx context.Context, ticket *domain.Ticket) (bool, error)
}

// CreateTicketParams defines the required input for creating a new ticket.
type CreateTicketParams struct {
	TenantID           uuid.UUID
	BrandID            *uuid.UUID
	Subject            string
	Description        string
	Channel            string
	Priority           domain.TicketPriority
	RequesterID        uuid.UUID
	WorkflowID         *int64
	RequestedStateSlug string
	SlaDueAt           *time.Time
}

// TransitionTicketParams defines the input for moving a ticket between
// workflow states.
type TransitionTicketParams struct {
	TenantID        uuid.UUID
	TicketID        int64
	TargetStateSlug string
	ActorID         uuid.UUID
	Comment         string
	Fields          map[string]string
}

// ListTicketsParams defines the input for listing tickets.
type ListTicketsParams struct {
	TenantID uuid.UUID
	Filter   TicketFilter
	Limit    int
	Offset   int
}

// LifecycleService is the orchestrator tying workflow resolution, transition
// validation, and SLA maintenance together.
type LifecycleService interface {
	// PrepareForCreate resolves the workflow, initial state, and any
	// state-level SLA override for a ticket that has not been persisted yet.
	PrepareForCreate(ctx context.Context, ticket *domain.Ticket, workflowID *int64, requestedStateSlug string) (*TransitionResult, error)
	// AssignSla resolves the applicable policy and applies or clears
	// deadlines per the terminal-status rule. Reports whether the ticket
	// changed.
	AssignSla(ctx context.Context, ticket *domain.Ticket, eventInstant time.Time) (bool, error)

	CreateTicket(ctx context.Context, params CreateTicketParams) (*domain.Ticket, error)
	TransitionTicket(ctx context.Context, params TransitionTicketParams) (*domain.Ticket, error)
	GetTicket(ctx context.Context, tenantID uuid.UUID, ticketID int64) (*domain.Ticket, error)
	ListTickets(ctx context.Context, params ListTicketsParams) ([]*domain.Ticket, error)
	Shutdown()
}

// WorkflowQueryService exposes read-only workflow configuration.
type WorkflowQueryService interface {
	ListWorkflows(ctx context.Context, tenantID uuid.UUID) ([]*domain.Workflow, error)
	GetWorkflow(ctx context.Context, tenantID uuid.UUID, workflowID int64) (*domain.Workflow, error)
}

// SlaQueryService exposes read-only SLA policy configuration.
type SlaQueryService interface {
	ListPolicies(ctx context.Context, tenantID uuid.UUID) ([]*domain.SlaPolicy, error)
}

// EventBroadcaster relays lifecycle events to connected clients.
type EventBroadcaster interface {
	Broadcast(event domain.Event)
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NotificationParams describes an outbound notification triggered by a
// lifecycle hook.
type NotificationParams struct {
	TicketID    int64
	RecipientID uuid.UUID
	Subject     string
	Body        string
}

// Notifier delivers notifications triggered by workflow hooks.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ticketwell/helpdesk-core/internal/core/domain"
	"github.com/ticketwell/helpdesk-core/internal/core/ports"
)

// LifecycleService orchestrates ticket creation and state changes: it
// resolves the workflow, validates transitions, and keeps SLA deadlines in
// step with the ticket's status.
type LifecycleService struct {
	ticketRepo  ports.TicketRepository
	workflowSvc ports.WorkflowService
	slaSvc      ports.SlaService
	txManager   ports.TransactionManager
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger
	wg          sync.WaitGroup
}

var _ ports.LifecycleService = (*LifecycleService)(nil)

// NewLifecycleService creates a new lifecycle service.
func NewLifecycleService(
	ticketRepo ports.TicketRepository,
	workflowSvc ports.WorkflowService,
	slaSvc ports.SlaService,
	txManager ports.TransactionManager,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		ticketRepo:  ticketRepo,
		workflowSvc: workflowSvc,
		slaSvc:      slaSvc,
		txManager:   txManager,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// PrepareForCreate resolves the workflow and initial state for an
// unpersisted ticket and stamps them onto it. When the initial state defines
// an SLA-minutes override and the caller supplied no due instant, a due
// instant is derived from the ticket's creation time.
func (s *LifecycleService) PrepareForCreate(ctx context.Context, ticket *domain.Ticket, workflowID *int64, requestedStateSlug string) (*ports.TransitionResult, error) {
	workflow, err := s.workflowSvc.ResolveWorkflow(ctx, ticket.TenantID, ticket.BrandID, workflowID)
	if err != nil {
		return nil, err
	}
	state, err := s.workflowSvc.ResolveInitialState(workflow, requestedStateSlug)
	if err != nil {
		return nil, err
	}

	ticket.TicketWorkflowID = &workflow.ID
	ticket.WorkflowState = state.Slug

	if state.SlaMinutes != nil && ticket.SlaDueAt == nil {
		reference := ticket.CreatedAt
		if reference.IsZero() {
			reference = time.Now().UTC()
		}
		due := reference.Add(time.Duration(*state.SlaMinutes) * time.Minute).UTC()
		ticket.SlaDueAt = &due
	}

	return &ports.TransitionResult{
		Workflow: workflow,
		State:    state,
	}, nil
}

// AssignSla resolves the applicable policy and applies or clears deadlines.
// Tickets in a terminal status get their SLA fields cleared without a policy
// lookup.
func (s *LifecycleService) AssignSla(ctx context.Context, ticket *domain.Ticket, eventInstant time.Time) (bool, error) {
	if ticket.IsTerminalStatus() {
		return s.slaSvc.ClearTicketSla(ctx, ticket)
	}

	policy, err := s.slaSvc.ResolvePolicy(ctx, ticket)
	if err != nil {
		return false, err
	}
	if policy == nil {
		return s.slaSvc.ClearTicketSla(ctx, ticket)
	}

	target := s.slaSvc.ResolveTarget(policy, ticket.Channel, ticket.Priority)
	return s.slaSvc.ApplyToTicket(ctx, ticket, policy, target, eventInstant)
}

// CreateTicket handles the use case for submitting a new ticket.
func (s *LifecycleService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	ticket, err := domain.NewTicket(params.TenantID, params.BrandID, params.Subject, params.Description, params.Channel, params.Priority, params.RequesterID)
	if err != nil {
		return nil, err // Validation errors are returned here
	}
	ticket.SlaDueAt = params.SlaDueAt

	var created *domain.Ticket
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.PrepareForCreate(ctx, ticket, params.WorkflowID, params.RequestedStateSlug); err != nil {
			return err
		}

		created, err = s.ticketRepo.Create(ctx, ticket)
		if err != nil {
			return err
		}

		// A caller-supplied or state-derived due instant wins over the
		// policy-driven calculation at creation time.
		if created.SlaDueAt == nil {
			changed, err := s.AssignSla(ctx, created, created.CreatedAt)
			if err != nil {
				return err
			}
			if changed {
				created, err = s.ticketRepo.Update(ctx, created)
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(domain.Event{
		Type:     domain.EventTicketCreated,
		Payload:  domain.NewTicketSnapshot(created),
		TicketID: created.ID,
	})

	return created, nil
}

// TransitionTicket moves a ticket to a new workflow state under row lock,
// recomputing or clearing SLA deadlines as the status category demands.
func (s *LifecycleService) TransitionTicket(ctx context.Context, params ports.TransitionTicketParams) (*domain.Ticket, error) {
	tctx := ports.TransitionContext{
		Comment: params.Comment,
		Fields:  params.Fields,
	}

	var result *domain.Ticket
	var fromState string
	var slaChanged bool
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		ticket, err := s.ticketRepo.GetByIDForUpdate(ctx, params.TenantID, params.TicketID)
		if err != nil {
			return err
		}
		fromState = ticket.WorkflowState

		validated, err := s.workflowSvc.ValidateTransition(ctx, ticket, params.TargetStateSlug, params.ActorID, tctx)
		if err != nil {
			return err
		}

		// Identity move: nothing to persist.
		if validated.Transition == nil {
			result = ticket
			return nil
		}

		ticket.WorkflowState = validated.State.Slug
		if validated.State.IsTerminal {
			ticket.Status = domain.StatusResolved
		} else if ticket.IsTerminalStatus() {
			ticket.Status = domain.StatusOpen
		}

		slaChanged, err = s.AssignSla(ctx, ticket, time.Now().UTC())
		if err != nil {
			return err
		}

		ticket.Touch()
		result, err = s.ticketRepo.Update(ctx, ticket)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.WorkflowState != fromState {
		s.broadcast(domain.Event{
			Type: domain.EventStateChanged,
			Payload: domain.StateChangeSnapshot{
				TicketID:  result.ID,
				FromState: fromState,
				ToState:   result.WorkflowState,
				Status:    string(result.Status),
				ActorID:   params.ActorID.String(),
				Comment:   params.Comment,
				ChangedAt: time.Now().UTC().Format(time.RFC3339),
			},
			TicketID: result.ID,
		})
	}
	if slaChanged {
		eventType := domain.EventSlaApplied
		if result.SlaPolicyID == nil {
			eventType = domain.EventSlaCleared
		}
		s.broadcast(domain.Event{
			Type:     eventType,
			Payload:  domain.NewSlaSnapshot(result),
			TicketID: result.ID,
		})
	}

	return result, nil
}

// GetTicket retrieves a single ticket scoped to the tenant.
func (s *LifecycleService) GetTicket(ctx context.Context, tenantID uuid.UUID, ticketID int64) (*domain.Ticket, error) {
	return s.ticketRepo.GetByID(ctx, tenantID, ticketID)
}

// ListTickets retrieves a filtered page of the tenant's tickets.
func (s *LifecycleService) ListTickets(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	return s.ticketRepo.List(ctx, params.TenantID, params.Filter, params.Limit, params.Offset)
}

// broadcast relays a lifecycle event without blocking the request path.
func (s *LifecycleService) broadcast(event domain.Event) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.broadcaster.Broadcast(event)
	}()
}

func (s *LifecycleService) Shutdown() {
	s.wg.Wait()
}

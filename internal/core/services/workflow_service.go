package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ticketwell/helpdesk-core/internal/core/domain"
	apperrors "github.com/ticketwell/helpdesk-core/internal/core/errors"
	"github.com/ticketwell/helpdesk-core/internal/core/ports"
)

// WorkflowService resolves workflow graphs for tenant/brand scopes and
// validates ticket state transitions against them.
type WorkflowService struct {
	workflowRepo ports.WorkflowRepository
	hooks        ports.HookRegistry
	audit        ports.AuditRecorder
	logger       *slog.Logger
}

var _ ports.WorkflowService = (*WorkflowService)(nil)
var _ ports.WorkflowQueryService = (*WorkflowService)(nil)

// NewWorkflowService creates a new workflow service.
func NewWorkflowService(
	workflowRepo ports.WorkflowRepository,
	hooks ports.HookRegistry,
	audit ports.AuditRecorder,
	logger *slog.Logger,
) *WorkflowService {
	return &WorkflowService{
		workflowRepo: workflowRepo,
		hooks:        hooks,
		audit:        audit,
		logger:       logger,
	}
}

// ResolveWorkflow picks the workflow a ticket should follow. Brand-scoped
// workflows win over tenant-wide ones; within a scope the search order is
// explicit id, then default flag (most recently updated), then any workflow
// by lowest id.
func (s *WorkflowService) ResolveWorkflow(ctx context.Context, tenantID uuid.UUID, brandID *uuid.UUID, explicitWorkflowID *int64) (*domain.Workflow, error) {
	workflows, err := s.workflowRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if brandID != nil {
		if wf := pickInScope(workflows, brandID, explicitWorkflowID); wf != nil {
			return wf, nil
		}
	}
	if wf := pickInScope(workflows, nil, explicitWorkflowID); wf != nil {
		return wf, nil
	}

	return nil, apperrors.ErrWorkflowNotConfigured
}

// pickInScope applies the explicit-id / default / first-available search
// order within a single brand scope. A nil brandID means the tenant-wide
// scope (workflows with no brand).
func pickInScope(workflows []*domain.Workflow, brandID *uuid.UUID, explicitWorkflowID *int64) *domain.Workflow {
	var scoped []*domain.Workflow
	for _, wf := range workflows {
		if brandID != nil {
			if wf.BrandID != nil && *wf.BrandID == *brandID {
				scoped = append(scoped, wf)
			}
		} else if wf.BrandID == nil {
			scoped = append(scoped, wf)
		}
	}
	if len(scoped) == 0 {
		return nil
	}

	if explicitWorkflowID != nil {
		for _, wf := range scoped {
			if wf.ID == *explicitWorkflowID {
				return wf
			}
		}
	}

	var newestDefault *domain.Workflow
	for _, wf := range scoped {
		if !wf.IsDefault {
			continue
		}
		if newestDefault == nil || wf.UpdatedAt.After(newestDefault.UpdatedAt) {
			newestDefault = wf
		}
	}
	if newestDefault != nil {
		return newestDefault
	}

	lowest := scoped[0]
	for _, wf := range scoped[1:] {
		if wf.ID < lowest.ID {
			lowest = wf
		}
	}
	return lowest
}

// ResolveInitialState picks the state a new ticket starts in. A requested
// slug takes precedence; otherwise the state flagged initial, else the
// lowest-position state.
func (s *WorkflowService) ResolveInitialState(workflow *domain.Workflow, requestedStateSlug string) (*domain.WorkflowState, error) {
	if len(workflow.States) == 0 {
		return nil, apperrors.ErrWorkflowHasNoStates
	}
	if requestedStateSlug != "" {
		state := workflow.StateBySlug(requestedStateSlug)
		if state == nil {
			return nil, apperrors.ErrUnknownState
		}
		return state, nil
	}
	state := workflow.InitialState()
	if state == nil {
		return nil, apperrors.ErrWorkflowHasNoStates
	}
	return state, nil
}

// ValidateTransition checks that moving the ticket to targetStateSlug is
// legal and runs the edge's guard hook and the target state's entry hook.
// The ticket itself is not mutated; identity moves succeed with a nil
// Transition and skip hooks and auditing entirely.
func (s *WorkflowService) ValidateTransition(ctx context.Context, ticket *domain.Ticket, targetStateSlug string, actorID uuid.UUID, tctx ports.TransitionContext) (*ports.TransitionResult, error) {
	workflow, err := s.resolveForTicket(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if len(workflow.States) == 0 {
		return nil, apperrors.ErrWorkflowHasNoStates
	}

	// A brand-new ticket, or one whose stored slug no longer exists in the
	// resolved workflow, transitions from the nil state.
	var fromState *domain.WorkflowState
	if ticket.WorkflowState != "" {
		fromState = workflow.StateBySlug(ticket.WorkflowState)
	}

	targetState := workflow.StateBySlug(targetStateSlug)
	if targetState == nil {
		return nil, apperrors.ErrUnknownState
	}

	if fromState != nil && fromState.ID == targetState.ID {
		return &ports.TransitionResult{
			Workflow:  workflow,
			FromState: fromState,
			State:     targetState,
		}, nil
	}

	var fromStateID *int64
	if fromState != nil {
		fromStateID = &fromState.ID
	}
	transition := workflow.FindTransition(fromStateID, targetState.ID)
	if transition == nil {
		return nil, apperrors.ErrIllegalTransition
	}

	if transition.RequiresComment && tctx.Comment == "" {
		return nil, apperrors.ErrCommentRequired
	}

	input := ports.HookInput{
		Ticket:     ticket,
		Workflow:   workflow,
		Transition: transition,
		State:      targetState,
		ActorID:    actorID,
		Context:    tctx,
	}
	if err := s.invokeHook(ctx, transition.GuardHook, input); err != nil {
		return nil, err
	}
	if err := s.invokeHook(ctx, targetState.EntryHook, input); err != nil {
		return nil, err
	}

	s.recordTransition(ctx, ticket, workflow, fromState, targetState, actorID, tctx)

	return &ports.TransitionResult{
		Workflow:   workflow,
		Transition: transition,
		FromState:  fromState,
		State:      targetState,
	}, nil
}

// ListWorkflows returns all workflow graphs configured for a tenant.
func (s *WorkflowService) ListWorkflows(ctx context.Context, tenantID uuid.UUID) ([]*domain.Workflow, error) {
	return s.workflowRepo.ListByTenant(ctx, tenantID)
}

// GetWorkflow returns a single workflow, scoped to the tenant.
func (s *WorkflowService) GetWorkflow(ctx context.Context, tenantID uuid.UUID, workflowID int64) (*domain.Workflow, error) {
	workflow, err := s.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if workflow.TenantID != tenantID {
		return nil, apperrors.ErrWorkflowNotFound
	}
	return workflow, nil
}

// resolveForTicket loads the ticket's stored workflow, re-resolving from
// scratch when no id is stored or the stored workflow no longer matches the
// ticket's tenant/brand scope.
func (s *WorkflowService) resolveForTicket(ctx context.Context, ticket *domain.Ticket) (*domain.Workflow, error) {
	if ticket.TicketWorkflowID != nil {
		workflow, err := s.workflowRepo.GetByID(ctx, *ticket.TicketWorkflowID)
		if err == nil && workflow.AppliesTo(ticket.TenantID, ticket.BrandID) {
			return workflow, nil
		}
		if err != nil {
			s.logger.WarnContext(ctx, "stored workflow lookup failed, re-resolving",
				"ticket_id", ticket.ID,
				"workflow_id", *ticket.TicketWorkflowID,
				"error", err,
			)
		}
	}
	return s.ResolveWorkflow(ctx, ticket.TenantID, ticket.BrandID, nil)
}

// invokeHook resolves a hook identifier and runs it. A blank identifier is
// a no-op; an unregistered one fails fast.
func (s *WorkflowService) invokeHook(ctx context.Context, name string, input ports.HookInput) error {
	if name == "" {
		return nil
	}
	hook, ok := s.hooks.Resolve(name)
	if !ok {
		return apperrors.NewHookError(name, apperrors.ErrHookNotRegistered)
	}
	if err := hook.Invoke(ctx, input); err != nil {
		return apperrors.NewHookError(name, err)
	}
	return nil
}

func (s *WorkflowService) recordTransition(ctx context.Context, ticket *domain.Ticket, workflow *domain.Workflow, fromState, toState *domain.WorkflowState, actorID uuid.UUID, tctx ports.TransitionContext) {
	fromSlug := ""
	if fromState != nil {
		fromSlug = fromState.Slug
	}

	entry := &domain.AuditEntry{
		TicketID:   ticket.ID,
		TenantID:   ticket.TenantID,
		BrandID:    ticket.BrandID,
		Action:     domain.AuditTransition,
		ActorID:    &actorID,
		WorkflowID: &workflow.ID,
		FromState:  fromSlug,
		ToState:    toState.Slug,
		Comment:    tctx.Comment,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record transition audit entry",
			"ticket_id", ticket.ID,
			"error", err,
		)
	}

	brandSlug := ""
	if ticket.BrandID != nil {
		brandSlug = ticket.BrandID.String()
	}
	s.logger.InfoContext(ctx, "ticket transition validated",
		"ticket_id", ticket.ID,
		"tenant_id", ticket.TenantID.String(),
		"brand_id", brandSlug,
		"workflow_id", workflow.ID,
		"from_state", fromSlug,
		"to_state", toState.Slug,
		"actor_id", actorID.String(),
		"had_comment", tctx.Comment != "",
	)
}

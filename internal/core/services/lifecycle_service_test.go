package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ticketwell/helpdesk-core/internal/core/domain"
	apperrors "github.com/ticketwell/helpdesk-core/internal/core/errors"
	"github.com/ticketwell/helpdesk-core/internal/core/mocks"
	"github.com/ticketwell/helpdesk-core/internal/core/ports"
	"github.com/ticketwell/helpdesk-core/internal/core/services"
)

type lifecycleFixture struct {
	svc         *services.LifecycleService
	ticketRepo  *mocks.MockTicketRepository
	workflowSvc *mocks.MockWorkflowService
	slaSvc      *mocks.MockSlaService
	broadcaster *mocks.MockEventBroadcaster
}

func newLifecycleFixture(ctx context.Context) lifecycleFixture {
	ticketRepo := mocks.NewMockTicketRepository()
	workflowSvc := mocks.NewMockWorkflowService()
	slaSvc := mocks.NewMockSlaService()
	broadcaster := mocks.NewMockEventBroadcaster()
	txManager := mocks.NewMockTransactionManager()
	txManager.On("WithTransaction", ctx, mock.Anything).Return(nil)

	svc := services.NewLifecycleService(ticketRepo, workflowSvc, slaSvc, txManager, broadcaster, testLogger())
	return lifecycleFixture{
		svc:         svc,
		ticketRepo:  ticketRepo,
		workflowSvc: workflowSvc,
		slaSvc:      slaSvc,
		broadcaster: broadcaster,
	}
}

func TestLifecycleService_PrepareForCreate(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("stamps workflow and initial state", func(t *testing.T) {
		f := newLifecycleFixture(ctx)
		wf := &domain.Workflow{ID: 5, TenantID: tenantID}
		state := &domain.WorkflowState{ID: 1, WorkflowID: 5, Slug: "new"}
		f.workflowSvc.On("ResolveWorkflow", ctx, tenantID, (*uuid.UUID)(nil), (*int64)(nil)).Return(wf, nil)
		f.workflowSvc.On("ResolveInitialState", wf, "").Return(state, nil)

		ticket := &domain.Ticket{TenantID: tenantID, CreatedAt: time.Now().UTC()}
		result, err := f.svc.PrepareForCreate(ctx, ticket, nil, "")

		require.NoError(t, err)
		assert.Equal(t, wf, result.Workflow)
		require.NotNil(t, ticket.TicketWorkflowID)
		assert.Equal(t, int64(5), *ticket.TicketWorkflowID)
		assert.Equal(t, "new", ticket.WorkflowState)
		assert.Nil(t, ticket.SlaDueAt)
	})

	t.Run("derives due instant from state sla override", func(t *testing.T) {
		f := newLifecycleFixture(ctx)
		wf := &domain.Workflow{ID: 5, TenantID: tenantID}
		state := &domain.WorkflowState{ID: 1, WorkflowID: 5, Slug: "new", SlaMinutes: intPtr(120)}
		f.workflowSvc.On("ResolveWorkflow", ctx, tenantID, (*uuid.UUID)(nil), (*int64)(nil)).Return(wf, nil)
		f.workflowSvc.On("ResolveInitialState", wf, "").Return(state, nil)

		createdAt := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
		ticket := &domain.Ticket{TenantID: tenantID, CreatedAt: createdAt}
		_, err := f.svc.PrepareForCreate(ctx, ticket, nil, "")

		require.NoError(t, err)
		require.NotNil(t, ticket.SlaDueAt)
		assert.Equal(t, createdAt.Add(120*time.Minute), *ticket.SlaDueAt)
	})

	t.Run("caller supplied due instant wins over state override", func(t *testing.T) {
		f := newLifecycleFixture(ctx)
		wf := &domain.Workflow{ID: 5, TenantID: tenantID}
		state := &domain.WorkflowState{ID: 1, WorkflowID: 5, Slug: "new", SlaMinutes: intPtr(120)}
		f.workflowSvc.On("ResolveWorkflow", ctx, tenantID, (*uuid.UUID)(nil), (*int64)(nil)).Return(wf, nil)
		f.workflowSvc.On("ResolveInitialState", wf, "").Return(state, nil)

		supplied := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
		ticket := &domain.Ticket{TenantID: tenantID, CreatedAt: time.Now().UTC(), SlaDueAt: &supplied}
		_, err := f.svc.PrepareForCreate(ctx, ticket, nil, "")

		require.NoError(t, err)
		assert.Equal(t, supplied, *ticket.SlaDueAt)
	})

	t.Run("workflow resolution failure propagates", func(t *testing.T) {
		f := newLifecycleFixture(ctx)
		f.workflowSvc.On("ResolveWorkflow", ctx, tenantID, (*uuid.UUID)(nil), (*int64)(nil)).
			Return(nil, apperrors.ErrWorkflowNotConfigured)

		ticket := &domain.Ticket{TenantID: tenantID}
		result, err := f.svc.PrepareForCreate(ctx, ticket, nil, "")

		assert.Nil(t, result)
		assert.ErrorIs(t, err, apperrors.ErrWorkflowNotConfigured)
	})
}

func TestLifecycleService_AssignSla(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	now := time.Now().UTC()

	t.Run("terminal status clears without a policy lookup", func(t *testing.T) {
		f := newLifecycleFixture(ctx)
		ticket := &domain.Ticket{ID: 1, TenantID: tenantID, Status: domain.StatusResolved}
		f.slaSvc.On("ClearTicketSla", ctx, ticket).Return(true, nil)

		changed, err := f.svc.AssignSla(ctx, ticket, now)

		require.NoError(t, err)
		assert.True(t, changed)
		f.slaSvc.AssertNotCalled(t, "ResolvePolicy", mock.Anything, mock.Anything)
	})

	t.Run("no configured policy clears", func(t *testing.T) {
		f := newLifecycleFixture(ctx)
		ticket := &domain.Ticket{ID: 1, TenantID: tenantID, Status: domain.StatusOpen}
		f.slaSvc.On("ResolvePolicy", ctx, ticket).Return(nil, nil)
		f.slaSvc.On("ClearTicketSla", ctx, ticket).Return(false, nil)

		changed, err := f.svc.AssignSla(ctx, ticket, now)

		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("applies resolved policy and target", func(t *testing.T) {
		f := newLifecycleFixture(ctx)
		ticket := &domain.Ticket{ID: 1, TenantID: tenantID, Status: domain.StatusOpen, Channel: "email", Priority: domain.PriorityHigh}
		policy := &domain.SlaPolicy{ID: 3, TenantID: tenantID}
		target := &domain.SlaPolicyTarget{ID: 9, Channel: "email", Priority: "high"}
		f.slaSvc.On("ResolvePolicy", ctx, ticket).Return(policy, nil)
		f.slaSvc.On("ResolveTarget", policy, "email", domain.PriorityHigh).Return(target)
		f.slaSvc.On("ApplyToTicket", ctx, ticket, policy, target, now).Return(true, nil)

		changed, err := f.svc.AssignSla(ctx, ticket, now)

		require.NoError(t, err)
		assert.True(t, changed)
		f.slaSvc.AssertExpectations(t)
	})
}

func TestLifecycleService_CreateTicket(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	requesterID := uuid.New()

	t.Run("success", func(t *testing.T) {
		f := newLifecycleFixture(ctx)
		wf := &domain.Workflow{ID: 5, TenantID: tenantID}
		state := &domain.WorkflowState{ID: 1, WorkflowID: 5, Slug: "new"}
		f.workflowSvc.On("ResolveWorkflow", ctx, tenantID, (*uuid.UUID)(nil), (*int64)(nil)).Return(wf, nil)
		f.workflowSvc.On("ResolveInitialState", wf, "").Return(state, nil)

		created := &domain.Ticket{
			ID:               42,
			TenantID:         tenantID,
			Subject:          "Printer on fire",
			Channel:          "email",
			Priority:         domain.PriorityHigh,
			Status:           domain.StatusOpen,
			WorkflowState:    "new",
			TicketWorkflowID: &wf.ID,
			RequesterID:      requesterID,
			CreatedAt:        time.Now().UTC(),
		}
		f.ticketRepo.On("Create", ctx, mock.AnythingOfType("*domain.Ticket")).Return(created, nil)
		f.slaSvc.On("ResolvePolicy", ctx, mock.AnythingOfType("*domain.Ticket")).Return(nil, nil)
		f.slaSvc.On("ClearTicketSla", ctx, mock.AnythingOfType("*domain.Ticket")).Return(false, nil)
		f.broadcaster.On("Broadcast", mock.AnythingOfType("domain.Event")).Return()

		ticket, err := f.svc.CreateTicket(ctx, ports.CreateTicketParams{
			TenantID:    tenantID,
			Subject:     "Printer on fire",
			Channel:     "email",
			Priority:    domain.PriorityHigh,
			RequesterID: requesterID,
		})
		f.svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, int64(42), ticket.ID)
		assert.Equal(t, "new", ticket.WorkflowState)
		f.broadcaster.AssertCalled(t, "Broadcast", mock.AnythingOfType("domain.Event"))
	})

	t.Run("validation failure skips persistence", func(t *testing.T) {
		f := newLifecycleFixture(ctx)

		ticket, err := f.svc.CreateTicket(ctx, ports.CreateTicketParams{
			TenantID:    tenantID,
			Channel:     "email",
			RequesterID: requesterID,
		})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, domain.ErrSubjectRequired)
		f.ticketRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestLifecycleService_TransitionTicket(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	actorID := uuid.New()
	wfID := int64(5)

	baseTicket := func() *domain.Ticket {
		return &domain.Ticket{
			ID:               42,
			TenantID:         tenantID,
			Status:           domain.StatusOpen,
			Channel:          "email",
			Priority:         domain.PriorityNormal,
			WorkflowState:    "open",
			TicketWorkflowID: &wfID,
		}
	}

	t.Run("terminal transition resolves the ticket and clears sla", func(t *testing.T) {
		f := newLifecycleFixture(ctx)
		ticket := baseTicket()
		f.ticketRepo.On("GetByIDForUpdate", ctx, tenantID, int64(42)).Return(ticket, nil)

		result := &ports.TransitionResult{
			Workflow:   &domain.Workflow{ID: wfID, TenantID: tenantID},
			Transition: &domain.WorkflowTransition{ID: 102, WorkflowID: wfID},
			State:      &domain.WorkflowState{ID: 3, Slug: "resolved", IsTerminal: true},
		}
		f.workflowSvc.On("ValidateTransition", ctx, ticket, "resolved", actorID, mock.AnythingOfType("ports.TransitionContext")).
			Return(result, nil)
		f.slaSvc.On("ClearTicketSla", ctx, ticket).Return(true, nil).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Ticket).SlaPolicyID = nil
		})
		f.ticketRepo.On("Update", ctx, ticket).Return(ticket, nil)
		f.broadcaster.On("Broadcast", mock.AnythingOfType("domain.Event")).Return()

		updated, err := f.svc.TransitionTicket(ctx, ports.TransitionTicketParams{
			TenantID:        tenantID,
			TicketID:        42,
			TargetStateSlug: "resolved",
			ActorID:         actorID,
			Comment:         "fixed",
		})
		f.svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, "resolved", updated.WorkflowState)
		assert.Equal(t, domain.StatusResolved, updated.Status)
		f.slaSvc.AssertNotCalled(t, "ResolvePolicy", mock.Anything, mock.Anything)
		f.broadcaster.AssertNumberOfCalls(t, "Broadcast", 2)
	})

	t.Run("identity transition persists nothing", func(t *testing.T) {
		f := newLifecycleFixture(ctx)
		ticket := baseTicket()
		f.ticketRepo.On("GetByIDForUpdate", ctx, tenantID, int64(42)).Return(ticket, nil)
		f.workflowSvc.On("ValidateTransition", ctx, ticket, "open", actorID, mock.AnythingOfType("ports.TransitionContext")).
			Return(&ports.TransitionResult{
				Workflow: &domain.Workflow{ID: wfID, TenantID: tenantID},
				State:    &domain.WorkflowState{ID: 2, Slug: "open"},
			}, nil)

		updated, err := f.svc.TransitionTicket(ctx, ports.TransitionTicketParams{
			TenantID:        tenantID,
			TicketID:        42,
			TargetStateSlug: "open",
			ActorID:         actorID,
		})
		f.svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, "open", updated.WorkflowState)
		f.ticketRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		f.broadcaster.AssertNotCalled(t, "Broadcast", mock.Anything)
	})

	t.Run("validation error leaves the ticket alone", func(t *testing.T) {
		f := newLifecycleFixture(ctx)
		ticket := baseTicket()
		f.ticketRepo.On("GetByIDForUpdate", ctx, tenantID, int64(42)).Return(ticket, nil)
		f.workflowSvc.On("ValidateTransition", ctx, ticket, "archived", actorID, mock.AnythingOfType("ports.TransitionContext")).
			Return(nil, apperrors.ErrUnknownState)

		updated, err := f.svc.TransitionTicket(ctx, ports.TransitionTicketParams{
			TenantID:        tenantID,
			TicketID:        42,
			TargetStateSlug: "archived",
			ActorID:         actorID,
		})

		assert.Nil(t, updated)
		assert.ErrorIs(t, err, apperrors.ErrUnknownState)
		f.ticketRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("leaving a terminal status reopens the ticket", func(t *testing.T) {
		f := newLifecycleFixture(ctx)
		ticket := baseTicket()
		ticket.Status = domain.StatusResolved
		ticket.WorkflowState = "resolved"
		f.ticketRepo.On("GetByIDForUpdate", ctx, tenantID, int64(42)).Return(ticket, nil)

		result := &ports.TransitionResult{
			Workflow:   &domain.Workflow{ID: wfID, TenantID: tenantID},
			Transition: &domain.WorkflowTransition{ID: 103, WorkflowID: wfID},
			State:      &domain.WorkflowState{ID: 2, Slug: "open"},
		}
		f.workflowSvc.On("ValidateTransition", ctx, ticket, "open", actorID, mock.AnythingOfType("ports.TransitionContext")).
			Return(result, nil)
		policy := &domain.SlaPolicy{ID: 3, TenantID: tenantID}
		f.slaSvc.On("ResolvePolicy", ctx, ticket).Return(policy, nil)
		f.slaSvc.On("ResolveTarget", policy, "email", domain.PriorityNormal).Return(nil)
		f.slaSvc.On("ApplyToTicket", ctx, ticket, policy, (*domain.SlaPolicyTarget)(nil), mock.AnythingOfType("time.Time")).
			Return(true, nil)
		f.ticketRepo.On("Update", ctx, ticket).Return(ticket, nil)
		f.broadcaster.On("Broadcast", mock.AnythingOfType("domain.Event")).Return()

		updated, err := f.svc.TransitionTicket(ctx, ports.TransitionTicketParams{
			TenantID:        tenantID,
			TicketID:        42,
			TargetStateSlug: "open",
			ActorID:         actorID,
		})
		f.svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, domain.StatusOpen, updated.Status)
	})
}

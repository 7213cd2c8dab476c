package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ticketwell/helpdesk-core/internal/core/domain"
	"github.com/ticketwell/helpdesk-core/internal/core/ports"
)

// MockWorkflowRepository is a mock implementation of ports.WorkflowRepository
type MockWorkflowRepository struct {
	mock.Mock
}

func NewMockWorkflowRepository() *MockWorkflowRepository {
	return &MockWorkflowRepository{}
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id int64) (*domain.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Workflow, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Workflow), args.Error(1)
}

// MockSlaPolicyRepository is a mock implementation of ports.SlaPolicyRepository
type MockSlaPolicyRepository struct {
	mock.Mock
}

func NewMockSlaPolicyRepository() *MockSlaPolicyRepository {
	return &MockSlaPolicyRepository{}
}

func (m *MockSlaPolicyRepository) GetByID(ctx context.Context, id int64) (*domain.SlaPolicy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SlaPolicy), args.Error(1)
}

func (m *MockSlaPolicyRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.SlaPolicy, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SlaPolicy), args.Error(1)
}

// MockTicketRepository is a mock implementation of ports.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, tenantID uuid.UUID, ticketID int64) (*domain.Ticket, error) {
	args := m.Called(ctx, tenantID, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByIDForUpdate(ctx context.Context, tenantID uuid.UUID, ticketID int64) (*domain.Ticket, error) {
	args := m.Called(ctx, tenantID, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) List(ctx context.Context, tenantID uuid.UUID, filter ports.TicketFilter, limit, offset int) ([]*domain.Ticket, error) {
	args := m.Called(ctx, tenantID, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

// MockAuditRecorder is a mock implementation of ports.AuditRecorder
type MockAuditRecorder struct {
	mock.Mock
}

func NewMockAuditRecorder() *MockAuditRecorder {
	return &MockAuditRecorder{}
}

func (m *MockAuditRecorder) Record(ctx context.Context, entry *domain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRecorder) ListForTicket(ctx context.Context, tenantID uuid.UUID, ticketID int64, limit int) ([]*domain.AuditEntry, error) {
	args := m.Called(ctx, tenantID, ticketID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AuditEntry), args.Error(1)
}

// MockWorkflowService is a mock implementation of ports.WorkflowService
type MockWorkflowService struct {
	mock.Mock
}

func NewMockWorkflowService() *MockWorkflowService {
	return &MockWorkflowService{}
}

func (m *MockWorkflowService) ResolveWorkflow(ctx context.Context, tenantID uuid.UUID, brandID *uuid.UUID, explicitWorkflowID *int64) (*domain.Workflow, error) {
	args := m.Called(ctx, tenantID, brandID, explicitWorkflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workflow), args.Error(1)
}

func (m *MockWorkflowService) ResolveInitialState(workflow *domain.Workflow, requestedStateSlug string) (*domain.WorkflowState, error) {
	args := m.Called(workflow, requestedStateSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkflowState), args.Error(1)
}

func (m *MockWorkflowService) ValidateTransition(ctx context.Context, ticket *domain.Ticket, targetStateSlug string, actorID uuid.UUID, tctx ports.TransitionContext) (*ports.TransitionResult, error) {
	args := m.Called(ctx, ticket, targetStateSlug, actorID, tctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.TransitionResult), args.Error(1)
}

// MockSlaService is a mock implementation of ports.SlaService
type MockSlaService struct {
	mock.Mock
}

func NewMockSlaService() *MockSlaService {
	return &MockSlaService{}
}

func (m *MockSlaService) ResolvePolicy(ctx context.Context, ticket *domain.Ticket) (*domain.SlaPolicy, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SlaPolicy), args.Error(1)
}

func (m *MockSlaService) ResolveTarget(policy *domain.SlaPolicy, channel string, priority domain.TicketPriority) *domain.SlaPolicyTarget {
	args := m.Called(policy, channel, priority)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.SlaPolicyTarget)
}

func (m *MockSlaService) CalculateDeadlines(policy *domain.SlaPolicy, target *domain.SlaPolicyTarget, reference time.Time) ports.Deadlines {
	args := m.Called(policy, target, reference)
	return args.Get(0).(ports.Deadlines)
}

func (m *MockSlaService) ApplyToTicket(ctx context.Context, ticket *domain.Ticket, policy *domain.SlaPolicy, target *domain.SlaPolicyTarget, eventInstant time.Time) (bool, error) {
	args := m.Called(ctx, ticket, policy, target, eventInstant)
	return args.Bool(0), args.Error(1)
}

func (m *MockSlaService) ClearTicketSla(ctx context.Context, ticket *domain.Ticket) (bool, error) {
	args := m.Called(ctx, ticket)
	return args.Bool(0), args.Error(1)
}

// MockLifecycleService is a mock implementation of ports.LifecycleService
type MockLifecycleService struct {
	mock.Mock
}

func NewMockLifecycleService() *MockLifecycleService {
	return &MockLifecycleService{}
}

func (m *MockLifecycleService) PrepareForCreate(ctx context.Context, ticket *domain.Ticket, workflowID *int64, requestedStateSlug string) (*ports.TransitionResult, error) {
	args := m.Called(ctx, ticket, workflowID, requestedStateSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.TransitionResult), args.Error(1)
}

func (m *MockLifecycleService) AssignSla(ctx context.Context, ticket *domain.Ticket, eventInstant time.Time) (bool, error) {
	args := m.Called(ctx, ticket, eventInstant)
	return args.Bool(0), args.Error(1)
}

func (m *MockLifecycleService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockLifecycleService) TransitionTicket(ctx context.Context, params ports.TransitionTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockLifecycleService) GetTicket(ctx context.Context, tenantID uuid.UUID, ticketID int64) (*domain.Ticket, error) {
	args := m.Called(ctx, tenantID, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockLifecycleService) ListTickets(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockLifecycleService) Shutdown() {
	m.Called()
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) {
	m.Called(event)
}

// MockTransactionManager runs the supplied function inline, without a real
// transaction.
type MockTransactionManager struct {
	mock.Mock
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

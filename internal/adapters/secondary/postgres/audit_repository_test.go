package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketwell/helpdesk-core/internal/core/domain"
)

func TestAuditRepository_RecordList(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditRepository(testPool)
	tenantID := uuid.New()
	brandID := uuid.New()
	actorID := uuid.New()
	policyID := int64(7)
	workflowID := int64(11)
	firstResponseDue := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	resolutionDue := time.Date(2026, 3, 3, 17, 0, 0, 0, time.UTC)

	entries := []*domain.AuditEntry{
		{TicketID: 100, TenantID: tenantID, BrandID: &brandID, Action: domain.AuditTransition, ActorID: &actorID, WorkflowID: &workflowID, FromState: "new", ToState: "open", Comment: "picked up"},
		{TicketID: 100, TenantID: tenantID, Action: domain.AuditSlaApplied, SlaPolicyID: &policyID, FirstResponseDueAt: &firstResponseDue, ResolutionDueAt: &resolutionDue},
		{TicketID: 100, TenantID: tenantID, Action: domain.AuditTransition, ActorID: &actorID, WorkflowID: &workflowID, FromState: "open", ToState: "resolved"},
	}
	for _, entry := range entries {
		require.NoError(t, repo.Record(ctx, entry))
		assert.NotZero(t, entry.ID)
		assert.False(t, entry.CreatedAt.IsZero())
	}

	got, err := repo.ListForTicket(ctx, tenantID, 100, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Newest first.
	assert.Equal(t, domain.AuditTransition, got[0].Action)
	assert.Equal(t, "resolved", got[0].ToState)
	assert.Equal(t, domain.AuditSlaApplied, got[1].Action)
	require.NotNil(t, got[1].SlaPolicyID)
	assert.Equal(t, policyID, *got[1].SlaPolicyID)
	assert.Nil(t, got[1].ActorID)
	require.NotNil(t, got[1].FirstResponseDueAt)
	assert.Equal(t, firstResponseDue, got[1].FirstResponseDueAt.UTC())
	require.NotNil(t, got[1].ResolutionDueAt)
	assert.Equal(t, resolutionDue, got[1].ResolutionDueAt.UTC())
	require.NotNil(t, got[2].ActorID)
	assert.Equal(t, actorID, *got[2].ActorID)
	require.NotNil(t, got[2].BrandID)
	assert.Equal(t, brandID, *got[2].BrandID)
	require.NotNil(t, got[2].WorkflowID)
	assert.Equal(t, workflowID, *got[2].WorkflowID)
	assert.Equal(t, "picked up", got[2].Comment)
}

func TestAuditRepository_ListForTicket_Scoping(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditRepository(testPool)
	tenantID := uuid.New()

	require.NoError(t, repo.Record(ctx, &domain.AuditEntry{
		TicketID: 200, TenantID: tenantID, Action: domain.AuditTransition, ToState: "open",
	}))

	t.Run("wrong tenant sees nothing", func(t *testing.T) {
		got, err := repo.ListForTicket(ctx, uuid.New(), 200, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("limit caps results", func(t *testing.T) {
		require.NoError(t, repo.Record(ctx, &domain.AuditEntry{
			TicketID: 200, TenantID: tenantID, Action: domain.AuditSlaCleared,
		}))

		got, err := repo.ListForTicket(ctx, tenantID, 200, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, domain.AuditSlaCleared, got[0].Action)
	})
}

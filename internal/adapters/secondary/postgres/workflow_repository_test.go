package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketwell/helpdesk-core/internal/core/domain"
	apperrors "github.com/ticketwell/helpdesk-core/internal/core/errors"
	"github.com/ticketwell/helpdesk-core/internal/core/utils"
)

// seedWorkflow inserts a workflow with a new -> open -> resolved graph and
// returns its id.
func seedWorkflow(t *testing.T, ctx context.Context, tenantID uuid.UUID, brandID *uuid.UUID, slug string, isDefault bool) int64 {
	t.Helper()

	var workflowID int64
	err := testPool.QueryRow(ctx,
		`INSERT INTO workflows (tenant_id, brand_id, name, slug, is_default)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		utils.ToUUID(tenantID), utils.ToNullUUID(brandID), slug, slug, isDefault).Scan(&workflowID)
	require.NoError(t, err)

	states := []struct {
		slug       string
		position   int
		isInitial  bool
		isTerminal bool
		entryHook  string
	}{
		{"new", 1, true, false, ""},
		{"open", 2, false, false, ""},
		{"resolved", 3, false, true, "notify_requester"},
	}
	stateIDs := make(map[string]int64, len(states))
	for _, s := range states {
		var id int64
		err := testPool.QueryRow(ctx,
			`INSERT INTO workflow_states (workflow_id, slug, name, position, is_initial, is_terminal, entry_hook)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			workflowID, s.slug, s.slug, s.position, s.isInitial, s.isTerminal, s.entryHook).Scan(&id)
		require.NoError(t, err)
		stateIDs[s.slug] = id
	}

	_, err = testPool.Exec(ctx,
		`INSERT INTO workflow_transitions (workflow_id, from_state_id, to_state_id, requires_comment, guard_hook)
		 VALUES ($1, NULL, $2, FALSE, ''),
		        ($1, $2, $3, FALSE, ''),
		        ($1, $3, $4, TRUE, 'check_resolution')`,
		workflowID, stateIDs["new"], stateIDs["open"], stateIDs["resolved"])
	require.NoError(t, err)

	return workflowID
}

func TestWorkflowRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkflowRepository(testPool)
	tenantID := uuid.New()

	workflowID := seedWorkflow(t, ctx, tenantID, nil, "support", true)

	wf, err := repo.GetByID(ctx, workflowID)
	require.NoError(t, err)

	assert.Equal(t, tenantID, wf.TenantID)
	assert.Nil(t, wf.BrandID)
	assert.True(t, wf.IsDefault)
	require.Len(t, wf.States, 3)
	assert.Equal(t, "new", wf.States[0].Slug)
	assert.True(t, wf.States[0].IsInitial)
	assert.True(t, wf.States[2].IsTerminal)
	assert.Equal(t, "notify_requester", wf.States[2].EntryHook)

	require.Len(t, wf.Transitions, 3)
	assert.Nil(t, wf.Transitions[0].FromStateID)
	assert.True(t, wf.Transitions[2].RequiresComment)
	assert.Equal(t, "check_resolution", wf.Transitions[2].GuardHook)
}

func TestWorkflowRepository_GetByID_NotFound(t *testing.T) {
	repo := NewWorkflowRepository(testPool)

	wf, err := repo.GetByID(context.Background(), 999999999)

	assert.Nil(t, wf)
	assert.ErrorIs(t, err, apperrors.ErrWorkflowNotFound)
}

func TestWorkflowRepository_ListByTenant(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkflowRepository(testPool)
	tenantID := uuid.New()
	brandID := uuid.New()
	otherTenant := uuid.New()

	seedWorkflow(t, ctx, tenantID, nil, "support", true)
	seedWorkflow(t, ctx, tenantID, &brandID, "vip", false)
	seedWorkflow(t, ctx, otherTenant, nil, "support", true)

	workflows, err := repo.ListByTenant(ctx, tenantID)
	require.NoError(t, err)

	require.Len(t, workflows, 2)
	for _, wf := range workflows {
		assert.Equal(t, tenantID, wf.TenantID)
		assert.Len(t, wf.States, 3)
		assert.Len(t, wf.Transitions, 3)
	}

	bySlug := make(map[string]*domain.Workflow, len(workflows))
	for _, wf := range workflows {
		bySlug[wf.Slug] = wf
	}
	require.Contains(t, bySlug, "support")
	require.Contains(t, bySlug, "vip")
	assert.Nil(t, bySlug["support"].BrandID)
	require.NotNil(t, bySlug["vip"].BrandID)
	assert.Equal(t, brandID, *bySlug["vip"].BrandID)
}

func TestWorkflowRepository_GraphShape(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkflowRepository(testPool)
	tenantID := uuid.New()

	workflowID := seedWorkflow(t, ctx, tenantID, nil, "support", true)
	wf, err := repo.GetByID(ctx, workflowID)
	require.NoError(t, err)

	// The loaded graph supports the lookups the validator relies on.
	initial := wf.InitialState()
	require.NotNil(t, initial)
	assert.Equal(t, "new", initial.Slug)

	open := wf.StateBySlug("open")
	require.NotNil(t, open)
	tr := wf.FindTransition(&initial.ID, open.ID)
	require.NotNil(t, tr)
	assert.False(t, tr.RequiresComment)

	var nilFrom *int64
	assigned := wf.FindTransition(nilFrom, initial.ID)
	require.NotNil(t, assigned)

	resolved := wf.StateBySlug("resolved")
	require.NotNil(t, resolved)
	gated := wf.FindTransition(&open.ID, resolved.ID)
	require.NotNil(t, gated)
	assert.True(t, gated.RequiresComment)

	assert.Nil(t, wf.FindTransition(&initial.ID, resolved.ID))
}

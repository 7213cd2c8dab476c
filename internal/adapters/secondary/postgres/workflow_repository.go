package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketwell/helpdesk-core/internal/core/domain"
	apperrors "github.com/ticketwell/helpdesk-core/internal/core/errors"
	"github.com/ticketwell/helpdesk-core/internal/core/ports"
	"github.com/ticketwell/helpdesk-core/internal/core/utils"
)

// WorkflowRepository is the secondary adapter for workflow graph persistence.
// Workflows are returned with their states and transitions fully loaded.
type WorkflowRepository struct {
	pool *pgxpool.Pool
}

var _ ports.WorkflowRepository = (*WorkflowRepository)(nil)

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(pool *pgxpool.Pool) ports.WorkflowRepository {
	return &WorkflowRepository{pool: pool}
}

const workflowColumns = `id, tenant_id, brand_id, name, slug, is_default, created_at, updated_at`

func scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var wf domain.Workflow
	var tenantID, brandID pgtype.UUID
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(&wf.ID, &tenantID, &brandID, &wf.Name, &wf.Slug, &wf.IsDefault, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	wf.TenantID = utils.FromUUID(tenantID)
	wf.BrandID = utils.FromNullUUID(brandID)
	wf.CreatedAt = createdAt.Time
	wf.UpdatedAt = updatedAt.Time
	return &wf, nil
}

// GetByID retrieves a single workflow with its states and transitions.
func (r *WorkflowRepository) GetByID(ctx context.Context, id int64) (*domain.Workflow, error) {
	q := GetDBTX(ctx, r.pool)

	wf, err := scanWorkflow(q.QueryRow(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWorkflowNotFound
		}
		return nil, err
	}

	if err := r.loadGraph(ctx, q, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// ListByTenant retrieves all workflows of a tenant, fully loaded.
func (r *WorkflowRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Workflow, error) {
	q := GetDBTX(ctx, r.pool)

	rows, err := q.Query(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE tenant_id = $1 ORDER BY id`,
		utils.ToUUID(tenantID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []*domain.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, wf := range workflows {
		if err := r.loadGraph(ctx, q, wf); err != nil {
			return nil, err
		}
	}
	return workflows, nil
}

// loadGraph attaches a workflow's states and transitions.
func (r *WorkflowRepository) loadGraph(ctx context.Context, q DBTX, wf *domain.Workflow) error {
	rows, err := q.Query(ctx,
		`SELECT id, workflow_id, slug, name, position, is_initial, is_terminal, sla_minutes, entry_hook, description
		 FROM workflow_states WHERE workflow_id = $1 ORDER BY position, id`, wf.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	wf.States = nil
	for rows.Next() {
		var state domain.WorkflowState
		var slaMinutes pgtype.Int4
		if err := rows.Scan(&state.ID, &state.WorkflowID, &state.Slug, &state.Name, &state.Position,
			&state.IsInitial, &state.IsTerminal, &slaMinutes, &state.EntryHook, &state.Description); err != nil {
			return err
		}
		state.SlaMinutes = utils.FromNullInt4(slaMinutes)
		wf.States = append(wf.States, state)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	trRows, err := q.Query(ctx,
		`SELECT id, workflow_id, from_state_id, to_state_id, requires_comment, guard_hook, metadata
		 FROM workflow_transitions WHERE workflow_id = $1 ORDER BY id`, wf.ID)
	if err != nil {
		return err
	}
	defer trRows.Close()

	wf.Transitions = nil
	for trRows.Next() {
		var tr domain.WorkflowTransition
		var fromStateID pgtype.Int8
		if err := trRows.Scan(&tr.ID, &tr.WorkflowID, &fromStateID, &tr.ToStateID,
			&tr.RequiresComment, &tr.GuardHook, &tr.Metadata); err != nil {
			return err
		}
		tr.FromStateID = utils.FromNullInt8(fromStateID)
		wf.Transitions = append(wf.Transitions, tr)
	}
	return trRows.Err()
}

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

// SlaPolicyRepository is the secondary adapter for SLA policy persistence.
// Business hours and holiday exceptions live in JSONB columns; targets in a
// child table loaded alongside the policy.
type SlaPolicyRepository struct {
	pool *pgxpool.Pool
}

var _ ports.SlaPolicyRepository = (*SlaPolicyRepository)(nil)

// NewSlaPolicyRepository creates a new SLA policy repository.
func NewSlaPolicyRepository(pool *pgxpool.Pool) ports.SlaPolicyRepository {
	return &SlaPolicyRepository{pool: pool}
}

const slaPolicyColumns = `id, tenant_id, brand_id, name, slug, timezone, business_hours, holiday_exceptions,
	default_first_response_minutes, default_resolution_minutes, enforce_business_hours, created_at, updated_at`

func scanSlaPolicy(row pgx.Row) (*domain.SlaPolicy, error) {
	var policy domain.SlaPolicy
	var tenantID, brandID pgtype.UUID
	var firstResponse, resolution pgtype.Int4
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(&policy.ID, &tenantID, &brandID, &policy.Name, &policy.Slug, &policy.Timezone,
		&policy.BusinessHours, &policy.HolidayExceptions,
		&firstResponse, &resolution, &policy.EnforceBusinessHours, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	policy.TenantID = utils.FromUUID(tenantID)
	policy.BrandID = utils.FromNullUUID(brandID)
	policy.DefaultFirstResponseMinutes = utils.FromNullInt4(firstResponse)
	policy.DefaultResolutionMinutes = utils.FromNullInt4(resolution)
	policy.CreatedAt = createdAt.Time
	policy.UpdatedAt = updatedAt.Time
	return &policy, nil
}

// GetByID retrieves a single policy with its targets.
func (r *SlaPolicyRepository) GetByID(ctx context.Context, id int64) (*domain.SlaPolicy, error) {
	q := GetDBTX(ctx, r.pool)

	policy, err := scanSlaPolicy(q.QueryRow(ctx,
		`SELECT `+slaPolicyColumns+` FROM sla_policies WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSlaPolicyNotFound
		}
		return nil, err
	}

	if err := r.loadTargets(ctx, q, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

// ListByTenant retrieves all policies of a tenant with their targets.
func (r *SlaPolicyRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.SlaPolicy, error) {
	q := GetDBTX(ctx, r.pool)

	rows, err := q.Query(ctx,
		`SELECT `+slaPolicyColumns+` FROM sla_policies WHERE tenant_id = $1 ORDER BY id`,
		utils.ToUUID(tenantID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*domain.SlaPolicy
	for rows.Next() {
		policy, err := scanSlaPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, policy := range policies {
		if err := r.loadTargets(ctx, q, policy); err != nil {
			return nil, err
		}
	}
	return policies, nil
}

func (r *SlaPolicyRepository) loadTargets(ctx context.Context, q DBTX, policy *domain.SlaPolicy) error {
	rows, err := q.Query(ctx,
		`SELECT id, policy_id, channel, priority, first_response_minutes, resolution_minutes, use_business_hours
		 FROM sla_policy_targets WHERE policy_id = $1 ORDER BY id`, policy.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	policy.Targets = nil
	for rows.Next() {
		var target domain.SlaPolicyTarget
		var firstResponse, resolution pgtype.Int4
		var useBusinessHours pgtype.Bool
		if err := rows.Scan(&target.ID, &target.PolicyID, &target.Channel, &target.Priority,
			&firstResponse, &resolution, &useBusinessHours); err != nil {
			return err
		}
		target.FirstResponseMinutes = utils.FromNullInt4(firstResponse)
		target.ResolutionMinutes = utils.FromNullInt4(resolution)
		target.UseBusinessHours = utils.FromNullBool(useBusinessHours)
		policy.Targets = append(policy.Targets, target)
	}
	return rows.Err()
}

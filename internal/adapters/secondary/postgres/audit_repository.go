package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketwell/helpdesk-core/internal/core/domain"
	"github.com/ticketwell/helpdesk-core/internal/core/ports"
	"github.com/ticketwell/helpdesk-core/internal/core/utils"
)

// AuditRepository is the secondary adapter for the immutable lifecycle audit
// log. Entries written inside a transaction roll back with it.
type AuditRepository struct {
	pool *pgxpool.Pool
}

var _ ports.AuditRecorder = (*AuditRepository)(nil)

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(pool *pgxpool.Pool) ports.AuditRecorder {
	return &AuditRepository{pool: pool}
}

// Record appends a lifecycle audit entry.
func (r *AuditRepository) Record(ctx context.Context, entry *domain.AuditEntry) error {
	q := GetDBTX(ctx, r.pool)

	return q.QueryRow(ctx,
		`INSERT INTO ticket_audit_log (ticket_id, tenant_id, brand_id, action, actor_id, workflow_id, from_state, to_state, comment, sla_policy_id, first_response_due_at, resolution_due_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at`,
		entry.TicketID,
		utils.ToUUID(entry.TenantID),
		utils.ToNullUUID(entry.BrandID),
		string(entry.Action),
		utils.ToNullUUID(entry.ActorID),
		utils.ToNullInt8(entry.WorkflowID),
		entry.FromState,
		entry.ToState,
		entry.Comment,
		utils.ToNullInt8(entry.SlaPolicyID),
		utils.ToNullTime(entry.FirstResponseDueAt),
		utils.ToNullTime(entry.ResolutionDueAt),
	).Scan(&entry.ID, &entry.CreatedAt)
}

// ListForTicket returns the most recent audit entries for a ticket.
func (r *AuditRepository) ListForTicket(ctx context.Context, tenantID uuid.UUID, ticketID int64, limit int) ([]*domain.AuditEntry, error) {
	q := GetDBTX(ctx, r.pool)

	rows, err := q.Query(ctx,
		`SELECT id, ticket_id, tenant_id, brand_id, action, actor_id, workflow_id, from_state, to_state, comment, sla_policy_id, first_response_due_at, resolution_due_at, created_at
		 FROM ticket_audit_log
		 WHERE tenant_id = $1 AND ticket_id = $2
		 ORDER BY id DESC
		 LIMIT $3`,
		utils.ToUUID(tenantID), ticketID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var entryTenantID, brandID, actorID pgtype.UUID
		var workflowID, policyID pgtype.Int8
		var firstResponseDueAt, resolutionDueAt pgtype.Timestamptz
		if err := rows.Scan(&entry.ID, &entry.TicketID, &entryTenantID, &brandID, &entry.Action, &actorID,
			&workflowID, &entry.FromState, &entry.ToState, &entry.Comment, &policyID,
			&firstResponseDueAt, &resolutionDueAt, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.TenantID = utils.FromUUID(entryTenantID)
		entry.BrandID = utils.FromNullUUID(brandID)
		entry.ActorID = utils.FromNullUUID(actorID)
		entry.WorkflowID = utils.FromNullInt8(workflowID)
		entry.SlaPolicyID = utils.FromNullInt8(policyID)
		entry.FirstResponseDueAt = utils.FromNullTime(firstResponseDueAt)
		entry.ResolutionDueAt = utils.FromNullTime(resolutionDueAt)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketwell/helpdesk-core/internal/core/domain"
	apperrors "github.com/ticketwell/helpdesk-core/internal/core/errors"
	"github.com/ticketwell/helpdesk-core/internal/core/ports"
	"github.com/ticketwell/helpdesk-core/internal/core/utils"
)

// TicketRepository is the secondary adapter for ticket persistence.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// Ensure TicketRepository implements the ports.TicketRepository interface.
var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) ports.TicketRepository {
	return &TicketRepository{pool: pool}
}

const ticketColumns = `id, tenant_id, brand_id, subject, description, requester_id, channel, priority, status,
	workflow_state, ticket_workflow_id, sla_policy_id, first_response_due_at, resolution_due_at, sla_due_at,
	created_at, updated_at`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var tenantID, brandID, requesterID pgtype.UUID
	var workflowID, policyID pgtype.Int8
	var firstResponseDue, resolutionDue, slaDue, updatedAt pgtype.Timestamptz
	var createdAt pgtype.Timestamptz

	err := row.Scan(&ticket.ID, &tenantID, &brandID, &ticket.Subject, &ticket.Description, &requesterID,
		&ticket.Channel, &ticket.Priority, &ticket.Status,
		&ticket.WorkflowState, &workflowID, &policyID, &firstResponseDue, &resolutionDue, &slaDue,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	ticket.TenantID = utils.FromUUID(tenantID)
	ticket.BrandID = utils.FromNullUUID(brandID)
	ticket.RequesterID = utils.FromUUID(requesterID)
	ticket.TicketWorkflowID = utils.FromNullInt8(workflowID)
	ticket.SlaPolicyID = utils.FromNullInt8(policyID)
	ticket.FirstResponseDueAt = utils.FromNullTime(firstResponseDue)
	ticket.ResolutionDueAt = utils.FromNullTime(resolutionDue)
	ticket.SlaDueAt = utils.FromNullTime(slaDue)
	ticket.CreatedAt = createdAt.Time
	ticket.UpdatedAt = utils.FromNullTime(updatedAt)
	return &ticket, nil
}

// Create persists a new ticket entity.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx,
		`INSERT INTO tickets (tenant_id, brand_id, subject, description, requester_id, channel, priority, status,
			workflow_state, ticket_workflow_id, sla_policy_id, first_response_due_at, resolution_due_at, sla_due_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING `+ticketColumns,
		utils.ToUUID(ticket.TenantID),
		utils.ToNullUUID(ticket.BrandID),
		ticket.Subject,
		ticket.Description,
		utils.ToUUID(ticket.RequesterID),
		ticket.Channel,
		string(ticket.Priority),
		string(ticket.Status),
		ticket.WorkflowState,
		utils.ToNullInt8(ticket.TicketWorkflowID),
		utils.ToNullInt8(ticket.SlaPolicyID),
		utils.ToNullTime(ticket.FirstResponseDueAt),
		utils.ToNullTime(ticket.ResolutionDueAt),
		utils.ToNullTime(ticket.SlaDueAt),
		ticket.CreatedAt,
	)
	return scanTicket(row)
}

// GetByID retrieves a single ticket by its ID, scoped to the tenant.
func (r *TicketRepository) GetByID(ctx context.Context, tenantID uuid.UUID, ticketID int64) (*domain.Ticket, error) {
	return r.getByID(ctx, tenantID, ticketID, false)
}

// GetByIDForUpdate retrieves a ticket and locks its row for the duration of
// the ambient transaction. Must be called inside WithTransaction.
func (r *TicketRepository) GetByIDForUpdate(ctx context.Context, tenantID uuid.UUID, ticketID int64) (*domain.Ticket, error) {
	return r.getByID(ctx, tenantID, ticketID, true)
}

func (r *TicketRepository) getByID(ctx context.Context, tenantID uuid.UUID, ticketID int64, forUpdate bool) (*domain.Ticket, error) {
	q := GetDBTX(ctx, r.pool)

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1 AND tenant_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	ticket, err := scanTicket(q.QueryRow(ctx, query, ticketID, utils.ToUUID(tenantID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// Update persists changes to an existing ticket entity.
func (r *TicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx,
		`UPDATE tickets
		 SET subject = $3, description = $4, channel = $5, priority = $6, status = $7,
			workflow_state = $8, ticket_workflow_id = $9, sla_policy_id = $10,
			first_response_due_at = $11, resolution_due_at = $12, sla_due_at = $13, updated_at = $14
		 WHERE id = $1 AND tenant_id = $2
		 RETURNING `+ticketColumns,
		ticket.ID,
		utils.ToUUID(ticket.TenantID),
		ticket.Subject,
		ticket.Description,
		ticket.Channel,
		string(ticket.Priority),
		string(ticket.Status),
		ticket.WorkflowState,
		utils.ToNullInt8(ticket.TicketWorkflowID),
		utils.ToNullInt8(ticket.SlaPolicyID),
		utils.ToNullTime(ticket.FirstResponseDueAt),
		utils.ToNullTime(ticket.ResolutionDueAt),
		utils.ToNullTime(ticket.SlaDueAt),
		utils.ToNullTime(ticket.UpdatedAt),
	)
	updated, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return updated, nil
}

// List retrieves a filtered page of a tenant's tickets, newest first.
func (r *TicketRepository) List(ctx context.Context, tenantID uuid.UUID, filter ports.TicketFilter, limit, offset int) ([]*domain.Ticket, error) {
	q := GetDBTX(ctx, r.pool)

	conditions := []string{"tenant_id = $1"}
	args := []interface{}{utils.ToUUID(tenantID)}

	addFilter := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addFilter("status", filter.Status)
	addFilter("priority", filter.Priority)
	addFilter("workflow_state", filter.WorkflowState)
	addFilter("channel", filter.Channel)

	args = append(args, limit, offset)
	query := fmt.Sprintf(
		`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		ticketColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

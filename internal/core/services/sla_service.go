package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ticketwell/helpdesk-core/internal/core/domain"
	"github.com/ticketwell/helpdesk-core/internal/core/ports"
)

// SlaService resolves SLA policies for tickets and maintains their deadline
// fields. No policy being configured is a valid outcome, not an error.
type SlaService struct {
	slaRepo ports.SlaPolicyRepository
	audit   ports.AuditRecorder
	logger  *slog.Logger
}

var _ ports.SlaService = (*SlaService)(nil)
var _ ports.SlaQueryService = (*SlaService)(nil)

// NewSlaService creates a new SLA service.
func NewSlaService(slaRepo ports.SlaPolicyRepository, audit ports.AuditRecorder, logger *slog.Logger) *SlaService {
	return &SlaService{
		slaRepo: slaRepo,
		audit:   audit,
		logger:  logger,
	}
}

// ResolvePolicy picks the most specific policy for the ticket's tenant and
// brand. Brand-specific policies win over tenant-wide ones; among candidates
// the most recently updated wins. Returns nil when nothing is configured.
func (s *SlaService) ResolvePolicy(ctx context.Context, ticket *domain.Ticket) (*domain.SlaPolicy, error) {
	policies, err := s.slaRepo.ListByTenant(ctx, ticket.TenantID)
	if err != nil {
		return nil, err
	}

	if ticket.BrandID != nil {
		if policy := newestPolicy(policies, ticket.BrandID); policy != nil {
			return policy, nil
		}
	}
	return newestPolicy(policies, nil), nil
}

// newestPolicy returns the most recently updated policy in the given brand
// scope, or nil. A nil brandID selects tenant-wide policies.
func newestPolicy(policies []*domain.SlaPolicy, brandID *uuid.UUID) *domain.SlaPolicy {
	var newest *domain.SlaPolicy
	for _, policy := range policies {
		if brandID != nil {
			if policy.BrandID == nil || *policy.BrandID != *brandID {
				continue
			}
		} else if policy.BrandID != nil {
			continue
		}
		if newest == nil || policy.UpdatedAt.After(newest.UpdatedAt) {
			newest = policy
		}
	}
	return newest
}

// ResolveTarget finds the policy target exactly matching the ticket's
// channel and priority. Nil means the policy defaults apply.
func (s *SlaService) ResolveTarget(policy *domain.SlaPolicy, channel string, priority domain.TicketPriority) *domain.SlaPolicyTarget {
	if policy == nil {
		return nil
	}
	return policy.TargetFor(channel, string(priority))
}

// ApplyToTicket computes deadlines and writes them onto the ticket in
// memory. It reports whether any SLA field actually changed so callers can
// skip no-op persistence.
func (s *SlaService) ApplyToTicket(ctx context.Context, ticket *domain.Ticket, policy *domain.SlaPolicy, target *domain.SlaPolicyTarget, eventInstant time.Time) (bool, error) {
	deadlines := s.CalculateDeadlines(policy, target, eventInstant)
	policyID := policy.ID

	if equalInt64Ptr(ticket.SlaPolicyID, &policyID) &&
		equalTimePtr(ticket.FirstResponseDueAt, deadlines.FirstResponseDueAt) &&
		equalTimePtr(ticket.ResolutionDueAt, deadlines.ResolutionDueAt) &&
		equalTimePtr(ticket.SlaDueAt, deadlines.ResolutionDueAt) {
		return false, nil
	}

	ticket.SlaPolicyID = &policyID
	ticket.FirstResponseDueAt = deadlines.FirstResponseDueAt
	ticket.ResolutionDueAt = deadlines.ResolutionDueAt
	ticket.SlaDueAt = deadlines.ResolutionDueAt
	ticket.Touch()

	s.recordSla(ctx, ticket, domain.AuditSlaApplied)
	s.logger.InfoContext(ctx, "sla deadlines applied",
		"ticket_id", ticket.ID,
		"policy_id", policyID,
		"first_response_due_at", formatInstant(deadlines.FirstResponseDueAt),
		"resolution_due_at", formatInstant(deadlines.ResolutionDueAt),
	)
	return true, nil
}

// ClearTicketSla nulls the ticket's SLA fields, reporting whether anything
// was set. Used when no policy applies or the ticket reached a terminal
// status.
func (s *SlaService) ClearTicketSla(ctx context.Context, ticket *domain.Ticket) (bool, error) {
	if ticket.SlaPolicyID == nil && ticket.FirstResponseDueAt == nil &&
		ticket.ResolutionDueAt == nil && ticket.SlaDueAt == nil {
		return false, nil
	}

	ticket.SlaPolicyID = nil
	ticket.FirstResponseDueAt = nil
	ticket.ResolutionDueAt = nil
	ticket.SlaDueAt = nil
	ticket.Touch()

	s.recordSla(ctx, ticket, domain.AuditSlaCleared)
	s.logger.InfoContext(ctx, "sla deadlines cleared", "ticket_id", ticket.ID)
	return true, nil
}

// ListPolicies returns all SLA policies configured for a tenant.
func (s *SlaService) ListPolicies(ctx context.Context, tenantID uuid.UUID) ([]*domain.SlaPolicy, error) {
	return s.slaRepo.ListByTenant(ctx, tenantID)
}

func (s *SlaService) recordSla(ctx context.Context, ticket *domain.Ticket, action domain.AuditAction) {
	entry := &domain.AuditEntry{
		TicketID:           ticket.ID,
		TenantID:           ticket.TenantID,
		BrandID:            ticket.BrandID,
		Action:             action,
		SlaPolicyID:        ticket.SlaPolicyID,
		FirstResponseDueAt: ticket.FirstResponseDueAt,
		ResolutionDueAt:    ticket.ResolutionDueAt,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record sla audit entry",
			"ticket_id", ticket.ID,
			"action", string(action),
			"error", err,
		)
	}
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func formatInstant(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketwell/helpdesk-core/internal/core/domain"
	apperrors "github.com/ticketwell/helpdesk-core/internal/core/errors"
	"github.com/ticketwell/helpdesk-core/internal/core/utils"
)

// seedSlaPolicy inserts a business-hours policy with a single email/high
// target and returns its id.
func seedSlaPolicy(t *testing.T, ctx context.Context, tenantID uuid.UUID, brandID *uuid.UUID, slug string) int64 {
	t.Helper()

	hours := []domain.BusinessHoursSegment{
		{Day: time.Monday, Start: "09:00", End: "17:00"},
		{Day: time.Tuesday, Start: "09:00", End: "17:00"},
	}
	holidays := []string{"2026-12-25"}

	var policyID int64
	err := testPool.QueryRow(ctx,
		`INSERT INTO sla_policies (tenant_id, brand_id, name, slug, timezone, business_hours, holiday_exceptions,
		                           default_first_response_minutes, default_resolution_minutes, enforce_business_hours)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		utils.ToUUID(tenantID), utils.ToNullUUID(brandID), slug, slug, "Europe/Berlin",
		hours, holidays, 60, 480, true).Scan(&policyID)
	require.NoError(t, err)

	_, err = testPool.Exec(ctx,
		`INSERT INTO sla_policy_targets (policy_id, channel, priority, first_response_minutes, resolution_minutes, use_business_hours)
		 VALUES ($1, 'email', 'high', 15, 240, FALSE)`,
		policyID)
	require.NoError(t, err)

	return policyID
}

func TestSlaPolicyRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := NewSlaPolicyRepository(testPool)
	tenantID := uuid.New()

	policyID := seedSlaPolicy(t, ctx, tenantID, nil, "standard")

	policy, err := repo.GetByID(ctx, policyID)
	require.NoError(t, err)

	assert.Equal(t, tenantID, policy.TenantID)
	assert.Nil(t, policy.BrandID)
	assert.Equal(t, "Europe/Berlin", policy.Timezone)
	assert.True(t, policy.EnforceBusinessHours)

	require.Len(t, policy.BusinessHours, 2)
	assert.Equal(t, time.Monday, policy.BusinessHours[0].Day)
	assert.Equal(t, "09:00", policy.BusinessHours[0].Start)
	assert.Equal(t, "17:00", policy.BusinessHours[0].End)
	assert.Equal(t, []string{"2026-12-25"}, policy.HolidayExceptions)

	require.NotNil(t, policy.DefaultFirstResponseMinutes)
	assert.Equal(t, 60, *policy.DefaultFirstResponseMinutes)
	require.NotNil(t, policy.DefaultResolutionMinutes)
	assert.Equal(t, 480, *policy.DefaultResolutionMinutes)

	require.Len(t, policy.Targets, 1)
	target := policy.Targets[0]
	assert.Equal(t, "email", target.Channel)
	assert.Equal(t, "high", target.Priority)
	require.NotNil(t, target.FirstResponseMinutes)
	assert.Equal(t, 15, *target.FirstResponseMinutes)
	require.NotNil(t, target.ResolutionMinutes)
	assert.Equal(t, 240, *target.ResolutionMinutes)
	require.NotNil(t, target.UseBusinessHours)
	assert.False(t, *target.UseBusinessHours)
}

func TestSlaPolicyRepository_GetByID_NotFound(t *testing.T) {
	repo := NewSlaPolicyRepository(testPool)

	policy, err := repo.GetByID(context.Background(), 999999999)

	assert.Nil(t, policy)
	assert.ErrorIs(t, err, apperrors.ErrSlaPolicyNotFound)
}

func TestSlaPolicyRepository_ListByTenant(t *testing.T) {
	ctx := context.Background()
	repo := NewSlaPolicyRepository(testPool)
	tenantID := uuid.New()
	brandID := uuid.New()
	otherTenant := uuid.New()

	seedSlaPolicy(t, ctx, tenantID, nil, "standard")
	seedSlaPolicy(t, ctx, tenantID, &brandID, "vip")
	seedSlaPolicy(t, ctx, otherTenant, nil, "standard")

	policies, err := repo.ListByTenant(ctx, tenantID)
	require.NoError(t, err)

	require.Len(t, policies, 2)
	bySlug := make(map[string]*domain.SlaPolicy, len(policies))
	for _, p := range policies {
		assert.Equal(t, tenantID, p.TenantID)
		assert.Len(t, p.Targets, 1)
		bySlug[p.Slug] = p
	}
	require.Contains(t, bySlug, "standard")
	require.Contains(t, bySlug, "vip")
	assert.Nil(t, bySlug["standard"].BrandID)
	require.NotNil(t, bySlug["vip"].BrandID)
	assert.Equal(t, brandID, *bySlug["vip"].BrandID)
}

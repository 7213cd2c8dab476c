package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	actorID := uuid.New()
	tenantID := uuid.New()
	brandID := uuid.New()

	token, err := tm.GenerateToken(actorID, tenantID, &brandID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, actorID, claims.ActorID)
	assert.Equal(t, tenantID, claims.TenantID)
	require.NotNil(t, claims.BrandID)
	assert.Equal(t, brandID, *claims.BrandID)
	assert.Equal(t, actorID.String(), claims.Subject)
}

func TestTokenManager_TenantWideClaims(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, err := tm.GenerateToken(uuid.New(), uuid.New(), nil)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Nil(t, claims.BrandID)
}

func TestTokenManager_UsesConfiguredTTL(t *testing.T) {
	ttl := 2 * time.Hour
	tm := NewTokenManager("test-secret", ttl)

	start := time.Now()

	token, err := tm.GenerateToken(uuid.New(), uuid.New(), nil)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)

	expectedExpiry := start.Add(ttl)
	assert.WithinDuration(t, expectedExpiry, claims.ExpiresAt.Time, 2*time.Second)
}

func TestTokenManager_RejectsForeignSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", time.Hour).GenerateToken(uuid.New(), uuid.New(), nil)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

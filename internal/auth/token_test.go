package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vivero/internal/models"
)

const (
	testAccessSecret  = "access-secret-for-tests"
	testRefreshSecret = "refresh-secret-for-tests"
)

func testUser() *models.User {
	return &models.User{
		ID:       "5f1c2d3e-0000-4000-8000-000000000001",
		Email:    "ana@example.com",
		TenantID: "5f1c2d3e-0000-4000-8000-0000000000aa",
		RoleID:   "5f1c2d3e-0000-4000-8000-0000000000bb",
		IsActive: true,
	}
}

func newTestIssuer(t *testing.T, opts ...IssuerOption) *TokenIssuer {
	t.Helper()
	ti, err := NewTokenIssuer(testAccessSecret, testRefreshSecret, "vivero-test", 15*time.Minute, 168*time.Hour, opts...)
	require.NoError(t, err)
	return ti
}

func TestIssuePairCarriesClaims(t *testing.T) {
	ti := newTestIssuer(t)
	u := testUser()

	pair, err := ti.IssuePair(u)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEmpty(t, pair.RefreshJTI)

	claims, err := ti.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, u.TenantID, claims.TenantID)
	assert.Equal(t, u.RoleID, claims.RoleID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)

	refreshClaims, err := ti.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, refreshClaims.Subject)
	assert.Equal(t, pair.RefreshJTI, refreshClaims.ID)
	assert.Equal(t, TokenTypeRefresh, refreshClaims.TokenType)
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	ti := newTestIssuer(t)
	pair, err := ti.IssuePair(testUser())
	require.NoError(t, err)

	_, err = ti.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	_, err = ti.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestAccessTokenExpiryBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ti := newTestIssuer(t, WithClock(clock))

	pair, err := ti.IssuePair(testUser())
	require.NoError(t, err)

	now = now.Add(15*time.Minute - time.Second)
	_, err = ti.VerifyAccess(pair.AccessToken)
	assert.NoError(t, err, "token should verify just before expiry")

	now = now.Add(2 * time.Second)
	_, err = ti.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired, "token should be rejected just after expiry")
}

func TestVerifyRejectsGarbage(t *testing.T) {
	ti := newTestIssuer(t)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := ti.VerifyAccess(tok)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	}
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	other, err := NewTokenIssuer(testAccessSecret, testRefreshSecret, "someone-else", 15*time.Minute, time.Hour)
	require.NoError(t, err)
	pair, err := other.IssuePair(testUser())
	require.NoError(t, err)

	ti := newTestIssuer(t)
	_, err = ti.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestNewTokenIssuerRejectsSharedSecret(t *testing.T) {
	_, err := NewTokenIssuer("same", "same", "vivero", time.Minute, time.Hour)
	assert.Error(t, err)
}

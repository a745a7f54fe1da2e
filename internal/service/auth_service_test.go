package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-ledger-api/internal/models"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret", Issuer: "course-ledger-api", Expiry: time.Hour})

	token, expiresAt, err := svc.IssueToken("s-1", models.RoleStudent)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "s-1", claims.UserID)
	assert.Equal(t, models.Actor{UserID: "s-1", Role: models.RoleStudent}, models.ActorFromClaims(claims))
}

func TestAuthServiceRejectsForeignTokens(t *testing.T) {
	issuer := NewAuthService(AuthConfig{Secret: "other", Issuer: "course-ledger-api"})
	verifier := NewAuthService(AuthConfig{Secret: "secret", Issuer: "course-ledger-api"})

	token, _, err := issuer.IssueToken("s-1", models.RoleStudent)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceRejectsExpiredAndUnknownRole(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret", Expiry: time.Minute})
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, err := svc.IssueToken("s-1", models.RoleStudent)
	require.NoError(t, err)
	svc.now = time.Now

	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	odd, _, err := svc.IssueToken("u-1", models.UserRole("GUEST"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(odd)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

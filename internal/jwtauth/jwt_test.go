package jwtauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "burogate/pkg/domain"
	dErrors "burogate/pkg/domain-errors"
	"burogate/pkg/requestcontext"
)

func testIdentity() requestcontext.CallerIdentity {
	return requestcontext.CallerIdentity{
		UserID:            id.UserID(7),
		EntityID:          id.EntityID(42),
		EntityName:        "Financiera Centro SA",
		EntityTaxID:       id.TaxID("FCE010203AB1"),
		MaxMonthlyQueries: 100,
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewService("test-signing-key", "burogate-test")

	t.Run("round-trips the caller identity", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(testIdentity(), time.Hour)
		require.NoError(t, err)

		ident, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, id.EntityID(42), ident.EntityID)
		assert.Equal(t, id.UserID(7), ident.UserID)
		assert.Equal(t, 100, ident.MaxMonthlyQueries)
		assert.Equal(t, id.TaxID("FCE010203AB1"), ident.EntityTaxID)
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(testIdentity(), -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects tokens signed with another key", func(t *testing.T) {
		other := NewService("another-key", "burogate-test")
		token, err := other.GenerateAccessToken(testIdentity(), time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		require.Error(t, err)
	})
}

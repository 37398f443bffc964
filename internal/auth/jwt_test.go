package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken_WithJTI(t *testing.T) {
	secret := "test-secret"
	userID := "test-user-id"

	token, jti, err := GenerateToken(secret, userID, RoleLibrarian, []string{PermMarkReturned}, 24*time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, jti)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, jti, claims.ID)
	assert.Equal(t, userID, claims.Sub)
	assert.Equal(t, RoleLibrarian, claims.Role)
	assert.Equal(t, []string{PermMarkReturned}, claims.Perms)
}

func TestGenerateToken_UniqueJTI(t *testing.T) {
	_, jti1, err := GenerateToken("s", "u", RoleMember, nil, time.Hour)
	require.NoError(t, err)
	_, jti2, err := GenerateToken("s", "u", RoleMember, nil, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, jti1, jti2)
}

func TestParseToken(t *testing.T) {
	secret := "test-secret-key"
	userID := "user-123"

	t.Run("valid token", func(t *testing.T) {
		token, _, err := GenerateToken(secret, userID, RoleMember, nil, time.Hour)
		require.NoError(t, err)

		claims, err := ParseToken(secret, token)
		assert.NoError(t, err)
		assert.NotNil(t, claims)
		assert.Equal(t, userID, claims.Sub)
		assert.Empty(t, claims.Perms)
	})

	t.Run("invalid signature", func(t *testing.T) {
		token, _, err := GenerateToken("wrong-secret", userID, RoleMember, nil, time.Hour)
		require.NoError(t, err)

		claims, err := ParseToken(secret, token)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("expired token", func(t *testing.T) {
		c := Claims{
			Sub:  userID,
			Role: RoleMember,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			},
		}
		tkn := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
		token, err := tkn.SignedString([]byte(secret))
		require.NoError(t, err)

		claims, err := ParseToken(secret, token)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("wrong signing method", func(t *testing.T) {
		tkn := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{Sub: userID})
		token, err := tkn.SignedString([]byte(secret))
		require.NoError(t, err)

		claims, err := ParseToken(secret, token)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("malformed token", func(t *testing.T) {
		claims, err := ParseToken(secret, "not.a.valid.token")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})
}

func TestClaims_Caller(t *testing.T) {
	c := &Claims{Sub: "u1", Role: RoleLibrarian, Perms: []string{PermMarkReturned, PermEdit}}

	caller := c.Caller()

	assert.Equal(t, "u1", caller.UserID)
	assert.True(t, caller.IsAuthenticated())
	assert.True(t, caller.Permissions.HasAll(PermMarkReturned, PermEdit))
}

package services

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surveyor/models/modeltest"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	db := modeltest.NewDB(t)
	auth := NewAuthService(db, "secret", zap.NewNop())
	ctx := context.Background()

	user, err := auth.Register(ctx, &RegisterRequest{Username: " alice ", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	_, err = auth.Register(ctx, &RegisterRequest{Username: "alice", Password: "another one"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	resp, err := auth.Login(ctx, &LoginRequest{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.User.ID)

	userID, err := ParseToken("secret", resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	_, err = auth.Login(ctx, &LoginRequest{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, &LoginRequest{Username: "bob", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseToken_Rejects(t *testing.T) {
	auth := NewAuthService(nil, "secret", zap.NewNop())
	token, _, err := auth.GenerateToken(5)
	require.NoError(t, err)

	_, err = ParseToken("other-secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("secret", "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 5}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken("secret", none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

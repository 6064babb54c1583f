package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.IssueSessionToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := svc.ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestValidateSessionTokenWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a").IssueSessionToken(42)
	require.NoError(t, err)

	_, err = NewTokenService("secret-b").ValidateSessionToken(token)
	assert.Error(t, err)
}

func TestValidateSessionTokenGarbage(t *testing.T) {
	_, err := NewTokenService("test-secret").ValidateSessionToken("not.a.token")
	assert.Error(t, err)
}

package utils

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestIssueNewTokens_RoundTrip(t *testing.T) {
	key := testKey(t)

	access, refresh, jti, err := IssueNewTokens("user-123", "alice", []string{"user", "author"}, key)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	require.NotEmpty(t, jti)

	claims, err := ParseAndVerifySign(access, &key.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Sub)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, []string{"user", "author"}, claims.Roles)
	assert.Nil(t, claims.Jti, "access tokens carry no jti")

	refreshClaims, err := ParseAndVerifySign(refresh, &key.PublicKey)
	require.NoError(t, err)
	require.NotNil(t, refreshClaims.Jti)
	assert.Equal(t, jti, *refreshClaims.Jti)
	assert.Greater(t, refreshClaims.Exp, claims.Exp)
}

func TestParseAndVerifySign_WrongKeyRejected(t *testing.T) {
	key := testKey(t)
	otherKey := testKey(t)

	access, _, _, err := IssueNewTokens("user-123", "alice", nil, key)
	require.NoError(t, err)

	_, err = ParseAndVerifySign(access, &otherKey.PublicKey)
	assert.Error(t, err)
}

func TestParseAndVerifySign_GarbageRejected(t *testing.T) {
	key := testKey(t)

	_, err := ParseAndVerifySign("not-a-token", &key.PublicKey)
	assert.Error(t, err)
}

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokens() TokenService {
	return TokenService{
		Secret:   []byte("test-secret"),
		Issuer:   "figurehub-test",
		Duration: time.Hour,
	}
}

func TestSignParseRoundtrip(t *testing.T) {
	ts := testTokens()

	token, exp, err := ts.Sign("u1", "alice")
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := ts.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID())
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "figurehub-test", claims.Issuer)
}

func TestEmptyIssuerFallsBackToDefault(t *testing.T) {
	ts := testTokens()
	ts.Issuer = ""

	token, _, err := ts.Sign("u1", "alice")
	require.NoError(t, err)

	claims, err := ts.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, DefaultIssuer, claims.Issuer)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := testTokens().Sign("u1", "alice")
	require.NoError(t, err)

	other := testTokens()
	other.Secret = []byte("different-secret")
	_, err = other.Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token, _, err := testTokens().Sign("u1", "alice")
	require.NoError(t, err)

	other := testTokens()
	other.Issuer = "someone-else"
	_, err = other.Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := testTokens().Parse("not.a.token")
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	ts := testTokens()
	ts.Duration = -time.Minute

	token, _, err := ts.Sign("u1", "alice")
	require.NoError(t, err)

	_, err = ts.Parse(token)
	assert.Error(t, err)
}

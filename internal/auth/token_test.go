package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken("alice@example.com", "user", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := IssueToken("alice@example.com", "user", "secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	token, err := IssueToken("alice@example.com", "user", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "secret")
	assert.Error(t, err)
}

func TestParseToken_Empty(t *testing.T) {
	_, err := ParseToken("", "secret")
	assert.Error(t, err)
}

func TestExtractTokenFromRequest(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/api/bookings", nil)

	_, err := ExtractTokenFromRequest(r)
	assert.Error(t, err, "missing header")

	r.Header.Set("Authorization", "token-without-scheme")
	_, err = ExtractTokenFromRequest(r)
	assert.Error(t, err, "malformed header")

	r.Header.Set("Authorization", "Bearer abc.def.ghi")
	token, err := ExtractTokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)
}

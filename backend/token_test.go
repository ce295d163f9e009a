package backend

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims TokenClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return tok
}

func TestParseTokenClaims(t *testing.T) {
	tok := signed(t, TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "npc-1", Issuer: "localhost"},
		HexIdentity:      "c200abcd",
	})

	claims, err := ParseTokenClaims(tok)
	require.NoError(t, err)
	assert.Equal(t, "c200abcd", claims.HexIdentity)
	assert.Equal(t, "npc-1", claims.Subject)

	_, err = ParseTokenClaims("not-a-jwt")
	assert.Error(t, err)
}

func TestTokenUsable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	expired := signed(t, TokenClaims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))}})
	fresh := signed(t, TokenClaims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}})
	forever := signed(t, TokenClaims{HexIdentity: "aa"})

	assert.False(t, TokenUsable("", now))
	assert.False(t, TokenUsable(expired, now))
	assert.True(t, TokenUsable(fresh, now))
	assert.True(t, TokenUsable(forever, now))
	assert.True(t, TokenUsable("opaque-session-token", now))
}

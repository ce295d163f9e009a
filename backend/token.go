package backend

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims 身份令牌中关心的声明
type TokenClaims struct {
	jwt.RegisteredClaims
	HexIdentity string `json:"hex_identity,omitempty"`
}

// ParseTokenClaims 解析令牌声明但不校验签名（签名由后端校验）。
func ParseTokenClaims(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse identity token: %w", err)
	}
	return claims, nil
}

// TokenUsable reports whether a persisted token is worth presenting.
// Opaque (non-JWT) tokens are passed through; expired JWTs are not.
func TokenUsable(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	claims, err := ParseTokenClaims(token)
	if err != nil {
		return true
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(now) {
		return false
	}
	return true
}

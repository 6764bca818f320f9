package identity

import (
	"fmt"
	"net/http"
	"strings"

	corechat_errors "corechat/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims is the claim set carried by a self-verified token. It maps to
// the same actor fields the trust headers carry.
type AccessClaims struct {
	UserID         string `json:"sub"`
	UserName       string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	OrganizationID string `json:"org"`
	jwt.RegisteredClaims
}

// TokenResolver verifies an HMAC-signed token (signature and expiry) and
// extracts the actor from its claims. Invalid or expired tokens are rejected
// as unauthorized (401 class).
type TokenResolver struct {
	secret []byte
}

func NewTokenResolver(secret string) *TokenResolver {
	return &TokenResolver{secret: []byte(secret)}
}

func (tr *TokenResolver) Resolve(r *http.Request) (Actor, error) {
	token := extractBearer(r)
	if token == "" {
		// WebSocket clients cannot set headers from the browser API.
		token = r.URL.Query().Get("token")
	}
	return tr.ResolveToken(token)
}

// ResolveToken verifies the raw token string. Exposed so the real-time
// gateway can authenticate the handshake with the same rules as REST.
func (tr *TokenResolver) ResolveToken(token string) (Actor, error) {
	if token == "" {
		return Actor{}, fmt.Errorf("missing token: %w", corechat_errors.ErrUnauthorized)
	}

	parsed, err := jwt.ParseWithClaims(token, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, corechat_errors.ErrUnauthorized
		}
		return tr.secret, nil
	})
	if err != nil {
		return Actor{}, fmt.Errorf("invalid token: %w", corechat_errors.ErrUnauthorized)
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return Actor{}, corechat_errors.ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid sub claim: %w", corechat_errors.ErrUnauthorized)
	}
	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid org claim: %w", corechat_errors.ErrUnauthorized)
	}

	return Actor{
		UserID:         userID,
		UserName:       claims.UserName,
		Email:          claims.Email,
		OrganizationID: orgID,
	}, nil
}

func extractBearer(r *http.Request) string {
	value := r.Header.Get("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

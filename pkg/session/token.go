package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/launchforge/launchforge-backend/pkg/config"
	pkgerrors "github.com/launchforge/launchforge-backend/pkg/errors"
)

// Claims carries the tenant identity minted by the external identity
// provider. Token issuance lives there; this package only verifies.
type Claims struct {
	TenantID   string `json:"tenant_id"`
	TenantName string `json:"tenant_name,omitempty"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

// Parse verifies the signed session token and returns its claims.
func Parse(cfg config.SessionConfig, raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session token")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid session token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session token")
	}
	if strings.TrimSpace(claims.TenantID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session token missing tenant")
	}
	if strings.TrimSpace(claims.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session token missing email")
	}
	return claims, nil
}

// Issue signs a session token locally. Production tokens come from the
// identity provider; this exists for dev tooling and tests.
func Issue(cfg config.SessionConfig, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

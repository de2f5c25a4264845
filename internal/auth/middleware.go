// Package auth extracts the pre-authenticated caller principal from
// the transport layer. Identity and key management live outside the
// ledger; here a signed JWT names the principal and, for registry
// administration, an admin role.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
)

const (
	principalKey = "auth.principal"
	adminKey     = "auth.admin"

	// RoleAdmin marks callers allowed to manage the verifier set.
	RoleAdmin = "admin"
)

// Claims are the token claims the ledger cares about.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Middleware validates the Bearer token and stores the caller
// principal on the request context.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := parseToken(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}

		c.Set(principalKey, ledger.Principal(claims.Subject))
		c.Set(adminKey, claims.Role == RoleAdmin)
		c.Next()
	}
}

// RequireAdmin rejects callers whose token lacks the admin role. It
// must run after Middleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(adminKey) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

// Principal returns the authenticated caller for the request.
func Principal(c *gin.Context) ledger.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(ledger.Principal); ok {
			return p
		}
	}
	return ""
}

// IssueToken signs a token for principal. Used by tests and dev
// tooling; production callers arrive with tokens minted by the
// identity service.
func IssueToken(secret string, principal ledger.Principal, role string, expiresAt time.Time) (string, error) {
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: string(principal),
		},
	}
	if !expiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseToken(token, secret string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}

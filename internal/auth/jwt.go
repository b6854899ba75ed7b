// Package auth verifies the Supabase-issued JWT carried by each request.
// Authentication itself is delegated to Supabase; this service only checks
// the signature and extracts the subject.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ContextUserID is the gin context key holding the verified subject.
	ContextUserID = "user_id"
	// ContextCredential holds the raw Authorization header, forwarded to
	// the persistence collaborator for row-level authorization.
	ContextCredential = "credential"
)

// Claims mirrors the fields of a Supabase access token we care about.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Middleware returns a gin handler that rejects requests without a valid
// HS256 bearer token signed with the project's JWT secret.
func Middleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed authorization header"})
			return
		}

		claims, err := parse(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextCredential, header)
		c.Next()
	}
}

func parse(token string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// UserID returns the verified subject set by the middleware.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// Credential returns the raw Authorization header set by the middleware.
func Credential(c *gin.Context) string {
	return c.GetString(ContextCredential)
}

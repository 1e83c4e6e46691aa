package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Gurilao-dev/exmonitor/internal/models"
	"github.com/Gurilao-dev/exmonitor/internal/services"
)

// Context keys for verified claims, one per token type.
const (
	PreLoginClaimsKey = "pre_login_claims"
	RegisterClaimsKey = "register_claims"
	SessionClaimsKey  = "session_claims"
	DeviceClaimsKey   = "device_claims"
	StreamClaimsKey   = "stream_claims"
)

func claimsKeyFor(t models.TokenType) string {
	switch t {
	case models.TokenTypePreLogin:
		return PreLoginClaimsKey
	case models.TokenTypeRegisterRequest:
		return RegisterClaimsKey
	case models.TokenTypeDevice:
		return DeviceClaimsKey
	case models.TokenTypeStream:
		return StreamClaimsKey
	}
	return SessionClaimsKey
}

// RequireToken gates a route on a verified token of the given type. The token
// is read from the type's transport location (a dedicated header, or the
// bearer Authorization header for session tokens), verified by the token
// service, and the claims are attached to the request context under the
// type's claims key. Missing or failed tokens are recorded on the context;
// ErrorHandler renders them as 401 carrying the verification error message.
func RequireToken(tokens *services.TokenService, tokenType models.TokenType) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c, tokenType)
		if raw == "" {
			c.Error(&models.MissingTokenError{Expected: tokenType})
			c.Abort()
			return
		}

		claims, err := tokens.Verify(raw, tokenType)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}

		c.Set(claimsKeyFor(tokenType), claims)
		c.Next()
	}
}

func extractToken(c *gin.Context, tokenType models.TokenType) string {
	if tokenType == models.TokenTypeSession {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return ""
		}
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return c.GetHeader(models.HeaderFor(tokenType))
}

// SessionClaims returns the verified session claims attached by RequireToken.
func SessionClaims(c *gin.Context) *models.TokenClaims {
	return claimsFrom(c, SessionClaimsKey)
}

// StreamClaims returns the verified stream claims attached by RequireToken.
func StreamClaims(c *gin.Context) *models.TokenClaims {
	return claimsFrom(c, StreamClaimsKey)
}

func claimsFrom(c *gin.Context, key string) *models.TokenClaims {
	v, ok := c.Get(key)
	if !ok {
		return nil
	}
	claims, _ := v.(*models.TokenClaims)
	return claims
}

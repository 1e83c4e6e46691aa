package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gurilao-dev/exmonitor/internal/models"
	"github.com/Gurilao-dev/exmonitor/internal/services"
)

func setupAuthRouter(t *testing.T, tokens *services.TokenService, tokenType models.TokenType, key string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/protected", RequireToken(tokens, tokenType), func(c *gin.Context) {
		claims := claimsFrom(c, key)
		require.NotNil(t, claims)
		c.JSON(http.StatusOK, gin.H{"type": claims.Type})
	})
	return router
}

func TestRequireToken_HeaderLocations(t *testing.T) {
	tokens := services.NewTokenService("test-secret", services.NewMemoryRevocationList())

	preLogin, err := tokens.IssuePreLogin("10.0.0.1")
	require.NoError(t, err)
	register, err := tokens.IssueRegisterRequest("10.0.0.1", "fp")
	require.NoError(t, err)
	session, err := tokens.IssueSession("user-1", "a@b.com", "ABC12")
	require.NoError(t, err)
	device, err := tokens.IssueDevice("user-1", "device-1", "cam")
	require.NoError(t, err)
	stream, err := tokens.IssueStream("device-1", "monitor-1", "")
	require.NoError(t, err)

	tests := []struct {
		name      string
		tokenType models.TokenType
		claimsKey string
		header    string
		value     string
	}{
		{"pre-login header", models.TokenTypePreLogin, PreLoginClaimsKey, "X-PreLogin-Token", preLogin},
		{"register header", models.TokenTypeRegisterRequest, RegisterClaimsKey, "X-Register-Token", register},
		{"session bearer", models.TokenTypeSession, SessionClaimsKey, "Authorization", "Bearer " + session},
		{"device header", models.TokenTypeDevice, DeviceClaimsKey, "X-Device-Token", device},
		{"stream header", models.TokenTypeStream, StreamClaimsKey, "X-Stream-Token", stream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupAuthRouter(t, tokens, tt.tokenType, tt.claimsKey)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/protected", nil)
			req.Header.Set(tt.header, tt.value)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestRequireToken_Rejections(t *testing.T) {
	tokens := services.NewTokenService("test-secret", services.NewMemoryRevocationList())
	router := setupAuthRouter(t, tokens, models.TokenTypeSession, SessionClaimsKey)

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "SESSION_JWT required", body["error"])
	})

	t.Run("bearer prefix required", func(t *testing.T) {
		session, err := tokens.IssueSession("user-1", "a@b.com", "ABC12")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", session)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer junk")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "invalid token", body["error"])
	})

	t.Run("wrong type surfaces reason", func(t *testing.T) {
		preLogin, err := tokens.IssuePreLogin("10.0.0.1")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+preLogin)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Contains(t, body["error"], "invalid token type")
	})

	t.Run("revoked token", func(t *testing.T) {
		session, err := tokens.IssueSession("user-1", "a@b.com", "ABC12")
		require.NoError(t, err)
		tokens.Revoke(session)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+session)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "token has been revoked", body["error"])
	})
}

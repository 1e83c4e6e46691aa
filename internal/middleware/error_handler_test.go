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
)

func serveWithError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/boom", func(c *gin.Context) {
		c.Error(err)
		c.Abort()
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/boom", nil))
	return w
}

func TestErrorHandler_TokenFailuresAre401(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"missing", &models.MissingTokenError{Expected: models.TokenTypeSession}, "SESSION_JWT required"},
		{"malformed", models.ErrTokenMalformed, "invalid token"},
		{"expired", models.ErrTokenExpired, "token has expired"},
		{"revoked", models.ErrTokenRevoked, "token has been revoked"},
		{"wrong type", &models.WrongTokenTypeError{Expected: models.TokenTypeStream, Got: models.TokenTypeSession}, "invalid token type: expected STREAM_TOKEN, got SESSION_JWT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveWithError(t, tt.err)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body.Error)
		})
	}
}

func TestErrorHandler_BlockedIs403(t *testing.T) {
	w := serveWithError(t, &models.IPBlockedError{Reason: "suspicious activity"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "IP_BLOCKED", body.Code)
	assert.Equal(t, "IP address blocked due to suspicious activity", body.Error)
}

func TestErrorHandler_RateLimitedIs429(t *testing.T) {
	w := serveWithError(t, &models.RateLimitError{RetryAfter: 42})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Code)
	assert.Equal(t, "Too many requests", body.Error)
	assert.Equal(t, int64(42), body.RetryAfter)
}

func TestErrorHandler_UnknownErrorIs500(t *testing.T) {
	w := serveWithError(t, assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body.Error)
}

func TestErrorHandler_LeavesWrittenResponsesAlone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/handled", func(c *gin.Context) {
		c.Error(models.ErrTokenExpired)
		c.JSON(http.StatusTeapot, gin.H{"error": "already handled"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/handled", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "already handled", decodeError(t, w))
}

func TestErrorHandler_NoErrorPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

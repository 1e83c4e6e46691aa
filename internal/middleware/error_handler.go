package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gurilao-dev/exmonitor/internal/models"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	RetryAfter int64  `json:"retryAfter,omitempty"`
}

// ErrorHandler maps errors recorded on the gin context to the response
// taxonomy: 401 for token failures, 403 for blocks, 429 for rate limits,
// 400 for validation, 500 otherwise. Handlers that respond directly (most
// do) bypass this; it is the net for errors attached via c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var wrongType *models.WrongTokenTypeError
		var rateLimited *models.RateLimitError
		var blocked *models.IPBlockedError

		switch {
		case errors.Is(err, models.ErrTokenMissing),
			errors.Is(err, models.ErrTokenMalformed),
			errors.Is(err, models.ErrTokenExpired),
			errors.Is(err, models.ErrTokenRevoked),
			errors.As(err, &wrongType):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
		case errors.As(err, &blocked):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: "IP_BLOCKED"})
		case errors.As(err, &rateLimited):
			c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error:      err.Error(),
				Code:       "RATE_LIMIT_EXCEEDED",
				RetryAfter: rateLimited.RetryAfter,
			})
		case err.Error() == "EOF" || c.Errors.Last().Type == gin.ErrorTypeBind:
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		}
	}
}

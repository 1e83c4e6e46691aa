package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gurilao-dev/exmonitor/internal/middleware"
	"github.com/Gurilao-dev/exmonitor/internal/models"
	"github.com/Gurilao-dev/exmonitor/internal/services"
)

// AuthHandler implements the token chain's REST steps: global password gate,
// registration, login, and session refresh.
type AuthHandler struct {
	tokens         *services.TokenService
	users          UserDirectory
	globalPassword string
	logger         *zap.Logger
}

func NewAuthHandler(tokens *services.TokenService, users UserDirectory, globalPassword string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		tokens:         tokens,
		users:          users,
		globalPassword: globalPassword,
		logger:         logger,
	}
}

type validateGlobalRequest struct {
	GlobalPassword string `json:"globalPassword"`
}

// ValidateGlobal checks the shared global password and issues a PRE_LOGIN
// token bound to the caller's IP.
func (h *AuthHandler) ValidateGlobal(c *gin.Context) {
	var req validateGlobalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	supplied := strings.TrimSpace(req.GlobalPassword)
	expected := strings.TrimSpace(h.globalPassword)
	if supplied == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(expected)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid global password"})
		return
	}

	token, err := h.tokens.IssuePreLogin(middleware.ClientIP(c))
	if err != nil {
		h.logger.Error("failed to issue pre-login token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "preLoginToken": token})
}

// VerifyGlobal confirms the pre-login token on the route is valid; the
// middleware has already done the work.
func (h *AuthHandler) VerifyGlobal(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type requestRegisterRequest struct {
	Email string `json:"email"`
}

// RequestRegister starts the registration flow: a PRE_LOGIN holder trades an
// email for a short-lived REGISTER_REQUEST token bound to their IP and
// device fingerprint.
func (h *AuthHandler) RequestRegister(c *gin.Context) {
	var req requestRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil || !strings.Contains(req.Email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
		return
	}

	fingerprint := c.GetString(middleware.FingerprintKey)
	if fingerprint == "" {
		fingerprint = c.Request.UserAgent()
	}

	token, err := h.tokens.IssueRegisterRequest(middleware.ClientIP(c), fingerprint)
	if err != nil {
		h.logger.Error("failed to issue register token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "registerToken": token})
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

// Register completes registration: creates the account and issues a SESSION
// token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := services.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user, err := h.users.Create(c.Request.Context(), req.Email, hash, services.GenerateUniqueID())
	if err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
			return
		}
		h.logger.Error("failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := h.tokens.IssueSession(user.ID, user.Email, user.UniqueID)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"sessionToken": token,
		"user": gin.H{
			"uid":      user.ID,
			"email":    user.Email,
			"uniqueId": user.UniqueID,
		},
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials against the stored password hash and issues a
// SESSION token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err := services.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := h.tokens.IssueSession(user.ID, user.Email, user.UniqueID)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := h.users.UpdateLastLogin(c.Request.Context(), user.ID); err != nil {
		h.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"sessionToken": token,
		"user": gin.H{
			"uid":      user.ID,
			"email":    user.Email,
			"uniqueId": user.UniqueID,
		},
	})
}

// Logout revokes the presented session token, if any. The client discards
// its other tokens; they expire on their own.
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		h.tokens.Revoke(strings.TrimPrefix(authHeader, "Bearer "))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type refreshRequest struct {
	Token string `json:"token" binding:"required"`
}

// Refresh exchanges a live session token for a fresh one, revoking the old.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.tokens.Refresh(req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "sessionToken": token})
}

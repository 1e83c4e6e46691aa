package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gurilao-dev/exmonitor/internal/middleware"
	"github.com/Gurilao-dev/exmonitor/internal/models"
	"github.com/Gurilao-dev/exmonitor/internal/services"
)

// Collision probes before giving up on pairing-code allocation. The code
// space is 900k values, so hitting this bound means something is wrong with
// the directory, not bad luck.
const maxPairingCodeAttempts = 10

// DeviceHandler manages transmitter registration, monitor pairing, and
// stream-token issuance.
type DeviceHandler struct {
	tokens  *services.TokenService
	devices DeviceDirectory
	logger  *zap.Logger
}

func NewDeviceHandler(tokens *services.TokenService, devices DeviceDirectory, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{tokens: tokens, devices: devices, logger: logger}
}

type registerDeviceRequest struct {
	DeviceName string `json:"deviceName"`
}

// Register creates a transmitter device for the session user, allocating a
// collision-free pairing code, and returns a DEVICE token.
func (h *DeviceHandler) Register(c *gin.Context) {
	claims := middleware.SessionClaims(c)

	var req registerDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.DeviceName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Device name required"})
		return
	}

	var pairingCode string
	for attempt := 0; ; attempt++ {
		if attempt >= maxPairingCodeAttempts {
			h.logger.Error("pairing code allocation exhausted retries")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		pairingCode = services.GeneratePairingCode()
		exists, err := h.devices.PairingCodeExists(c.Request.Context(), pairingCode)
		if err != nil {
			h.logger.Error("pairing code lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if !exists {
			break
		}
	}

	device, err := h.devices.Register(c.Request.Context(), claims.UserID, strings.TrimSpace(req.DeviceName), pairingCode)
	if err != nil {
		h.logger.Error("device registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	deviceToken, err := h.tokens.IssueDevice(claims.UserID, device.ID, device.Name)
	if err != nil {
		h.logger.Error("failed to issue device token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"device": gin.H{
			"deviceId":    device.ID,
			"deviceName":  device.Name,
			"pairingCode": device.PairingCode,
			"status":      device.Status,
		},
		"deviceToken": deviceToken,
	})
}

type pairRequest struct {
	PairingCode string `json:"pairingCode"`
}

// Pair associates the session user as a monitor of the device behind the
// pairing code.
func (h *DeviceHandler) Pair(c *gin.Context) {
	claims := middleware.SessionClaims(c)

	var req pairRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.PairingCode) != 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid 6-digit pairing code required"})
		return
	}

	device, err := h.devices.FindByPairingCode(c.Request.Context(), req.PairingCode)
	if err != nil {
		if errors.Is(err, models.ErrInvalidPairingCode) || errors.Is(err, models.ErrPairingCodeExpired) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("pairing lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if device.IsPairedWith(claims.UserID) {
		c.JSON(http.StatusConflict, gin.H{"error": "Already paired with this device"})
		return
	}

	if err := h.devices.Pair(c.Request.Context(), device.ID, claims.UserID); err != nil {
		if errors.Is(err, models.ErrAlreadyPaired) {
			c.JSON(http.StatusConflict, gin.H{"error": "Already paired with this device"})
			return
		}
		h.logger.Error("device pairing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"device": gin.H{
			"deviceId":   device.ID,
			"deviceName": device.Name,
			"status":     device.Status,
		},
	})
}

// List returns the session user's devices: owned by default, paired when
// mode=monitor. Pairing codes are only disclosed to the owner.
func (h *DeviceHandler) List(c *gin.Context) {
	claims := middleware.SessionClaims(c)
	mode := c.Query("mode")

	var devices []*models.Device
	var err error
	if mode == "monitor" {
		devices, err = h.devices.ListPaired(c.Request.Context(), claims.UserID)
	} else {
		devices, err = h.devices.ListOwned(c.Request.Context(), claims.UserID)
	}
	if err != nil {
		h.logger.Error("device list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	out := make([]gin.H, 0, len(devices))
	for _, d := range devices {
		entry := gin.H{
			"deviceId":   d.ID,
			"deviceName": d.Name,
			"status":     d.Status,
			"lastSeen":   d.LastSeen,
		}
		if mode != "monitor" {
			entry["pairingCode"] = d.PairingCode
		}
		out = append(out, entry)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "devices": out})
}

type updateStatusRequest struct {
	Status models.DeviceStatus `json:"status"`
}

// UpdateStatus sets a device's reported availability. Only the owner may do
// this; a non-owner gets the same 404 as a missing device.
func (h *DeviceHandler) UpdateStatus(c *gin.Context) {
	claims := middleware.SessionClaims(c)
	deviceID := c.Param("deviceId")

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !models.ValidDeviceStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid status required (online, offline, streaming)"})
		return
	}

	device, err := h.devices.GetByID(c.Request.Context(), deviceID)
	if err != nil || device.UserID != claims.UserID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}

	if err := h.devices.UpdateStatus(c.Request.Context(), deviceID, req.Status); err != nil {
		h.logger.Error("status update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Status updated"})
}

// Delete removes an owned device.
func (h *DeviceHandler) Delete(c *gin.Context) {
	claims := middleware.SessionClaims(c)
	deviceID := c.Param("deviceId")

	device, err := h.devices.GetByID(c.Request.Context(), deviceID)
	if err != nil || device.UserID != claims.UserID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}

	if err := h.devices.Delete(c.Request.Context(), deviceID); err != nil {
		h.logger.Error("device deletion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Device removed"})
}

// StreamToken issues a STREAM token scoped to one device, to the owner (as
// transmitter) or a paired monitor. Anyone else gets 403.
func (h *DeviceHandler) StreamToken(c *gin.Context) {
	claims := middleware.SessionClaims(c)
	deviceID := c.Param("deviceId")

	device, err := h.devices.GetByID(c.Request.Context(), deviceID)
	if err != nil {
		if errors.Is(err, models.ErrDeviceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
			return
		}
		h.logger.Error("device lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	isOwner := device.UserID == claims.UserID
	isPaired := device.IsPairedWith(claims.UserID)
	if !isOwner && !isPaired {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to stream this device"})
		return
	}

	var monitorID, transmitterID string
	if isOwner {
		transmitterID = claims.UserID
	} else {
		monitorID = claims.UserID
	}

	token, err := h.tokens.IssueStream(deviceID, monitorID, transmitterID)
	if err != nil {
		h.logger.Error("failed to issue stream token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"streamToken": token,
		"expiresIn":   "1h",
	})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gurilao-dev/exmonitor/internal/middleware"
	"github.com/Gurilao-dev/exmonitor/internal/models"
)

// StreamHandler tracks stream session lifecycle outside the signaling
// channel: audit events and device status flips.
type StreamHandler struct {
	devices DeviceDirectory
	events  StreamEventRecorder
	logger  *zap.Logger
}

func NewStreamHandler(devices DeviceDirectory, events StreamEventRecorder, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{devices: devices, events: events, logger: logger}
}

// Start marks the stream token's device as streaming and logs the event.
func (h *StreamHandler) Start(c *gin.Context) {
	claims := middleware.StreamClaims(c)

	h.events.RecordStreamEvent("STREAM_START", claims.DeviceID, claims.ParticipantID())

	if err := h.devices.UpdateStatus(c.Request.Context(), claims.DeviceID, models.DeviceStatusStreaming); err != nil {
		h.logger.Error("stream start status update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Stream session started",
		"sessionId": claims.SessionID,
	})
}

// Stop marks the stream token's device as back online and logs the event.
func (h *StreamHandler) Stop(c *gin.Context) {
	claims := middleware.StreamClaims(c)

	h.events.RecordStreamEvent("STREAM_STOP", claims.DeviceID, claims.ParticipantID())

	if err := h.devices.UpdateStatus(c.Request.Context(), claims.DeviceID, models.DeviceStatusOnline); err != nil {
		h.logger.Error("stream stop status update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Stream session stopped"})
}

// Stats returns the device's current streaming state to its owner or a
// paired monitor.
func (h *StreamHandler) Stats(c *gin.Context) {
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

	if device.UserID != claims.UserID && !device.IsPairedWith(claims.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to view stats"})
		return
	}

	uptime := "N/A"
	if device.Status == models.DeviceStatusStreaming {
		uptime = "Active"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"deviceId": device.ID,
			"status":   device.Status,
			"lastSeen": device.LastSeen,
			"uptime":   uptime,
		},
	})
}

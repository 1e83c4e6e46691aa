package handlers

import (
	"context"

	"github.com/Gurilao-dev/exmonitor/internal/models"
)

// UserDirectory is the account surface of the directory service consumed by
// the auth handlers.
type UserDirectory interface {
	Create(ctx context.Context, email, passwordHash, uniqueID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// DeviceDirectory is the device surface of the directory service consumed by
// the device and stream handlers.
type DeviceDirectory interface {
	Register(ctx context.Context, userID, name, pairingCode string) (*models.Device, error)
	PairingCodeExists(ctx context.Context, code string) (bool, error)
	FindByPairingCode(ctx context.Context, code string) (*models.Device, error)
	GetByID(ctx context.Context, id string) (*models.Device, error)
	Pair(ctx context.Context, deviceID, monitorUserID string) error
	ListOwned(ctx context.Context, userID string) ([]*models.Device, error)
	ListPaired(ctx context.Context, monitorUserID string) ([]*models.Device, error)
	UpdateStatus(ctx context.Context, deviceID string, status models.DeviceStatus) error
	Delete(ctx context.Context, deviceID string) error
}

// StreamEventRecorder receives stream lifecycle audit events, best effort.
type StreamEventRecorder interface {
	RecordStreamEvent(logType, deviceID, userID string)
}

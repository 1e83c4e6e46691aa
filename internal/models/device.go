package models

import (
	"time"

	"github.com/lib/pq"
)

// DeviceStatus is the transmitter's reported availability.
type DeviceStatus string

const (
	DeviceStatusOnline    DeviceStatus = "online"
	DeviceStatusOffline   DeviceStatus = "offline"
	DeviceStatusStreaming DeviceStatus = "streaming"
)

// ValidDeviceStatus reports whether s is one of the accepted status values.
func ValidDeviceStatus(s DeviceStatus) bool {
	switch s {
	case DeviceStatusOnline, DeviceStatusOffline, DeviceStatusStreaming:
		return true
	}
	return false
}

// Device is a registered transmitter. PairedWith lists the monitor user IDs
// authorized to request stream tokens for it.
type Device struct {
	ID          string         `db:"id" json:"deviceId"`
	UserID      string         `db:"user_id" json:"-"`
	Name        string         `db:"name" json:"deviceName"`
	PairingCode string         `db:"pairing_code" json:"pairingCode,omitempty"`
	Status      DeviceStatus   `db:"status" json:"status"`
	PairedWith  pq.StringArray `db:"paired_with" json:"-"`
	CreatedAt   time.Time      `db:"created_at" json:"-"`
	LastSeen    *time.Time     `db:"last_seen" json:"lastSeen,omitempty"`
}

// IsPairedWith reports whether the given monitor user ID may view this device.
func (d *Device) IsPairedWith(userID string) bool {
	for _, id := range d.PairedWith {
		if id == userID {
			return true
		}
	}
	return false
}

// AccessLog is a best-effort audit record. Writes must never block or fail
// the request that produced them.
type AccessLog struct {
	Type      string    `db:"type"`
	IP        string    `db:"ip"`
	Method    string    `db:"method"`
	Path      string    `db:"path"`
	UserAgent string    `db:"user_agent"`
	UserID    string    `db:"user_id"`
	DeviceID  string    `db:"device_id"`
	Timestamp time.Time `db:"ts"`
}

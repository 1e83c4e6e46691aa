package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Gurilao-dev/exmonitor/internal/models"
)

// Pairing codes stop resolving a day after device registration.
const pairingCodeTTL = 24 * time.Hour

type DeviceRepository struct {
	db *sqlx.DB
}

func NewDeviceRepository(db *sqlx.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Register inserts a transmitter device and its pairing-code lookup row in
// one transaction.
func (r *DeviceRepository) Register(ctx context.Context, userID, name, pairingCode string) (*models.Device, error) {
	suffix := make([]byte, 4)
	rand.Read(suffix)
	device := &models.Device{
		ID:          fmt.Sprintf("device_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(suffix)),
		UserID:      userID,
		Name:        name,
		PairingCode: pairingCode,
		Status:      models.DeviceStatusOffline,
		PairedWith:  pq.StringArray{},
		CreatedAt:   time.Now(),
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO devices (id, user_id, name, pairing_code, status, paired_with, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		device.ID, device.UserID, device.Name, device.PairingCode,
		device.Status, device.PairedWith, device.CreatedAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pairing_codes (code, device_id, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		pairingCode, device.ID, userID, device.CreatedAt, device.CreatedAt.Add(pairingCodeTTL))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return device, nil
}

// PairingCodeExists reports whether a code is already allocated. Used to
// probe for collisions before registering a device.
func (r *DeviceRepository) PairingCodeExists(ctx context.Context, code string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM pairing_codes WHERE code = $1`, code)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByPairingCode resolves a still-valid pairing code to its device.
func (r *DeviceRepository) FindByPairingCode(ctx context.Context, code string) (*models.Device, error) {
	var row struct {
		DeviceID  string    `db:"device_id"`
		ExpiresAt time.Time `db:"expires_at"`
	}
	err := r.db.GetContext(ctx, &row,
		`SELECT device_id, expires_at FROM pairing_codes WHERE code = $1`, code)
	if err == sql.ErrNoRows {
		return nil, models.ErrInvalidPairingCode
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(row.ExpiresAt) {
		return nil, models.ErrPairingCodeExpired
	}
	return r.GetByID(ctx, row.DeviceID)
}

func (r *DeviceRepository) GetByID(ctx context.Context, id string) (*models.Device, error) {
	query := `
		SELECT id, user_id, name, pairing_code, status, paired_with, created_at, last_seen
		FROM devices WHERE id = $1`

	var device models.Device
	err := r.db.GetContext(ctx, &device, query, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// Pair appends a monitor user to the device's authorized list.
func (r *DeviceRepository) Pair(ctx context.Context, deviceID, monitorUserID string) error {
	query := `
		UPDATE devices
		SET paired_with = array_append(paired_with, $1)
		WHERE id = $2 AND NOT ($1 = ANY(paired_with))`
	result, err := r.db.ExecContext(ctx, query, monitorUserID, deviceID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrAlreadyPaired
	}
	return nil
}

// ListOwned returns the devices a transmitter user registered.
func (r *DeviceRepository) ListOwned(ctx context.Context, userID string) ([]*models.Device, error) {
	query := `
		SELECT id, user_id, name, pairing_code, status, paired_with, created_at, last_seen
		FROM devices WHERE user_id = $1 ORDER BY created_at DESC`

	var devices []*models.Device
	if err := r.db.SelectContext(ctx, &devices, query, userID); err != nil {
		return nil, err
	}
	return devices, nil
}

// ListPaired returns the devices a monitor user is authorized to view.
func (r *DeviceRepository) ListPaired(ctx context.Context, monitorUserID string) ([]*models.Device, error) {
	query := `
		SELECT id, user_id, name, pairing_code, status, paired_with, created_at, last_seen
		FROM devices WHERE $1 = ANY(paired_with) ORDER BY created_at DESC`

	var devices []*models.Device
	if err := r.db.SelectContext(ctx, &devices, query, monitorUserID); err != nil {
		return nil, err
	}
	return devices, nil
}

func (r *DeviceRepository) UpdateStatus(ctx context.Context, deviceID string, status models.DeviceStatus) error {
	query := `UPDATE devices SET status = $1, last_seen = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), deviceID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrDeviceNotFound
	}
	return nil
}

// Delete removes a device; the pairing-code row goes with it via cascade.
func (r *DeviceRepository) Delete(ctx context.Context, deviceID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, deviceID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrDeviceNotFound
	}
	return nil
}

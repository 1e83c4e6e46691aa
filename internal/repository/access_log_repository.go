package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Gurilao-dev/exmonitor/internal/models"
)

// AccessLogRepository records audit events. Everything here is best effort:
// failures are logged and swallowed so auditing can never fail or block the
// request that produced the event.
type AccessLogRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewAccessLogRepository(db *sqlx.DB, logger *zap.Logger) *AccessLogRepository {
	return &AccessLogRepository{db: db, logger: logger}
}

func (r *AccessLogRepository) Record(ctx context.Context, entry models.AccessLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	query := `
		INSERT INTO access_logs (type, ip, method, path, user_agent, user_id, device_id, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		entry.Type, entry.IP, entry.Method, entry.Path,
		entry.UserAgent, entry.UserID, entry.DeviceID, entry.Timestamp)
	return err
}

// RecordAsync writes a request log entry on a background goroutine.
func (r *AccessLogRepository) RecordAsync(logType, ip, method, path, userAgent string) {
	entry := models.AccessLog{
		Type:      logType,
		IP:        ip,
		Method:    method,
		Path:      path,
		UserAgent: userAgent,
		Timestamp: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Record(ctx, entry); err != nil {
			r.logger.Warn("access log write failed", zap.Error(err))
		}
	}()
}

// RecordStreamEvent logs a stream lifecycle event (start/stop) for a device.
func (r *AccessLogRepository) RecordStreamEvent(logType, deviceID, userID string) {
	entry := models.AccessLog{
		Type:      logType,
		DeviceID:  deviceID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Record(ctx, entry); err != nil {
			r.logger.Warn("stream event log write failed", zap.Error(err))
		}
	}()
}

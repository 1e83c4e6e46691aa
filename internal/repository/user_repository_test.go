package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gurilao-dev/exmonitor/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestUserRepository_Create(t *testing.T) {
	t.Run("inserts row and returns account", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
			WithArgs(sqlmock.AnyArg(), "a@b.com", "hashed", "ABC12", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		user, err := repo.Create(context.Background(), "a@b.com", "hashed", "ABC12")
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "a@b.com", user.Email)
		assert.Equal(t, "ABC12", user.UniqueID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to email taken", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
			WillReturnError(&pq.Error{Code: "23505"})

		_, err := repo.Create(context.Background(), "dup@b.com", "hashed", "ABC12")
		assert.ErrorIs(t, err, models.ErrEmailTaken)
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	t.Run("scans account", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "unique_id", "created_at", "last_login"}).
			AddRow("user-1", "a@b.com", "hashed", "ABC12", now, nil)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, password_hash, unique_id, created_at, last_login`)).
			WithArgs("a@b.com").
			WillReturnRows(rows)

		user, err := repo.GetByEmail(context.Background(), "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
		assert.Equal(t, "hashed", user.PasswordHash)
		assert.Nil(t, user.LastLogin)
	})

	t.Run("missing account maps to not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, password_hash, unique_id, created_at, last_login`)).
			WithArgs("ghost@b.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByEmail(context.Background(), "ghost@b.com")
		assert.ErrorIs(t, err, models.ErrUserNotFound)
	})
}

func TestUserRepository_UpdateLastLogin(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET last_login`)).
		WithArgs(sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.UpdateLastLogin(context.Background(), "user-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

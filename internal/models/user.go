package models

import "time"

// User is a directory account. UniqueID is the short human-shareable
// identifier shown in the UI, distinct from the opaque primary ID.
type User struct {
	ID           string     `db:"id" json:"uid"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	UniqueID     string     `db:"unique_id" json:"uniqueId"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
}

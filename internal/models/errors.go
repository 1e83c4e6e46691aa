package models

import (
	"errors"
	"fmt"
)

// Token verification failures. Every failure mode is a distinct sentinel so
// middleware and the signaling relay can branch on the exact reason.
var (
	ErrTokenMissing   = errors.New("token required")
	ErrTokenMalformed = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenRevoked   = errors.New("token has been revoked")
)

// MissingTokenError is returned when a route expected a token and the
// request carried none. It names the expected type so the client learns
// which header it forgot.
type MissingTokenError struct {
	Expected TokenType
}

func (e *MissingTokenError) Error() string {
	return string(e.Expected) + " required"
}

func (e *MissingTokenError) Unwrap() error {
	return ErrTokenMissing
}

// WrongTokenTypeError is returned when a token verifies structurally but
// carries a different type than the caller demanded.
type WrongTokenTypeError struct {
	Expected TokenType
	Got      TokenType
}

func (e *WrongTokenTypeError) Error() string {
	got := string(e.Got)
	if got == "" {
		got = "undefined"
	}
	return fmt.Sprintf("invalid token type: expected %s, got %s", e.Expected, got)
}

// RateLimitError carries the retry hint for a throttled request.
type RateLimitError struct {
	RetryAfter int64 // seconds
}

func (e *RateLimitError) Error() string {
	return "Too many requests"
}

// IPBlockedError is returned when a client identity is on the block list.
type IPBlockedError struct {
	Reason string
}

func (e *IPBlockedError) Error() string {
	return "IP address blocked due to suspicious activity"
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDeviceNotFound     = errors.New("device not found")
	ErrInvalidPairingCode = errors.New("invalid pairing code")
	ErrPairingCodeExpired = errors.New("pairing code expired")
	ErrAlreadyPaired      = errors.New("already paired with this device")
)

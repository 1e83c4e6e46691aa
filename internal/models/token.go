package models

import "time"

// TokenType identifies one of the five scoped token kinds the service
// issues. Each step of the privilege chain (anonymous access, identity,
// device ownership, single-stream authorization) has its own type so a
// token can never be replayed to skip an earlier gate.
type TokenType string

const (
	TokenTypePreLogin        TokenType = "PRE_LOGIN_TOKEN"
	TokenTypeRegisterRequest TokenType = "REGISTER_REQUEST_TOKEN"
	TokenTypeSession         TokenType = "SESSION_JWT"
	TokenTypeDevice          TokenType = "DEVICE_TOKEN"
	TokenTypeStream          TokenType = "STREAM_TOKEN"
)

// TokenTTL returns the lifetime for a token type.
func TokenTTL(t TokenType) time.Duration {
	switch t {
	case TokenTypePreLogin:
		return 15 * time.Minute
	case TokenTypeRegisterRequest:
		return 5 * time.Minute
	case TokenTypeSession:
		return 7 * 24 * time.Hour
	case TokenTypeDevice:
		return 30 * 24 * time.Hour
	case TokenTypeStream:
		return time.Hour
	}
	return 0
}

// HeaderFor returns the HTTP transport location for a token type. Session
// tokens travel in the Authorization header as a bearer token; every other
// type has a dedicated header.
func HeaderFor(t TokenType) string {
	switch t {
	case TokenTypePreLogin:
		return "X-PreLogin-Token"
	case TokenTypeRegisterRequest:
		return "X-Register-Token"
	case TokenTypeDevice:
		return "X-Device-Token"
	case TokenTypeStream:
		return "X-Stream-Token"
	}
	return "Authorization"
}

// TokenClaims is the decoded payload of a verified token. Which fields are
// populated depends on Type; the zero value of an unused field is never
// meaningful.
type TokenClaims struct {
	Type      TokenType `json:"type"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
	Nonce     string    `json:"nonce,omitempty"`

	// PRE_LOGIN and REGISTER_REQUEST
	IP          string `json:"ip,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`

	// SESSION
	UserID   string `json:"userId,omitempty"`
	Email    string `json:"email,omitempty"`
	UniqueID string `json:"uniqueId,omitempty"`

	// DEVICE and STREAM
	DeviceID   string `json:"deviceId,omitempty"`
	DeviceName string `json:"deviceName,omitempty"`

	// STREAM
	MonitorID     string `json:"monitorId,omitempty"`
	TransmitterID string `json:"transmitterId,omitempty"`
	SessionID     string `json:"sessionId,omitempty"`
}

// ParticipantID resolves the signaling identity of a stream token holder:
// the monitor claim when present, the transmitter claim otherwise.
func (c *TokenClaims) ParticipantID() string {
	if c.MonitorID != "" {
		return c.MonitorID
	}
	return c.TransmitterID
}

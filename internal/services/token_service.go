package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Gurilao-dev/exmonitor/internal/models"
)

// TokenService is the single authority for minting and verifying the five
// scoped token kinds. Tokens are HS256-signed JWTs; the revocation list is
// consulted before any cryptographic check so a revoked token fails even if
// its signature is still valid.
type TokenService struct {
	secret  []byte
	revoked RevocationList
	now     func() time.Time
}

func NewTokenService(secret string, revoked RevocationList) *TokenService {
	return &TokenService{
		secret:  []byte(secret),
		revoked: revoked,
		now:     time.Now,
	}
}

type tokenClaims struct {
	Type        models.TokenType `json:"type"`
	Nonce       string           `json:"nonce,omitempty"`
	IP          string           `json:"ip,omitempty"`
	Fingerprint string           `json:"fingerprint,omitempty"`

	UserID   string `json:"userId,omitempty"`
	Email    string `json:"email,omitempty"`
	UniqueID string `json:"uniqueId,omitempty"`

	DeviceID   string `json:"deviceId,omitempty"`
	DeviceName string `json:"deviceName,omitempty"`

	MonitorID     string `json:"monitorId,omitempty"`
	TransmitterID string `json:"transmitterId,omitempty"`
	SessionID     string `json:"sessionId,omitempty"`

	jwt.RegisteredClaims
}

// IssuePreLogin mints the token proving global access, bound to the caller's IP.
func (s *TokenService) IssuePreLogin(ip string) (string, error) {
	return s.sign(&tokenClaims{
		Type:  models.TokenTypePreLogin,
		Nonce: randomHex(16),
		IP:    ip,
	})
}

// IssueRegisterRequest mints the first-step registration token, bound to the
// caller's IP and device fingerprint.
func (s *TokenService) IssueRegisterRequest(ip, fingerprint string) (string, error) {
	return s.sign(&tokenClaims{
		Type:        models.TokenTypeRegisterRequest,
		Nonce:       randomHex(16),
		IP:          ip,
		Fingerprint: fingerprint,
	})
}

// IssueSession mints the identity token returned by login and registration.
func (s *TokenService) IssueSession(userID, email, uniqueID string) (string, error) {
	return s.sign(&tokenClaims{
		Type:     models.TokenTypeSession,
		Nonce:    randomHex(16),
		UserID:   userID,
		Email:    email,
		UniqueID: uniqueID,
	})
}

// IssueDevice mints the ownership token handed to a transmitter on device
// registration.
func (s *TokenService) IssueDevice(userID, deviceID, deviceName string) (string, error) {
	return s.sign(&tokenClaims{
		Type:       models.TokenTypeDevice,
		Nonce:      randomHex(16),
		UserID:     userID,
		DeviceID:   deviceID,
		DeviceName: deviceName,
	})
}

// IssueStream mints the narrowly scoped token that authorizes one signaling
// session for one device. Exactly one of monitorID and transmitterID is set,
// identifying the holder's role. Every stream token carries a fresh random
// session identifier.
func (s *TokenService) IssueStream(deviceID, monitorID, transmitterID string) (string, error) {
	return s.sign(&tokenClaims{
		Type:          models.TokenTypeStream,
		Nonce:         randomHex(16),
		DeviceID:      deviceID,
		MonitorID:     monitorID,
		TransmitterID: transmitterID,
		SessionID:     randomHex(16),
	})
}

func (s *TokenService) sign(claims *tokenClaims) (string, error) {
	now := s.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(models.TokenTTL(claims.Type)))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify authenticates a raw token and returns its claims. Revocation is
// checked first, then signature and structure, then expiry, and finally the
// expected type when one is given (empty expectedType skips the type check).
func (s *TokenService) Verify(raw string, expectedType models.TokenType) (*models.TokenClaims, error) {
	if s.revoked.Contains(raw) {
		return nil, models.ErrTokenRevoked
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrTokenMalformed
	}

	if expectedType != "" && claims.Type != expectedType {
		return nil, &models.WrongTokenTypeError{Expected: expectedType, Got: claims.Type}
	}

	out := &models.TokenClaims{
		Type:          claims.Type,
		Nonce:         claims.Nonce,
		IP:            claims.IP,
		Fingerprint:   claims.Fingerprint,
		UserID:        claims.UserID,
		Email:         claims.Email,
		UniqueID:      claims.UniqueID,
		DeviceID:      claims.DeviceID,
		DeviceName:    claims.DeviceName,
		MonitorID:     claims.MonitorID,
		TransmitterID: claims.TransmitterID,
		SessionID:     claims.SessionID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Revoke adds a raw token to the revocation set. Unknown or malformed tokens
// are accepted silently; revoking is idempotent.
func (s *TokenService) Revoke(raw string) {
	exp := s.now().Add(models.TokenTTL(models.TokenTypeDevice))
	var claims tokenClaims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now)); err == nil && claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	s.revoked.Revoke(raw, exp)
}

// Refresh verifies a session token, revokes it, and issues a replacement
// carrying the same identity claims. Of two concurrent refreshes of the same
// token at most one succeeds; the loser observes the revocation and fails.
func (s *TokenService) Refresh(raw string) (string, error) {
	claims, err := s.Verify(raw, models.TokenTypeSession)
	if err != nil {
		return "", err
	}
	if !s.revoked.RevokeOnce(raw, claims.ExpiresAt) {
		return "", models.ErrTokenRevoked
	}
	return s.IssueSession(claims.UserID, claims.Email, claims.UniqueID)
}

// GenerateUniqueID returns the 5-character shareable user identifier.
func GenerateUniqueID() string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	id := make([]byte, 5)
	for i := range id {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		id[i] = charset[n.Int64()]
	}
	return string(id)
}

// GeneratePairingCode returns a 6-digit human-enterable pairing code.
func GeneratePairingCode() string {
	n, _ := rand.Int(rand.Reader, big.NewInt(900000))
	return strconv.FormatInt(n.Int64()+100000, 10)
}

func randomHex(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}

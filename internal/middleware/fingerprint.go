package middleware

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gin-gonic/gin"
)

const FingerprintKey = "device_fingerprint"

// Fingerprint derives a stable identifier for the requesting device from its
// headers and IP, and attaches it to the context. The hash goes into
// REGISTER_REQUEST token claims so the registration step is bound to the
// device that started it.
func Fingerprint() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := sha256.New()
		h.Write([]byte(c.Request.UserAgent()))
		h.Write([]byte(c.GetHeader("Accept-Language")))
		h.Write([]byte(c.GetHeader("Accept-Encoding")))
		h.Write([]byte(ClientIP(c)))
		c.Set(FingerprintKey, hex.EncodeToString(h.Sum(nil)))
		c.Next()
	}
}

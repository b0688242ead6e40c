// Package share implements external file shares protected by a
// one-time password. The OTP is generated at creation, returned to the
// caller for out-of-band delivery, and stored only as a bcrypt hash.
package share

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Expiry bounds for new shares. Requests outside the range are clamped,
// not rejected.
const (
	MinExpiry = 1 * time.Hour
	MaxExpiry = 720 * time.Hour // 30 days
)

// Share is an external share of one file. Access requires the share ID
// plus the OTP; each successful access consumes one download.
type Share struct {
	ID                 string
	CompanyID          int64
	FileID             int64
	CreatedByUserID    string
	RecipientEmail     string
	OTPHash            string
	MaxDownloads       int
	RemainingDownloads int
	ExpiresAt          time.Time
	RevokedAt          *time.Time
	CreatedAt          time.Time
}

// Usable reports whether the share still grants access at the given
// instant.
func (s *Share) Usable(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt) && s.RemainingDownloads > 0
}

// ClampExpiry bounds a requested share lifetime to [MinExpiry, MaxExpiry].
func ClampExpiry(d time.Duration) time.Duration {
	if d < MinExpiry {
		return MinExpiry
	}
	if d > MaxExpiry {
		return MaxExpiry
	}
	return d
}

// GenerateOTP returns a random 6-digit one-time password, zero-padded.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

package models

import (
	"time"

	"github.com/filegrid/filegrid/internal/share"
)

// Share is the API view of an external share. The OTP hash never leaves
// the service.
type Share struct {
	ID                 string     `json:"id"`
	FileID             int64      `json:"fileId"`
	CreatedBy          string     `json:"createdBy"`
	RecipientEmail     string     `json:"recipientEmail"`
	MaxDownloads       int        `json:"maxDownloads"`
	RemainingDownloads int        `json:"remainingDownloads"`
	ExpiresAt          time.Time  `json:"expiresAt"`
	RevokedAt          *time.Time `json:"revokedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// ShareFromDomain converts a domain share to its API view.
func ShareFromDomain(s *share.Share) Share {
	return Share{
		ID:                 s.ID,
		FileID:             s.FileID,
		CreatedBy:          s.CreatedByUserID,
		RecipientEmail:     s.RecipientEmail,
		MaxDownloads:       s.MaxDownloads,
		RemainingDownloads: s.RemainingDownloads,
		ExpiresAt:          s.ExpiresAt,
		RevokedAt:          s.RevokedAt,
		CreatedAt:          s.CreatedAt,
	}
}

// CreateShareRequest mints an external share on a file.
type CreateShareRequest struct {
	RecipientEmail string `json:"recipientEmail"`

	// ExpiresInHours is clamped to [1, 720]. Zero means the minimum.
	ExpiresInHours int `json:"expiresInHours,omitempty"`

	// MaxDownloads defaults to 1.
	MaxDownloads int `json:"maxDownloads,omitempty"`

	GdprOverride bool `json:"gdprOverride,omitempty"`
}

// CreateShareResponse returns the share and its one-time password. The
// OTP appears here exactly once, for out-of-band delivery.
type CreateShareResponse struct {
	Share Share  `json:"share"`
	Otp   string `json:"otp"`
}

// AccessShareRequest redeems a share with its one-time password.
type AccessShareRequest struct {
	Otp string `json:"otp"`
}

// AccessShareResponse is what an external recipient sees on successful
// redemption.
type AccessShareResponse struct {
	FileName    string `json:"fileName"`
	SizeBytes   int64  `json:"sizeBytes"`
	ContentType string `json:"contentType,omitempty"`
	DownloadURL string `json:"downloadUrl"`
}

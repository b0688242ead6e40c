package models

import (
	"time"

	"github.com/filegrid/filegrid/internal/identity"
)

// APIKey is the API view of a key record. Only the hash is stored, so
// the secret never appears here.
type APIKey struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	DepartmentID *int64     `json:"departmentId,omitempty"`
	CreatedBy    string     `json:"createdBy"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	LastUsedAt   *time.Time `json:"lastUsedAt,omitempty"`
	RevokedAt    *time.Time `json:"revokedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// APIKeyFromDomain converts a domain key to its API view.
func APIKeyFromDomain(k *identity.APIKey) APIKey {
	return APIKey{
		ID:           k.ID,
		Name:         k.Name,
		Role:         string(k.Role),
		DepartmentID: k.DepartmentID,
		CreatedBy:    k.CreatedByUserID,
		ExpiresAt:    k.ExpiresAt,
		LastUsedAt:   k.LastUsedAt,
		RevokedAt:    k.RevokedAt,
		CreatedAt:    k.CreatedAt,
	}
}

// CreateAPIKeyRequest mints a new API key.
type CreateAPIKeyRequest struct {
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	DepartmentID *int64     `json:"departmentId,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

// CreateAPIKeyResponse returns the key record and the raw secret. The
// secret appears here exactly once.
type CreateAPIKeyResponse struct {
	APIKey APIKey `json:"apiKey"`
	Key    string `json:"key"`
}

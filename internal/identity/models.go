// Package identity resolves the acting principal for every request.
//
// Two credential kinds are accepted: short-lived JWT session tokens
// carrying the user's role and tenant scope, and long-lived API keys
// for service integrations. API keys are stored as SHA-256 hashes; the
// raw key is shown exactly once at creation.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/filegrid/filegrid/internal/access"
)

// API key format constants.
const (
	// APIKeyPrefix starts every raw key so leaked keys are greppable.
	APIKeyPrefix = "fgk_"

	// apiKeySecretLength is the byte length of the key's random part.
	apiKeySecretLength = 32
)

// User is an account within a company.
type User struct {
	ID           string
	CompanyID    int64
	DepartmentID *int64
	Email        string
	Name         string
	Role         access.Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor builds the access-control principal for this user.
func (u *User) Actor() access.Actor {
	return access.Actor{
		ID:           u.ID,
		Role:         u.Role,
		CompanyID:    u.CompanyID,
		DepartmentID: u.DepartmentID,
	}
}

// APIKey is a stored integration credential. DepartmentID non-nil
// scopes the key to one department: the effective role is downgraded to
// DEPARTMENT_MANAGER of that department regardless of the key's role.
type APIKey struct {
	ID              int64
	CompanyID       int64
	DepartmentID    *int64
	Name            string
	KeyHash         string
	Role            access.Role
	CreatedByUserID string
	ExpiresAt       *time.Time
	LastUsedAt      *time.Time
	RevokedAt       *time.Time
	CreatedAt       time.Time
}

// Expired reports whether the key has passed its expiry at the given
// instant. Keys without an expiry never expire.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// Actor builds the principal a request authenticated with this key
// acts as. Department-scoped keys act as a manager of that department.
func (k *APIKey) Actor() access.Actor {
	role := k.Role
	if k.DepartmentID != nil {
		role = access.RoleDepartmentManager
	}
	return access.Actor{
		ID:           fmt.Sprintf("apikey:%d", k.ID),
		Role:         role,
		CompanyID:    k.CompanyID,
		DepartmentID: k.DepartmentID,
	}
}

// GenerateAPIKey creates a new raw key and its storage hash.
func GenerateAPIKey() (raw, hash string, err error) {
	secret := make([]byte, apiKeySecretLength)
	if _, err := rand.Read(secret); err != nil {
		return "", "", fmt.Errorf("generating api key: %w", err)
	}
	raw = APIKeyPrefix + base64.RawURLEncoding.EncodeToString(secret)
	return raw, HashAPIKey(raw), nil
}

// HashAPIKey returns the hex SHA-256 of a raw key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// LooksLikeAPIKey reports whether a credential string is an API key
// rather than a JWT.
func LooksLikeAPIKey(credential string) bool {
	return strings.HasPrefix(credential, APIKeyPrefix)
}

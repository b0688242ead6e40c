package identity

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/filegrid/filegrid/internal/access"
)

// SessionTokenExpiry is how long session tokens are valid. Short expiry
// limits exposure if a token leaks; clients re-authenticate through the
// session endpoint.
const SessionTokenExpiry = 1 * time.Hour

// Predefined JWT errors.
var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrTokenExpired = errors.New("session token has expired")
)

// Claims are the claims carried in session tokens. Role and tenant
// scope ride in the token so request authorization needs no user
// lookup.
type Claims struct {
	jwt.RegisteredClaims

	UserID       string `json:"uid"`
	Role         string `json:"role"`
	CompanyID    int64  `json:"cid"`
	DepartmentID *int64 `json:"did,omitempty"`
}

// Actor builds the access-control principal from validated claims.
func (c *Claims) Actor() access.Actor {
	return access.Actor{
		ID:           c.UserID,
		Role:         access.Role(c.Role),
		CompanyID:    c.CompanyID,
		DepartmentID: c.DepartmentID,
	}
}

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	// SigningKey is the secret key used to sign tokens.
	SigningKey string

	// Issuer is the issuer claim (e.g., "https://api.filegrid.io").
	Issuer string

	// Audience is the audience claim (e.g., "filegrid-api").
	Audience string
}

// JWTService creates and validates session tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	return &JWTService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
	}
}

// GenerateSessionToken creates a new session token for the user.
func (s *JWTService) GenerateSessionToken(u *User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(SessionTokenExpiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   u.ID,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        generateTokenID(),
		},
		UserID:       u.ID,
		Role:         string(u.Role),
		CompanyID:    u.CompanyID,
		DepartmentID: u.DepartmentID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ValidateSessionToken validates a token and returns its claims.
func (s *JWTService) ValidateSessionToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !access.Role(claims.Role).Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}

func generateTokenID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}

package identity

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/audit"
)

// Service errors.
var (
	// ErrForbidden means the actor may not manage API keys.
	ErrForbidden = errors.New("forbidden")

	// ErrInactiveUser means the account is deactivated.
	ErrInactiveUser = errors.New("user is inactive")

	// ErrInvalidCredential means the presented credential did not
	// resolve to a principal. Revoked and expired keys collapse into
	// this error so callers cannot probe key state.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Service resolves credentials to actors and manages API keys.
type Service struct {
	repo   Repository
	jwt    *JWTService
	audit  *audit.Recorder
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository, jwtService *JWTService, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, jwt: jwtService, audit: recorder, logger: logger, now: time.Now}
}

// CreateSession issues a session token for an active user.
func (s *Service) CreateSession(ctx context.Context, userID string) (string, time.Time, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return "", time.Time{}, err
	}
	if !u.Active {
		return "", time.Time{}, ErrInactiveUser
	}

	token, expiresAt, err := s.jwt.GenerateSessionToken(u)
	if err != nil {
		return "", time.Time{}, err
	}

	s.audit.Record(ctx, audit.Entry{
		CompanyID:   u.CompanyID,
		ActorUserID: &u.ID,
		EventType:   audit.EventUserLogin,
		TargetType:  audit.TargetUser,
	})
	return token, expiresAt, nil
}

// EndSession records a logout. Session tokens stay valid until expiry;
// the audit trail is what compliance reviews need.
func (s *Service) EndSession(ctx context.Context, actor access.Actor) {
	s.audit.Record(ctx, audit.Entry{
		CompanyID:   actor.CompanyID,
		ActorUserID: &actor.ID,
		EventType:   audit.EventUserLogout,
		TargetType:  audit.TargetUser,
	})
}

// Resolve turns a bearer credential into an actor. Both session tokens
// and API keys are accepted.
func (s *Service) Resolve(ctx context.Context, credential string) (access.Actor, error) {
	if LooksLikeAPIKey(credential) {
		return s.resolveAPIKey(ctx, credential)
	}

	claims, err := s.jwt.ValidateSessionToken(credential)
	if err != nil {
		return access.Actor{}, err
	}
	return claims.Actor(), nil
}

func (s *Service) resolveAPIKey(ctx context.Context, raw string) (access.Actor, error) {
	k, err := s.repo.GetAPIKeyByHash(ctx, HashAPIKey(raw))
	if err != nil {
		if errors.Is(err, ErrAPIKeyNotFound) {
			return access.Actor{}, ErrInvalidCredential
		}
		return access.Actor{}, err
	}
	if k.RevokedAt != nil || k.Expired(s.now()) {
		return access.Actor{}, ErrInvalidCredential
	}

	if err := s.repo.TouchAPIKey(ctx, k.ID, s.now()); err != nil {
		// Last-used is best-effort bookkeeping.
		s.logger.Warn().Err(err).Int64("api_key_id", k.ID).Msg("failed to touch api key")
	}
	return k.Actor(), nil
}

// canManageKeys limits API key administration to company admins.
func canManageKeys(actor access.Actor) bool {
	return actor.Role == access.RoleSuperAdmin || actor.Role == access.RoleCompanyAdmin
}

// APIKeyInput carries user-supplied key fields.
type APIKeyInput struct {
	Name         string
	Role         access.Role
	DepartmentID *int64
	ExpiresAt    *time.Time
}

// CreateAPIKey mints a new key for the actor's company. The raw key is
// returned once and never stored.
func (s *Service) CreateAPIKey(ctx context.Context, actor access.Actor, in APIKeyInput) (*APIKey, string, error) {
	if !canManageKeys(actor) {
		return nil, "", ErrForbidden
	}
	if !in.Role.Valid() {
		return nil, "", errors.New("invalid role")
	}

	raw, hash, err := GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}

	k := &APIKey{
		CompanyID:       actor.CompanyID,
		DepartmentID:    in.DepartmentID,
		Name:            in.Name,
		KeyHash:         hash,
		Role:            in.Role,
		CreatedByUserID: actor.ID,
		ExpiresAt:       in.ExpiresAt,
	}
	if err := s.repo.CreateAPIKey(ctx, k); err != nil {
		return nil, "", err
	}
	return k, raw, nil
}

// ListAPIKeys returns the company's keys.
func (s *Service) ListAPIKeys(ctx context.Context, actor access.Actor) ([]APIKey, error) {
	if !canManageKeys(actor) {
		return nil, ErrForbidden
	}
	return s.repo.ListAPIKeys(ctx, actor.CompanyID)
}

// RevokeAPIKey revokes one of the company's keys.
func (s *Service) RevokeAPIKey(ctx context.Context, actor access.Actor, id int64) error {
	if !canManageKeys(actor) {
		return ErrForbidden
	}
	return s.repo.RevokeAPIKey(ctx, actor.CompanyID, id, s.now())
}

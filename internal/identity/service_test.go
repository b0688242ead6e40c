package identity_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/audit"
	"github.com/filegrid/filegrid/internal/identity"
)

func newService(t *testing.T) (*identity.Service, *identity.InMemoryRepository, *audit.InMemoryRepository) {
	t.Helper()

	repo := identity.NewInMemoryRepository()
	auditLog := audit.NewInMemoryRepository()
	recorder := audit.NewRecorder(auditLog, zerolog.Nop())
	jwtService := identity.NewJWTService(identity.JWTConfig{
		SigningKey: "test-signing-key",
		Issuer:     "https://api.test",
		Audience:   "filegrid-api",
	})
	return identity.NewService(repo, jwtService, recorder, zerolog.Nop()), repo, auditLog
}

func seedUser(t *testing.T, repo *identity.InMemoryRepository, role access.Role, active bool) *identity.User {
	t.Helper()

	u := &identity.User{
		ID:        "usr-" + strings.ToLower(string(role)),
		CompanyID: 1,
		Email:     strings.ToLower(string(role)) + "@acme.test",
		Name:      "Test User",
		Role:      role,
		Active:    active,
	}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, repo, auditLog := newService(t)
	deptID := int64(4)
	u := seedUser(t, repo, access.RoleDepartmentManager, true)
	u.DepartmentID = &deptID
	require.NoError(t, repo.CreateUser(ctx, u))

	token, expiresAt, err := svc.CreateSession(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(identity.SessionTokenExpiry), expiresAt, time.Minute)

	actor, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, actor.ID)
	assert.Equal(t, access.RoleDepartmentManager, actor.Role)
	assert.Equal(t, int64(1), actor.CompanyID)
	require.NotNil(t, actor.DepartmentID)
	assert.Equal(t, deptID, *actor.DepartmentID)

	entries, err := auditLog.List(ctx, audit.Query{CompanyID: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.EventUserLogin, entries[0].EventType)
}

func TestCreateSessionInactiveUser(t *testing.T) {
	svc, repo, _ := newService(t)
	u := seedUser(t, repo, access.RoleEmployee, false)

	_, _, err := svc.CreateSession(context.Background(), u.ID)
	assert.ErrorIs(t, err, identity.ErrInactiveUser)
}

func TestResolveRejectsTamperedToken(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newService(t)
	u := seedUser(t, repo, access.RoleEmployee, true)

	token, _, err := svc.CreateSession(ctx, u.ID)
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, token+"x")
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestAPIKeyLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	admin := access.Actor{ID: "usr-admin", Role: access.RoleCompanyAdmin, CompanyID: 1}

	k, raw, err := svc.CreateAPIKey(ctx, admin, identity.APIKeyInput{
		Name: "ci-integration",
		Role: access.RoleCompanyAdmin,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, identity.APIKeyPrefix))
	assert.NotContains(t, k.KeyHash, raw)

	actor, err := svc.Resolve(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, access.RoleCompanyAdmin, actor.Role)
	assert.Equal(t, int64(1), actor.CompanyID)

	keys, err := svc.ListAPIKeys(ctx, admin)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.NotNil(t, keys[0].LastUsedAt)

	require.NoError(t, svc.RevokeAPIKey(ctx, admin, k.ID))
	_, err = svc.Resolve(ctx, raw)
	assert.ErrorIs(t, err, identity.ErrInvalidCredential)
}

func TestAPIKeyDepartmentScopeDowngradesRole(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	admin := access.Actor{ID: "usr-admin", Role: access.RoleCompanyAdmin, CompanyID: 1}
	deptID := int64(7)

	_, raw, err := svc.CreateAPIKey(ctx, admin, identity.APIKeyInput{
		Name:         "hr-export",
		Role:         access.RoleCompanyAdmin,
		DepartmentID: &deptID,
	})
	require.NoError(t, err)

	actor, err := svc.Resolve(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, access.RoleDepartmentManager, actor.Role)
	require.NotNil(t, actor.DepartmentID)
	assert.Equal(t, deptID, *actor.DepartmentID)
}

func TestExpiredAPIKeyRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	admin := access.Actor{ID: "usr-admin", Role: access.RoleCompanyAdmin, CompanyID: 1}
	past := time.Now().Add(-time.Hour)

	_, raw, err := svc.CreateAPIKey(ctx, admin, identity.APIKeyInput{
		Name:      "stale",
		Role:      access.RoleAuditor,
		ExpiresAt: &past,
	})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, raw)
	assert.ErrorIs(t, err, identity.ErrInvalidCredential)
}

func TestAPIKeyManagementRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	dpoActor := access.Actor{ID: "usr-dpo", Role: access.RoleDPO, CompanyID: 1}

	_, _, err := svc.CreateAPIKey(ctx, dpoActor, identity.APIKeyInput{Name: "x", Role: access.RoleDPO})
	assert.ErrorIs(t, err, identity.ErrForbidden)
	_, err = svc.ListAPIKeys(ctx, dpoActor)
	assert.ErrorIs(t, err, identity.ErrForbidden)
}

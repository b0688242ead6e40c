package gdpr_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/audit"
	"github.com/filegrid/filegrid/internal/gdpr"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name         string
		risky        bool
		role         access.Role
		override     bool
		wantState    gdpr.State
		wantOverride bool
	}{
		{
			name:      "not risky always allowed",
			risky:     false,
			role:      access.RoleEmployee,
			override:  false,
			wantState: gdpr.StateAllowed,
		},
		{
			name:      "risky without override blocked",
			risky:     true,
			role:      access.RoleCompanyAdmin,
			override:  false,
			wantState: gdpr.StateBlocked,
		},
		{
			name:      "risky with override but weak role blocked",
			risky:     true,
			role:      access.RoleEmployee,
			override:  true,
			wantState: gdpr.StateBlocked,
		},
		{
			name:      "manager cannot override",
			risky:     true,
			role:      access.RoleDepartmentManager,
			override:  true,
			wantState: gdpr.StateBlocked,
		},
		{
			name:         "dpo override allowed",
			risky:        true,
			role:         access.RoleDPO,
			override:     true,
			wantState:    gdpr.StateAllowed,
			wantOverride: true,
		},
		{
			name:         "company admin override allowed",
			risky:        true,
			role:         access.RoleCompanyAdmin,
			override:     true,
			wantState:    gdpr.StateAllowed,
			wantOverride: true,
		},
		{
			name:         "super admin override allowed",
			risky:        true,
			role:         access.RoleSuperAdmin,
			override:     true,
			wantState:    gdpr.StateAllowed,
			wantOverride: true,
		},
		{
			name:      "override flag without risk is a plain allow",
			risky:     false,
			role:      access.RoleDPO,
			override:  true,
			wantState: gdpr.StateAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gdpr.Decide(tt.risky, tt.role, tt.override)
			assert.Equal(t, tt.wantState, d.State)
			assert.Equal(t, tt.wantOverride, d.OverrideUsed)
		})
	}
}

func TestRiskHelpers(t *testing.T) {
	assert.False(t, gdpr.DeleteRisky(gdpr.RiskUnknown))
	assert.False(t, gdpr.DeleteRisky(gdpr.RiskNoPII))
	assert.False(t, gdpr.DeleteRisky(gdpr.RiskPossiblePII))
	assert.True(t, gdpr.DeleteRisky(gdpr.RiskConfirmedPII))

	assert.False(t, gdpr.ShareRisky(gdpr.RiskUnknown))
	assert.False(t, gdpr.ShareRisky(gdpr.RiskNoPII))
	assert.True(t, gdpr.ShareRisky(gdpr.RiskPossiblePII))
	assert.True(t, gdpr.ShareRisky(gdpr.RiskConfirmedPII))
}

func newGate() (*gdpr.Gate, *audit.InMemoryRepository) {
	repo := audit.NewInMemoryRepository()
	recorder := audit.NewRecorder(repo, zerolog.Nop())
	return gdpr.NewGate(recorder), repo
}

func TestGateBlockedFileDeleteIsAudited(t *testing.T) {
	gate, repo := newGate()
	ctx := context.Background()

	actor := access.Actor{ID: "emp-1", Role: access.RoleEmployee, CompanyID: 1}
	file := gdpr.FileTarget{ID: 42, CompanyID: 1, Name: "payroll.xlsx", Risk: gdpr.RiskConfirmedPII}

	d, err := gate.CheckFileDelete(ctx, actor, file, false)
	require.Error(t, err)
	assert.Equal(t, gdpr.StateBlocked, d.State)

	var blocked *gdpr.BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, gdpr.ActionDeleteFile, blocked.Action)
	assert.Equal(t, "CONFIRMED_PII", blocked.Reason)
	// Employees must not be told about the override mechanism.
	assert.NotContains(t, blocked.Message, "gdprOverride")

	entries, err := repo.List(ctx, audit.Query{CompanyID: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.EventGdprDeleteBlocked, entries[0].EventType)
	assert.Equal(t, audit.TargetFile, entries[0].TargetType)
	assert.Equal(t, "payroll.xlsx", entries[0].Metadata["fileName"])
	assert.Equal(t, true, entries[0].Metadata["blocked"])
}

func TestGateBlockedMessageRevealsOverrideToPrivilegedRoles(t *testing.T) {
	gate, _ := newGate()
	ctx := context.Background()

	file := gdpr.FileTarget{ID: 1, CompanyID: 1, Name: "cv.pdf", Risk: gdpr.RiskConfirmedPII}

	dpo := access.Actor{ID: "dpo-1", Role: access.RoleDPO, CompanyID: 1}
	_, err := gate.CheckFileDelete(ctx, dpo, file, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gdprOverride=true")
}

func TestGateFileDeleteOverride(t *testing.T) {
	gate, repo := newGate()
	ctx := context.Background()

	admin := access.Actor{ID: "adm-1", Role: access.RoleCompanyAdmin, CompanyID: 1}
	file := gdpr.FileTarget{ID: 7, CompanyID: 1, Name: "cv.pdf", Risk: gdpr.RiskConfirmedPII}

	d, err := gate.CheckFileDelete(ctx, admin, file, true)
	require.NoError(t, err)
	assert.Equal(t, gdpr.StateAllowed, d.State)
	assert.True(t, d.OverrideUsed)

	// Allowed paths write no gate event; the mutation logs its own.
	entries, err := repo.List(ctx, audit.Query{CompanyID: 1})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGateFolderDelete(t *testing.T) {
	gate, repo := newGate()
	ctx := context.Background()

	mgr := access.Actor{ID: "mgr-1", Role: access.RoleDepartmentManager, CompanyID: 3}
	folder := gdpr.FolderTarget{ID: 9, CompanyID: 3, Name: "HR", ContainsPersonalData: true}

	_, err := gate.CheckFolderDelete(ctx, mgr, folder, true)
	require.Error(t, err)

	entries, err := repo.List(ctx, audit.Query{CompanyID: 3})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.EventGdprDeleteBlocked, entries[0].EventType)
	assert.Equal(t, audit.TargetFolder, entries[0].TargetType)
	assert.Equal(t, "containsPersonalData", entries[0].Metadata["reason"])

	clean := gdpr.FolderTarget{ID: 10, CompanyID: 3, Name: "Public"}
	d, err := gate.CheckFolderDelete(ctx, mgr, clean, false)
	require.NoError(t, err)
	assert.Equal(t, gdpr.StateAllowed, d.State)
}

func TestGateFileSharePossiblePIIBlocks(t *testing.T) {
	gate, repo := newGate()
	ctx := context.Background()

	emp := access.Actor{ID: "emp-1", Role: access.RoleEmployee, CompanyID: 1}
	file := gdpr.FileTarget{ID: 5, CompanyID: 1, Name: "list.csv", Risk: gdpr.RiskPossiblePII}

	_, err := gate.CheckFileShare(ctx, emp, file, false)
	require.Error(t, err)

	entries, err := repo.List(ctx, audit.Query{CompanyID: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.EventGdprShareBlocked, entries[0].EventType)
	assert.Equal(t, "POSSIBLE_PII", entries[0].Metadata["gdprRiskLevel"])

	// Deleting the same file is not gated: POSSIBLE_PII only blocks shares.
	d, err := gate.CheckFileDelete(ctx, emp, file, false)
	require.NoError(t, err)
	assert.Equal(t, gdpr.StateAllowed, d.State)
}

func TestOverrideMetadata(t *testing.T) {
	plain := gdpr.Decision{State: gdpr.StateAllowed}
	meta := gdpr.OverrideMetadata(map[string]any{"fileName": "a"}, plain)
	assert.NotContains(t, meta, "overrideUsed")

	used := gdpr.Decision{State: gdpr.StateAllowed, OverrideUsed: true}
	meta = gdpr.OverrideMetadata(nil, used)
	assert.Equal(t, true, meta["overrideUsed"])
}

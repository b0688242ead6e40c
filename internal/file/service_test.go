package file_test

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/audit"
	"github.com/filegrid/filegrid/internal/file"
	"github.com/filegrid/filegrid/internal/folder"
	"github.com/filegrid/filegrid/internal/gdpr"
)

type fixture struct {
	files    *file.InMemoryRepository
	folders  *folder.Service
	auditLog *audit.InMemoryRepository
	svc      *file.Service
}

func newFixture() *fixture {
	logger := zerolog.New(io.Discard)
	auditLog := audit.NewInMemoryRepository()
	recorder := audit.NewRecorder(auditLog, logger)
	gate := gdpr.NewGate(recorder)
	files := file.NewInMemoryRepository()
	folders := folder.NewService(folder.NewInMemoryRepository(), files, gate, recorder, logger)
	return &fixture{
		files:    files,
		folders:  folders,
		auditLog: auditLog,
		svc:      file.NewService(files, folders, gate, recorder, logger),
	}
}

func admin(companyID int64) access.Actor {
	return access.Actor{ID: "usr-admin", Role: access.RoleCompanyAdmin, CompanyID: companyID}
}

func employee(id string, companyID int64, departmentID *int64) access.Actor {
	return access.Actor{ID: id, Role: access.RoleEmployee, CompanyID: companyID, DepartmentID: departmentID}
}

func i64(v int64) *int64 { return &v }

func (fx *fixture) folderFor(t *testing.T, actor access.Actor, name string, departmentID *int64) *folder.Folder {
	t.Helper()
	f, err := fx.folders.Create(context.Background(), actor, folder.CreateInput{
		Name:             name,
		DepartmentID:     departmentID,
		IsDepartmentRoot: departmentID != nil,
	})
	require.NoError(t, err)
	return f
}

// grantWrite gives a user an overlay write grant on the folder, standing
// in for the usual collaboration setup done by an admin.
func (fx *fixture) grantWrite(t *testing.T, granter access.Actor, folderID int64, userID string) {
	t.Helper()
	canWrite := true
	_, err := fx.folders.UpsertPermission(context.Background(), granter, folderID, access.SubjectUser, userID, folder.PermissionFlags{CanWrite: &canWrite})
	require.NoError(t, err)
}

func (fx *fixture) upload(t *testing.T, actor access.Actor, folderID int64, name string) *file.File {
	t.Helper()
	f, err := fx.svc.RegisterUpload(context.Background(), actor, file.UploadInput{
		FolderID:    folderID,
		Name:        name,
		SizeBytes:   1024,
		ContentType: "application/pdf",
		StoragePath: "blobs/" + name,
	})
	require.NoError(t, err)
	return f
}

func TestRegisterUploadInitialState(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	actor := admin(1)

	dir := fx.folderFor(t, actor, "legal", i64(4))
	f := fx.upload(t, actor, dir.ID, "Contract.PDF")

	assert.Equal(t, file.DeletionActive, f.DeletionStatus)
	assert.Equal(t, file.MalwarePending, f.MalwareStatus)
	assert.Equal(t, gdpr.RiskUnknown, f.GdprRiskLevel)
	assert.Equal(t, ".pdf", f.Extension)
	require.NotNil(t, f.DepartmentID)
	assert.Equal(t, int64(4), *f.DepartmentID)

	eventType := audit.EventFileUpload
	entries, err := fx.auditLog.List(ctx, audit.Query{CompanyID: 1, EventType: &eventType})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, f.ID, *entries[0].TargetID)
}

func TestRegisterUploadRequiresWritableFolder(t *testing.T) {
	fx := newFixture()
	adminActor := admin(1)

	dir := fx.folderFor(t, adminActor, "finance", i64(4))
	outsider := employee("usr-o", 1, i64(2))

	_, err := fx.svc.RegisterUpload(context.Background(), outsider, file.UploadInput{
		FolderID: dir.ID,
		Name:     "sneaky.txt",
	})
	assert.ErrorIs(t, err, file.ErrForbidden)
}

func TestRenamePreservesExtension(t *testing.T) {
	fx := newFixture()
	actor := admin(1)
	dir := fx.folderFor(t, actor, "docs", nil)
	f := fx.upload(t, actor, dir.ID, "draft.pdf")

	renamed, err := fx.svc.Rename(context.Background(), actor, f.ID, "contract-signed")
	require.NoError(t, err)
	assert.Equal(t, "contract-signed.pdf", renamed.Name)

	// A new name that already carries the extension is left alone
	renamed, err = fx.svc.Rename(context.Background(), actor, f.ID, "Final.PDF")
	require.NoError(t, err)
	assert.Equal(t, "Final.PDF", renamed.Name)
}

func TestMoveInheritsTargetDepartment(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	actor := admin(1)

	src := fx.folderFor(t, actor, "sales", i64(7))
	dst := fx.folderFor(t, actor, "eng", i64(8))
	f := fx.upload(t, actor, src.ID, "spec.md")

	_, err := fx.svc.Move(ctx, actor, f.ID, src.ID)
	assert.ErrorIs(t, err, file.ErrSameFolder)

	moved, err := fx.svc.Move(ctx, actor, f.ID, dst.ID)
	require.NoError(t, err)
	assert.Equal(t, dst.ID, moved.FolderID)
	require.NotNil(t, moved.DepartmentID)
	assert.Equal(t, int64(8), *moved.DepartmentID)
}

func TestDepartmentGrantsReadNotWrite(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	adminActor := admin(1)

	dir := fx.folderFor(t, adminActor, "sales", i64(7))
	owner := employee("usr-owner", 1, i64(7))
	colleague := employee("usr-peer", 1, i64(7))
	fx.grantWrite(t, adminActor, dir.ID, owner.ID)

	f := fx.upload(t, owner, dir.ID, "leads.csv")

	// Same department: reading works
	got, err := fx.svc.Get(ctx, colleague, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)

	// But not renaming or deleting
	_, err = fx.svc.Rename(ctx, colleague, f.ID, "mine")
	assert.ErrorIs(t, err, file.ErrForbidden)
	err = fx.svc.Delete(ctx, colleague, f.ID, false)
	assert.ErrorIs(t, err, file.ErrForbidden)

	// The creator can do both
	_, err = fx.svc.Rename(ctx, owner, f.ID, "q3-leads")
	require.NoError(t, err)
	require.NoError(t, fx.svc.Delete(ctx, owner, f.ID, false))
}

func TestDeleteConfirmedPIIRequiresOverride(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	actor := admin(1)

	dir := fx.folderFor(t, actor, "hr", nil)
	f := fx.upload(t, actor, dir.ID, "cv.pdf")
	require.NoError(t, fx.svc.SetRiskLevel(ctx, actor, f.ID, gdpr.RiskConfirmedPII))

	var blocked *gdpr.BlockedError
	err := fx.svc.Delete(ctx, actor, f.ID, false)
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, gdpr.ActionDeleteFile, blocked.Action)

	// The blocked attempt is on the audit trail
	eventType := audit.EventGdprDeleteBlocked
	entries, err := fx.auditLog.List(ctx, audit.Query{CompanyID: 1, EventType: &eventType})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// Override-capable actor may push through; the override is audited
	require.NoError(t, fx.svc.Delete(ctx, actor, f.ID, true))

	eventType = audit.EventFileDelete
	entries, err = fx.auditLog.List(ctx, audit.Query{CompanyID: 1, EventType: &eventType})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, true, entries[0].Metadata["overrideUsed"])

	got, err := fx.files.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, file.DeletionSoftDeleted, got.DeletionStatus)
}

func TestDeleteBlockedForNonOverrideRole(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	adminActor := admin(1)

	dir := fx.folderFor(t, adminActor, "hr", i64(3))
	owner := employee("usr-e", 1, i64(3))
	fx.grantWrite(t, adminActor, dir.ID, owner.ID)
	f := fx.upload(t, owner, dir.ID, "payroll.xlsx")
	require.NoError(t, fx.svc.SetRiskLevel(ctx, owner, f.ID, gdpr.RiskConfirmedPII))

	// Employees cannot override even when they ask for it
	var blocked *gdpr.BlockedError
	err := fx.svc.Delete(ctx, owner, f.ID, true)
	require.ErrorAs(t, err, &blocked)
	// And the denial does not mention the override escape hatch
	assert.NotContains(t, blocked.Message, "gdprOverride")
}

func TestSetRiskLevelManualValuesOnly(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	actor := admin(1)
	dir := fx.folderFor(t, actor, "docs", nil)
	f := fx.upload(t, actor, dir.ID, "notes.txt")

	// Intermediate scan states cannot be set by hand
	err := fx.svc.SetRiskLevel(ctx, actor, f.ID, gdpr.RiskPossiblePII)
	require.Error(t, err)
	err = fx.svc.SetRiskLevel(ctx, actor, f.ID, gdpr.RiskUnknown)
	require.Error(t, err)

	require.NoError(t, fx.svc.SetRiskLevel(ctx, actor, f.ID, gdpr.RiskNoPII))
	got, err := fx.files.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, gdpr.RiskNoPII, got.GdprRiskLevel)
}

func TestRecordDownloadRefusesInfectedFile(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	actor := admin(1)
	dir := fx.folderFor(t, actor, "inbox", nil)
	f := fx.upload(t, actor, dir.ID, "attachment.zip")

	require.NoError(t, fx.files.SetMalwareStatus(ctx, f.ID, file.MalwareInfected))
	_, err := fx.svc.RecordDownload(ctx, actor, f.ID)
	assert.ErrorIs(t, err, file.ErrUnavailable)

	require.NoError(t, fx.files.SetMalwareStatus(ctx, f.ID, file.MalwareClean))
	got, err := fx.svc.RecordDownload(ctx, actor, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)

	eventType := audit.EventFileDownload
	entries, err := fx.auditLog.List(ctx, audit.Query{CompanyID: 1, EventType: &eventType})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMutationsRefuseDeletedFile(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	actor := admin(1)

	src := fx.folderFor(t, actor, "a", nil)
	dst := fx.folderFor(t, actor, "b", nil)
	f := fx.upload(t, actor, src.ID, "gone.txt")
	require.NoError(t, fx.svc.Delete(ctx, actor, f.ID, false))

	_, err := fx.svc.Rename(ctx, actor, f.ID, "back")
	assert.ErrorIs(t, err, file.ErrUnavailable)
	_, err = fx.svc.Move(ctx, actor, f.ID, dst.ID)
	assert.ErrorIs(t, err, file.ErrUnavailable)
	err = fx.svc.Delete(ctx, actor, f.ID, false)
	assert.ErrorIs(t, err, file.ErrUnavailable)
	_, err = fx.svc.RecordDownload(ctx, actor, f.ID)
	assert.ErrorIs(t, err, file.ErrUnavailable)
}

func TestCrossTenantFileHiddenAsNotFound(t *testing.T) {
	fx := newFixture()
	actor := admin(1)
	dir := fx.folderFor(t, actor, "private", nil)
	f := fx.upload(t, actor, dir.ID, "secret.txt")

	_, err := fx.svc.Get(context.Background(), admin(2), f.ID)
	assert.ErrorIs(t, err, file.ErrFileNotFound)
}

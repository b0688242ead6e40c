package worker_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filegrid/filegrid/internal/file"
	"github.com/filegrid/filegrid/internal/gdpr"
	"github.com/filegrid/filegrid/internal/worker"
)

type stubFlags struct {
	classificationDisabled bool
}

func (f stubFlags) AutoClassificationDisabled(context.Context) bool {
	return f.classificationDisabled
}

func seedFile(t *testing.T, files *file.InMemoryRepository) *file.File {
	t.Helper()

	f := &file.File{
		CompanyID:       1,
		FolderID:        1,
		Name:            "upload.docx",
		CreatedByUserID: "usr-1",
		GdprRiskLevel:   gdpr.RiskUnknown,
		MalwareStatus:   file.MalwarePending,
		DeletionStatus:  file.DeletionActive,
	}
	require.NoError(t, files.Create(context.Background(), f))
	return f
}

func TestApplyMalwareResult(t *testing.T) {
	ctx := context.Background()
	files := file.NewInMemoryRepository()
	f := seedFile(t, files)
	applier := worker.NewResultApplier(files, stubFlags{}, zerolog.Nop())

	require.NoError(t, applier.ApplyMalwareResult(ctx, f.ID, file.MalwareInfected))

	got, err := files.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, file.MalwareInfected, got.MalwareStatus)
}

func TestApplyMalwareResultRejectsBadVerdicts(t *testing.T) {
	ctx := context.Background()
	files := file.NewInMemoryRepository()
	f := seedFile(t, files)
	applier := worker.NewResultApplier(files, stubFlags{}, zerolog.Nop())

	err := applier.ApplyMalwareResult(ctx, f.ID, file.MalwareStatus("SUSPICIOUS"))
	assert.ErrorIs(t, err, worker.ErrBadResult)

	// PENDING is the initial state, never a verdict.
	err = applier.ApplyMalwareResult(ctx, f.ID, file.MalwarePending)
	assert.ErrorIs(t, err, worker.ErrBadResult)
}

func TestApplyClassification(t *testing.T) {
	ctx := context.Background()
	files := file.NewInMemoryRepository()
	f := seedFile(t, files)
	applier := worker.NewResultApplier(files, stubFlags{}, zerolog.Nop())

	require.NoError(t, applier.ApplyClassification(ctx, f.ID, gdpr.RiskConfirmedPII))

	got, err := files.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, gdpr.RiskConfirmedPII, got.GdprRiskLevel)
}

func TestApplyClassificationHonorsKillSwitch(t *testing.T) {
	ctx := context.Background()
	files := file.NewInMemoryRepository()
	f := seedFile(t, files)
	applier := worker.NewResultApplier(files, stubFlags{classificationDisabled: true}, zerolog.Nop())

	require.NoError(t, applier.ApplyClassification(ctx, f.ID, gdpr.RiskConfirmedPII))

	got, err := files.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, gdpr.RiskUnknown, got.GdprRiskLevel)
}

func TestMissingFileReportedGone(t *testing.T) {
	ctx := context.Background()
	files := file.NewInMemoryRepository()
	applier := worker.NewResultApplier(files, stubFlags{}, zerolog.Nop())

	err := applier.ApplyMalwareResult(ctx, 999, file.MalwareClean)
	assert.True(t, worker.IsFileGone(err))
}

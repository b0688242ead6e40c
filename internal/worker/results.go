// Package worker runs the background halves of the platform: the
// retention sweeper that queues expired files for erasure, and the
// consumer that applies malware-scan and PII-classification results
// published by the scanning pipeline.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/filegrid/filegrid/internal/file"
	"github.com/filegrid/filegrid/internal/gdpr"
)

// ErrBadResult marks a result payload that can never be applied, as
// opposed to a transient store failure.
var ErrBadResult = errors.New("unusable scan result")

// Flags are the kill switches the result applier consults.
type Flags interface {
	// AutoClassificationDisabled stops applying PII classifications.
	AutoClassificationDisabled(ctx context.Context) bool
}

// ResultApplier applies scan pipeline outcomes to file metadata.
type ResultApplier struct {
	files  file.Repository
	flags  Flags
	logger zerolog.Logger
}

// NewResultApplier creates a new result applier.
func NewResultApplier(files file.Repository, flags Flags, logger zerolog.Logger) *ResultApplier {
	return &ResultApplier{files: files, flags: flags, logger: logger}
}

// ApplyMalwareResult records a scan verdict on a file. Unknown verdicts
// and missing files are rejected; the caller decides redelivery.
func (a *ResultApplier) ApplyMalwareResult(ctx context.Context, fileID int64, status file.MalwareStatus) error {
	if !status.Valid() || status == file.MalwarePending {
		return fmt.Errorf("%w: malware verdict %q", ErrBadResult, status)
	}
	if err := a.files.SetMalwareStatus(ctx, fileID, status); err != nil {
		return err
	}
	a.logger.Info().
		Int64("file_id", fileID).
		Str("status", string(status)).
		Msg("applied malware scan result")
	return nil
}

// ApplyClassification records an automated PII risk classification. A
// no-op while the auto-classification kill switch is on.
func (a *ResultApplier) ApplyClassification(ctx context.Context, fileID int64, level gdpr.RiskLevel) error {
	if !level.Valid() {
		return fmt.Errorf("%w: risk level %q", ErrBadResult, level)
	}
	if a.flags != nil && a.flags.AutoClassificationDisabled(ctx) {
		a.logger.Debug().Int64("file_id", fileID).Msg("auto-classification disabled, dropping result")
		return nil
	}
	if err := a.files.SetRiskLevel(ctx, fileID, level); err != nil {
		return err
	}
	a.logger.Info().
		Int64("file_id", fileID).
		Str("risk_level", string(level)).
		Msg("applied pii classification")
	return nil
}

// IsFileGone reports whether an apply error means the file no longer
// exists, in which case redelivery is pointless.
func IsFileGone(err error) bool {
	return errors.Is(err, file.ErrFileNotFound)
}

package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// Recorder is the write-side facade handed to the rest of the application.
//
// Record is best-effort: an audit write failure is logged but never fails
// the business operation it describes. The one exception is erasure, where
// the proof and status flip must commit together; that path uses the
// repository inside its own transaction instead of going through Recorder.
type Recorder struct {
	repo   Repository
	logger zerolog.Logger
}

// NewRecorder creates a new Recorder.
func NewRecorder(repo Repository, logger zerolog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record appends an audit entry, swallowing persistence failures.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if err := r.repo.Append(ctx, &entry); err != nil {
		r.logger.Error().
			Err(err).
			Str("event_type", string(entry.EventType)).
			Int64("company_id", entry.CompanyID).
			Msg("failed to append audit log entry")
	}
}

// List returns entries matching the query, newest first.
func (r *Recorder) List(ctx context.Context, q Query) ([]Entry, error) {
	return r.repo.List(ctx, q)
}

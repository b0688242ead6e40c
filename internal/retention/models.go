// Package retention implements retention policies, policy assignment, and
// the provable-erasure pipeline.
//
// The pipeline's one hard invariant: a file never reaches ERASED without
// an erasure proof row existing first. Proof creation and the status flip
// commit in a single transaction, and a failed storage delete leaves the
// file in PENDING_ERASURE for a later retry.
package retention

import "time"

// Policy is a company's retention policy. DurationDays nil means
// indefinite retention; AutoDelete policies feed the sweeper that moves
// expired files to PENDING_ERASURE.
type Policy struct {
	ID               int64
	CompanyID        int64
	Name             string
	Description      string
	DurationDays     *int
	AutoDelete       bool
	LegalHoldAllowed bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FileRetention links a file to a policy. A file accumulates rows over
// time; historical assignments are never overwritten. Any row with
// UnderLegalHold exempts the file from erasure entirely.
type FileRetention struct {
	ID             int64
	FileID         int64
	PolicyID       int64
	UnderLegalHold bool
	AssignedAt     time.Time
}

// ErasureProof is the immutable record evidencing one file's erasure.
// Created exactly once per erased file, before the file's status flips,
// and never mutated afterwards.
type ErasureProof struct {
	ID                   int64
	CompanyID            int64
	FileID               int64
	PolicyID             *int64
	ErasedAt             time.Time
	ErasedBySystemUserID string
	Method               string
	HashBeforeDelete     *string
	CreatedAt            time.Time
}

// ErasureResult is the per-file outcome of one erasure batch.
type ErasureResult struct {
	FileID int64  `json:"fileId"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// BatchResult summarizes one ProcessErasure run. Files under legal hold
// are not attempted and do not appear in Results.
type BatchResult struct {
	Processed int             `json:"processed"`
	Failed    int             `json:"failed"`
	Results   []ErasureResult `json:"results"`
}

package models

import (
	"time"

	"github.com/filegrid/filegrid/internal/retention"
)

// RetentionPolicy is the API view of a retention policy.
type RetentionPolicy struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	DurationDays     *int      `json:"durationDays,omitempty"`
	AutoDelete       bool      `json:"autoDelete"`
	LegalHoldAllowed bool      `json:"legalHoldAllowed"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// PolicyFromDomain converts a domain policy to its API view.
func PolicyFromDomain(p *retention.Policy) RetentionPolicy {
	return RetentionPolicy{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		DurationDays:     p.DurationDays,
		AutoDelete:       p.AutoDelete,
		LegalHoldAllowed: p.LegalHoldAllowed,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// RetentionPolicyRequest creates or updates a policy.
type RetentionPolicyRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	DurationDays     *int   `json:"durationDays,omitempty"`
	AutoDelete       bool   `json:"autoDelete"`
	LegalHoldAllowed bool   `json:"legalHoldAllowed"`
}

// FileRetention is the API view of one policy assignment on a file.
type FileRetention struct {
	ID             int64     `json:"id"`
	FileID         int64     `json:"fileId"`
	PolicyID       int64     `json:"policyId"`
	UnderLegalHold bool      `json:"underLegalHold"`
	AssignedAt     time.Time `json:"assignedAt"`
}

// FileRetentionFromDomain converts a domain assignment to its API view.
func FileRetentionFromDomain(fr *retention.FileRetention) FileRetention {
	return FileRetention{
		ID:             fr.ID,
		FileID:         fr.FileID,
		PolicyID:       fr.PolicyID,
		UnderLegalHold: fr.UnderLegalHold,
		AssignedAt:     fr.AssignedAt,
	}
}

// AssignPolicyRequest assigns a policy to a file or a folder. Recursive
// applies to folder assignment only: false (the default) touches the
// folder's direct files, true walks the whole subtree.
type AssignPolicyRequest struct {
	PolicyID  int64 `json:"policyId"`
	Recursive bool  `json:"recursive,omitempty"`
}

// FolderAssignmentResult reports how many files a subtree assignment
// covered.
type FolderAssignmentResult struct {
	FilesAssigned int `json:"filesAssigned"`
}

// LegalHoldRequest places or lifts a legal hold on an assignment.
type LegalHoldRequest struct {
	Hold bool `json:"hold"`
}

// ErasureProof is the API view of an erasure proof.
type ErasureProof struct {
	ID               int64     `json:"id"`
	FileID           int64     `json:"fileId"`
	PolicyID         *int64    `json:"policyId,omitempty"`
	ErasedAt         time.Time `json:"erasedAt"`
	ErasedBy         string    `json:"erasedBy"`
	Method           string    `json:"method"`
	HashBeforeDelete *string   `json:"hashBeforeDelete,omitempty"`
}

// ProofFromDomain converts a domain proof to its API view.
func ProofFromDomain(p *retention.ErasureProof) ErasureProof {
	return ErasureProof{
		ID:               p.ID,
		FileID:           p.FileID,
		PolicyID:         p.PolicyID,
		ErasedAt:         p.ErasedAt,
		ErasedBy:         p.ErasedBySystemUserID,
		Method:           p.Method,
		HashBeforeDelete: p.HashBeforeDelete,
	}
}

package models

import (
	"time"

	"github.com/filegrid/filegrid/internal/audit"
)

// AuditEntry is the API view of one audit log row.
type AuditEntry struct {
	ID         int64          `json:"id"`
	ActorID    *string        `json:"actorId,omitempty"`
	EventType  string         `json:"eventType"`
	TargetType string         `json:"targetType"`
	TargetID   *int64         `json:"targetId,omitempty"`
	IPAddress  *string        `json:"ipAddress,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// AuditEntryFromDomain converts a domain entry to its API view.
func AuditEntryFromDomain(e *audit.Entry) AuditEntry {
	return AuditEntry{
		ID:         e.ID,
		ActorID:    e.ActorUserID,
		EventType:  string(e.EventType),
		TargetType: string(e.TargetType),
		TargetID:   e.TargetID,
		IPAddress:  e.IPAddress,
		Metadata:   e.Metadata,
		CreatedAt:  e.CreatedAt,
	}
}

// Package audit provides the append-only audit trail. Every access
// decision and state-changing action is recorded here, including blocked
// attempts; entries are never updated or deleted outside whole-tenant
// teardown.
package audit

import "time"

// EventType classifies an audit entry.
type EventType string

const (
	EventUserLogin        EventType = "USER_LOGIN"
	EventUserLogout       EventType = "USER_LOGOUT"
	EventFileUpload       EventType = "FILE_UPLOAD"
	EventFileDownload     EventType = "FILE_DOWNLOAD"
	EventFileRename       EventType = "FILE_RENAME"
	EventFileMove         EventType = "FILE_MOVE"
	EventFileDelete       EventType = "FILE_DELETE"
	EventFileShareCreate  EventType = "FILE_SHARE_CREATE"
	EventFileShareAccess  EventType = "FILE_SHARE_ACCESS"
	EventFolderCreate     EventType = "FOLDER_CREATE"
	EventFolderDelete     EventType = "FOLDER_DELETE"
	EventGdprShareBlocked EventType = "GDPR_SHARE_BLOCKED"
	EventGdprDeleteBlocked EventType = "GDPR_DELETE_BLOCKED"
	EventPolicyAssign     EventType = "POLICY_ASSIGN"
	EventFileErased       EventType = "FILE_ERASED"
)

// TargetType identifies what kind of entity an entry refers to.
type TargetType string

const (
	TargetFile   TargetType = "FILE"
	TargetFolder TargetType = "FOLDER"
	TargetShare  TargetType = "SHARE"
	TargetUser   TargetType = "USER"
	TargetPolicy TargetType = "POLICY"
)

// Entry is one immutable audit log row. ActorUserID is nil for
// system-initiated events (for example the retention sweeper).
type Entry struct {
	ID          int64
	CompanyID   int64
	ActorUserID *string
	EventType   EventType
	TargetType  TargetType
	TargetID    *int64
	IPAddress   *string
	UserAgent   *string
	Metadata    map[string]any
	CreatedAt   time.Time
}

// Query filters audit entries for compliance reporting. CompanyID is
// mandatory: audit reads never cross the tenant boundary.
type Query struct {
	CompanyID   int64
	ActorUserID *string
	EventType   *EventType
	TargetType  *TargetType
	TargetID    *int64
	Limit       int
}

// Package gdpr implements the gate that intercepts delete and
// external-share operations on PII-flagged content. The decision itself is
// a pure function; the Gate wrapper adds the mandatory audit trail for
// blocked attempts.
package gdpr

import (
	"context"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/audit"
)

// RiskLevel classifies how likely a file is to contain personal data.
// Files start at RiskUnknown and are reclassified by the scan pipeline or
// by an explicit PII marking.
type RiskLevel string

const (
	RiskUnknown      RiskLevel = "UNKNOWN"
	RiskNoPII        RiskLevel = "NO_PII_DETECTED"
	RiskPossiblePII  RiskLevel = "POSSIBLE_PII"
	RiskConfirmedPII RiskLevel = "CONFIRMED_PII"
)

// Valid reports whether l is a known risk level.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskUnknown, RiskNoPII, RiskPossiblePII, RiskConfirmedPII:
		return true
	}
	return false
}

// Action is a protected operation the gate intercepts.
type Action string

const (
	ActionDeleteFile    Action = "DELETE_FILE"
	ActionDeleteFolder  Action = "DELETE_FOLDER"
	ActionShareExternal Action = "SHARE_FILE_EXTERNAL"
)

// State is the outcome state of a gate check. A request starts implicitly
// in the requested state and transitions to exactly one of these.
type State string

const (
	StateAllowed State = "ALLOWED"
	StateBlocked State = "BLOCKED"
)

// Decision is the result of evaluating the gate for one request.
type Decision struct {
	State State

	// OverrideUsed is true when the request only passed because an
	// override-capable actor explicitly asked for an override. Callers put
	// this into the audit metadata of the action that follows.
	OverrideUsed bool
}

// DeleteRisky reports whether a file's risk level blocks deletion.
// Only confirmed PII blocks deletes; possible PII does not.
func DeleteRisky(level RiskLevel) bool {
	return level == RiskConfirmedPII
}

// ShareRisky reports whether a file's risk level blocks external sharing.
// Sharing is stricter than deletion: possible PII already blocks.
func ShareRisky(level RiskLevel) bool {
	return level == RiskPossiblePII || level == RiskConfirmedPII
}

// Decide evaluates the gate transition for a protected action whose target
// carries the given risk flag. It is pure and side-effect free.
//
// A risky target blocks unless the caller both requested an override and
// holds an override-capable role. A non-risky target is always allowed;
// the base access predicate has already run by the time the gate is
// consulted.
func Decide(risky bool, role access.Role, overrideRequested bool) Decision {
	if !risky {
		return Decision{State: StateAllowed}
	}
	if overrideRequested && role.CanOverrideGdpr() {
		return Decision{State: StateAllowed, OverrideUsed: true}
	}
	return Decision{State: StateBlocked}
}

// BlockedError is the denial returned for a blocked protected action. It
// carries the risk that triggered the block; Message is already tailored
// to what the requesting actor is allowed to learn.
type BlockedError struct {
	Action  Action
	Reason  string
	Message string
}

func (e *BlockedError) Error() string {
	return e.Message
}

// denialMessage builds the denial text. The override hint is revealed only
// to roles that could actually perform the override, so the error body
// does not teach lower-privilege actors about the escape hatch.
func denialMessage(action Action, role access.Role) string {
	var what string
	switch action {
	case ActionDeleteFile:
		what = "Deletion blocked: file is marked as containing personal data."
	case ActionDeleteFolder:
		what = "Deletion blocked: folder is marked as containing personal data."
	case ActionShareExternal:
		what = "Sharing blocked: file may contain personal data."
	default:
		what = "Operation blocked: target contains personal data."
	}
	if role.CanOverrideGdpr() {
		return what + " Retry with gdprOverride=true to override."
	}
	return what
}

// FileTarget is the slice of a file record the gate needs.
type FileTarget struct {
	ID        int64
	CompanyID int64
	Name      string
	Risk      RiskLevel
}

// FolderTarget is the slice of a folder record the gate needs.
type FolderTarget struct {
	ID                   int64
	CompanyID            int64
	Name                 string
	ContainsPersonalData bool
}

// Gate evaluates protected actions and records blocked attempts. Blocked
// operations must appear in the audit trail; under-reporting them would
// itself be a compliance gap, so the audit write happens before the denial
// is returned.
type Gate struct {
	audit *audit.Recorder
}

// NewGate creates a new Gate.
func NewGate(recorder *audit.Recorder) *Gate {
	return &Gate{audit: recorder}
}

// CheckFileDelete gates a file deletion. Returns a *BlockedError when the
// action is blocked, nil when it may proceed. The returned decision tells
// the caller whether an override was spent.
func (g *Gate) CheckFileDelete(ctx context.Context, actor access.Actor, file FileTarget, overrideRequested bool) (Decision, error) {
	d := Decide(DeleteRisky(file.Risk), actor.Role, overrideRequested)
	if d.State == StateAllowed {
		return d, nil
	}

	g.audit.Record(ctx, audit.Entry{
		CompanyID:   file.CompanyID,
		ActorUserID: &actor.ID,
		EventType:   audit.EventGdprDeleteBlocked,
		TargetType:  audit.TargetFile,
		TargetID:    &file.ID,
		Metadata: map[string]any{
			"blocked":       true,
			"reason":        string(file.Risk),
			"fileName":      file.Name,
			"gdprRiskLevel": string(file.Risk),
		},
	})
	return d, &BlockedError{
		Action:  ActionDeleteFile,
		Reason:  string(file.Risk),
		Message: denialMessage(ActionDeleteFile, actor.Role),
	}
}

// CheckFolderDelete gates a folder deletion.
func (g *Gate) CheckFolderDelete(ctx context.Context, actor access.Actor, folder FolderTarget, overrideRequested bool) (Decision, error) {
	d := Decide(folder.ContainsPersonalData, actor.Role, overrideRequested)
	if d.State == StateAllowed {
		return d, nil
	}

	g.audit.Record(ctx, audit.Entry{
		CompanyID:   folder.CompanyID,
		ActorUserID: &actor.ID,
		EventType:   audit.EventGdprDeleteBlocked,
		TargetType:  audit.TargetFolder,
		TargetID:    &folder.ID,
		Metadata: map[string]any{
			"blocked": true,
			"reason":  "containsPersonalData",
			"name":    folder.Name,
		},
	})
	return d, &BlockedError{
		Action:  ActionDeleteFolder,
		Reason:  "containsPersonalData",
		Message: denialMessage(ActionDeleteFolder, actor.Role),
	}
}

// CheckFileShare gates an external share of a file.
func (g *Gate) CheckFileShare(ctx context.Context, actor access.Actor, file FileTarget, overrideRequested bool) (Decision, error) {
	d := Decide(ShareRisky(file.Risk), actor.Role, overrideRequested)
	if d.State == StateAllowed {
		return d, nil
	}

	g.audit.Record(ctx, audit.Entry{
		CompanyID:   file.CompanyID,
		ActorUserID: &actor.ID,
		EventType:   audit.EventGdprShareBlocked,
		TargetType:  audit.TargetFile,
		TargetID:    &file.ID,
		Metadata: map[string]any{
			"fileName":      file.Name,
			"gdprRiskLevel": string(file.Risk),
		},
	})
	return d, &BlockedError{
		Action:  ActionShareExternal,
		Reason:  string(file.Risk),
		Message: denialMessage(ActionShareExternal, actor.Role),
	}
}

// OverrideMetadata annotates mutation audit metadata with the override
// fact when one was used.
func OverrideMetadata(meta map[string]any, d Decision) map[string]any {
	if !d.OverrideUsed {
		return meta
	}
	if meta == nil {
		meta = make(map[string]any, 1)
	}
	meta["overrideUsed"] = true
	return meta
}

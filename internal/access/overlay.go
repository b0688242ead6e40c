package access

import "strconv"

// Action is an access kind a folder overlay grant can confer.
type Action string

const (
	ActionRead   Action = "READ"
	ActionWrite  Action = "WRITE"
	ActionShare  Action = "SHARE"
	ActionManage Action = "MANAGE"
)

// SubjectType identifies what a folder overlay grant is addressed to.
type SubjectType string

const (
	SubjectDepartment SubjectType = "DEPARTMENT"
	SubjectRole       SubjectType = "ROLE"
	SubjectUser       SubjectType = "USER"
)

// Valid reports whether s is a known subject type.
func (s SubjectType) Valid() bool {
	switch s {
	case SubjectDepartment, SubjectRole, SubjectUser:
		return true
	}
	return false
}

// Grant is one folder overlay permission as seen by the evaluator. The
// SubjectID encoding depends on SubjectType: a decimal department id for
// DEPARTMENT, a role name for ROLE, a user id for USER.
type Grant struct {
	SubjectType SubjectType
	SubjectID   string
	CanRead     bool
	CanWrite    bool
	CanShare    bool
	CanManage   bool
}

// appliesTo reports whether the grant addresses the actor.
func (g Grant) appliesTo(a Actor) bool {
	switch g.SubjectType {
	case SubjectDepartment:
		if a.DepartmentID == nil {
			return false
		}
		id, err := strconv.ParseInt(g.SubjectID, 10, 64)
		return err == nil && id == *a.DepartmentID
	case SubjectRole:
		return g.SubjectID == string(a.Role)
	case SubjectUser:
		return g.SubjectID == a.ID
	}
	return false
}

// allows reports whether the grant confers the action.
func (g Grant) allows(action Action) bool {
	switch action {
	case ActionRead:
		return g.CanRead
	case ActionWrite:
		return g.CanWrite
	case ActionShare:
		return g.CanShare
	case ActionManage:
		return g.CanManage
	}
	return false
}

// OverlayAllows evaluates the folder's overlay grants for the actor and
// action. Overlays only ever widen access: callers consult this after the
// base predicate has denied, never instead of it. Grants are scoped to
// exactly one folder and do not cascade; the caller passes only the grants
// of the folder being accessed.
func OverlayAllows(a Actor, grants []Grant, action Action) bool {
	for _, g := range grants {
		if g.appliesTo(a) && g.allows(action) {
			return true
		}
	}
	return false
}

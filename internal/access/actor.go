// Package access implements the role- and ownership-based authorization
// rules for files and folders, plus the folder-scoped permission overlay.
//
// All decision functions in this package are pure: they take an Actor and
// an entity snapshot and return a boolean. They never touch storage, never
// log, and never return errors — a mismatch of any kind, including a
// malformed actor, is simply a denial. Callers are responsible for mapping
// denials to HTTP status codes and for treating cross-tenant entities as
// not-found before the predicates are ever consulted.
package access

// Role is the closed set of roles an actor can hold. Roles are not a
// strict privilege lattice: DPO and AUDITOR have broad read access but not
// full write access, so every predicate spells out its own role rules
// rather than comparing ordinals.
type Role string

const (
	RoleSuperAdmin        Role = "SUPER_ADMIN"
	RoleCompanyAdmin      Role = "COMPANY_ADMIN"
	RoleDepartmentManager Role = "DEPARTMENT_MANAGER"
	RoleEmployee          Role = "EMPLOYEE"
	RoleAuditor           Role = "AUDITOR"
	RoleDPO               Role = "DPO"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleCompanyAdmin, RoleDepartmentManager,
		RoleEmployee, RoleAuditor, RoleDPO:
		return true
	}
	return false
}

// CanOverrideGdpr reports whether the role may override a GDPR block on
// delete or external-share operations.
func (r Role) CanOverrideGdpr() bool {
	switch r {
	case RoleDPO, RoleCompanyAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Actor is the authenticated principal performing an action. It is derived
// per request from a session token or API key and passed by value into
// every decision function; nothing in this package reads ambient state.
//
// DepartmentID is nil when the actor has no department membership. Note
// the distinct meaning on entities: a nil department on a File or Folder
// means company-wide scope, not "unassigned".
type Actor struct {
	ID           string
	Role         Role
	CompanyID    int64
	DepartmentID *int64
}

// HasDepartment reports whether the actor belongs to a department.
func (a Actor) HasDepartment() bool {
	return a.DepartmentID != nil
}

// inDepartment reports whether the actor belongs to the department
// identified by id. A nil id (company-wide entity) never matches: the
// department rules only apply when both sides are department-scoped.
func (a Actor) inDepartment(id *int64) bool {
	return a.DepartmentID != nil && id != nil && *a.DepartmentID == *id
}

// AuditScope is the breadth of audit log access being requested.
type AuditScope string

const (
	AuditScopeDepartment AuditScope = "department"
	AuditScopeCompany    AuditScope = "company"
	AuditScopeAll        AuditScope = "all"
)

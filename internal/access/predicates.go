package access

// Object is the slice of a File or Folder record the predicates need:
// tenant, department scope, and creator. Domain packages convert their
// models into an Object rather than this package importing them.
//
// A nil DepartmentID means the object is company-wide, not
// department-scoped.
type Object struct {
	CompanyID       int64
	DepartmentID    *int64
	CreatedByUserID string
}

// CanReadFile decides read access to a file.
//
// The company check comes first and is never bypassable, for any role.
func CanReadFile(a Actor, f Object) bool {
	if a.CompanyID != f.CompanyID {
		return false
	}
	switch a.Role {
	case RoleSuperAdmin, RoleCompanyAdmin, RoleDPO, RoleAuditor:
		return true
	case RoleDepartmentManager:
		return a.inDepartment(f.DepartmentID)
	case RoleEmployee:
		return f.CreatedByUserID == a.ID || a.inDepartment(f.DepartmentID)
	}
	return false
}

// CanWriteFile decides write access to a file. Write implies read.
//
// Employees write only files they created; department membership grants
// them read but deliberately not write.
func CanWriteFile(a Actor, f Object) bool {
	if !CanReadFile(a, f) {
		return false
	}
	switch a.Role {
	case RoleSuperAdmin, RoleCompanyAdmin:
		return true
	case RoleDepartmentManager:
		return a.inDepartment(f.DepartmentID)
	case RoleEmployee:
		return f.CreatedByUserID == a.ID
	case RoleDPO, RoleAuditor:
		return false
	}
	return false
}

// CanShareFile decides share access to a file. Share implies read.
//
// Identical to CanWriteFile except that the DPO may also share, for
// compliance review.
func CanShareFile(a Actor, f Object) bool {
	if !CanReadFile(a, f) {
		return false
	}
	switch a.Role {
	case RoleSuperAdmin, RoleCompanyAdmin, RoleDPO:
		return true
	case RoleDepartmentManager:
		return a.inDepartment(f.DepartmentID)
	case RoleEmployee:
		return f.CreatedByUserID == a.ID
	case RoleAuditor:
		return false
	}
	return false
}

// CanReadFolder decides read access to a folder. Same structure as
// CanReadFile, applied to the folder's tenant/department/creator.
func CanReadFolder(a Actor, f Object) bool {
	if a.CompanyID != f.CompanyID {
		return false
	}
	switch a.Role {
	case RoleSuperAdmin, RoleCompanyAdmin, RoleDPO, RoleAuditor:
		return true
	case RoleDepartmentManager:
		return a.inDepartment(f.DepartmentID)
	case RoleEmployee:
		return f.CreatedByUserID == a.ID || a.inDepartment(f.DepartmentID)
	}
	return false
}

// CanWriteFolder decides write access to a folder. Write implies read.
func CanWriteFolder(a Actor, f Object) bool {
	if !CanReadFolder(a, f) {
		return false
	}
	switch a.Role {
	case RoleSuperAdmin, RoleCompanyAdmin:
		return true
	case RoleDepartmentManager:
		return a.inDepartment(f.DepartmentID)
	case RoleEmployee:
		return f.CreatedByUserID == a.ID
	case RoleDPO, RoleAuditor:
		return false
	}
	return false
}

// CanManagePolicies decides whether the actor may create, update, or
// delete retention policies and run the erasure pipeline.
func CanManagePolicies(a Actor) bool {
	switch a.Role {
	case RoleSuperAdmin, RoleCompanyAdmin, RoleDPO:
		return true
	}
	return false
}

// CanViewAudit decides whether the actor may read audit logs at the given
// scope. Only the SUPER_ADMIN sees across companies.
func CanViewAudit(a Actor, scope AuditScope) bool {
	switch a.Role {
	case RoleSuperAdmin:
		return true
	case RoleCompanyAdmin, RoleDPO, RoleAuditor:
		return scope != AuditScopeAll
	case RoleDepartmentManager:
		return scope == AuditScopeDepartment || scope == AuditScopeCompany
	case RoleEmployee:
		return scope == AuditScopeDepartment
	}
	return false
}

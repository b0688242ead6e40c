package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/filegrid/filegrid/internal/access"
)

func deptID(id int64) *int64 {
	return &id
}

func TestCrossCompanyAlwaysDenied(t *testing.T) {
	file := access.Object{CompanyID: 2, DepartmentID: deptID(5), CreatedByUserID: "u1"}

	roles := []access.Role{
		access.RoleSuperAdmin,
		access.RoleCompanyAdmin,
		access.RoleDPO,
		access.RoleAuditor,
		access.RoleDepartmentManager,
		access.RoleEmployee,
	}

	for _, role := range roles {
		t.Run(string(role), func(t *testing.T) {
			actor := access.Actor{ID: "u1", Role: role, CompanyID: 1, DepartmentID: deptID(5)}

			assert.False(t, access.CanReadFile(actor, file))
			assert.False(t, access.CanWriteFile(actor, file))
			assert.False(t, access.CanShareFile(actor, file))
			assert.False(t, access.CanReadFolder(actor, file))
			assert.False(t, access.CanWriteFolder(actor, file))
		})
	}
}

func TestCanReadFile(t *testing.T) {
	tests := []struct {
		name  string
		actor access.Actor
		file  access.Object
		want  bool
	}{
		{
			name:  "company admin reads any file in company",
			actor: access.Actor{ID: "admin", Role: access.RoleCompanyAdmin, CompanyID: 1},
			file:  access.Object{CompanyID: 1, DepartmentID: deptID(9), CreatedByUserID: "other"},
			want:  true,
		},
		{
			name:  "dpo reads any file in company",
			actor: access.Actor{ID: "dpo", Role: access.RoleDPO, CompanyID: 1},
			file:  access.Object{CompanyID: 1, DepartmentID: deptID(9), CreatedByUserID: "other"},
			want:  true,
		},
		{
			name:  "auditor reads any file in company",
			actor: access.Actor{ID: "aud", Role: access.RoleAuditor, CompanyID: 1},
			file:  access.Object{CompanyID: 1, CreatedByUserID: "other"},
			want:  true,
		},
		{
			name:  "manager reads file in own department",
			actor: access.Actor{ID: "mgr", Role: access.RoleDepartmentManager, CompanyID: 1, DepartmentID: deptID(5)},
			file:  access.Object{CompanyID: 1, DepartmentID: deptID(5), CreatedByUserID: "other"},
			want:  true,
		},
		{
			name:  "manager denied outside own department",
			actor: access.Actor{ID: "mgr", Role: access.RoleDepartmentManager, CompanyID: 1, DepartmentID: deptID(5)},
			file:  access.Object{CompanyID: 1, DepartmentID: deptID(6), CreatedByUserID: "other"},
			want:  false,
		},
		{
			name:  "manager denied on company-wide file",
			actor: access.Actor{ID: "mgr", Role: access.RoleDepartmentManager, CompanyID: 1, DepartmentID: deptID(5)},
			file:  access.Object{CompanyID: 1, CreatedByUserID: "other"},
			want:  false,
		},
		{
			name:  "employee reads own file",
			actor: access.Actor{ID: "emp", Role: access.RoleEmployee, CompanyID: 1},
			file:  access.Object{CompanyID: 1, DepartmentID: deptID(6), CreatedByUserID: "emp"},
			want:  true,
		},
		{
			name:  "employee reads department file created by someone else",
			actor: access.Actor{ID: "emp", Role: access.RoleEmployee, CompanyID: 1, DepartmentID: deptID(5)},
			file:  access.Object{CompanyID: 1, DepartmentID: deptID(5), CreatedByUserID: "other-user"},
			want:  true,
		},
		{
			name:  "employee denied outside department and not creator",
			actor: access.Actor{ID: "emp", Role: access.RoleEmployee, CompanyID: 1, DepartmentID: deptID(5)},
			file:  access.Object{CompanyID: 1, DepartmentID: deptID(6), CreatedByUserID: "other"},
			want:  false,
		},
		{
			name:  "employee without department denied on department file",
			actor: access.Actor{ID: "emp", Role: access.RoleEmployee, CompanyID: 1},
			file:  access.Object{CompanyID: 1, DepartmentID: deptID(5), CreatedByUserID: "other"},
			want:  false,
		},
		{
			name:  "unknown role denied",
			actor: access.Actor{ID: "x", Role: access.Role("INTERN"), CompanyID: 1},
			file:  access.Object{CompanyID: 1, CreatedByUserID: "x"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, access.CanReadFile(tt.actor, tt.file))
		})
	}
}

func TestCanWriteFile(t *testing.T) {
	tests := []struct {
		name  string
		actor access.Actor
		file  access.Object
		want  bool
	}{
		{
			name:  "super admin writes anything in company",
			actor: access.Actor{ID: "sa", Role: access.RoleSuperAdmin, CompanyID: 1},
			file:  access.Object{CompanyID: 1, DepartmentID: deptID(2), CreatedByUserID: "other"},
			want:  true,
		},
		{
			name:  "dpo can read but not write",
			actor: access.Actor{ID: "dpo", Role: access.RoleDPO, CompanyID: 1},
			file:  access.Object{CompanyID: 1, CreatedByUserID: "other"},
			want:  false,
		},
		{
			name:  "auditor can read but not write",
			actor: access.Actor{ID: "aud", Role: access.RoleAuditor, CompanyID: 1},
			file:  access.Object{CompanyID: 1, CreatedByUserID: "other"},
			want:  false,
		},
		{
			name:  "manager writes department file regardless of creator",
			actor: access.Actor{ID: "mgr", Role: access.RoleDepartmentManager, CompanyID: 1, DepartmentID: deptID(5)},
			file:  access.Object{CompanyID: 1, DepartmentID: deptID(5), CreatedByUserID: "other"},
			want:  true,
		},
		{
			name:  "employee writes own file",
			actor: access.Actor{ID: "emp", Role: access.RoleEmployee, CompanyID: 1, DepartmentID: deptID(5)},
			file:  access.Object{CompanyID: 1, DepartmentID: deptID(5), CreatedByUserID: "emp"},
			want:  true,
		},
		{
			name:  "employee cannot write department file they did not create",
			actor: access.Actor{ID: "emp", Role: access.RoleEmployee, CompanyID: 1, DepartmentID: deptID(5)},
			file:  access.Object{CompanyID: 1, DepartmentID: deptID(5), CreatedByUserID: "other-user"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, access.CanWriteFile(tt.actor, tt.file))
		})
	}
}

func TestCanShareFile(t *testing.T) {
	file := access.Object{CompanyID: 1, DepartmentID: deptID(5), CreatedByUserID: "owner"}

	// DPO is the one role that can share without write access.
	dpo := access.Actor{ID: "dpo", Role: access.RoleDPO, CompanyID: 1}
	assert.True(t, access.CanShareFile(dpo, file))
	assert.False(t, access.CanWriteFile(dpo, file))

	auditor := access.Actor{ID: "aud", Role: access.RoleAuditor, CompanyID: 1}
	assert.False(t, access.CanShareFile(auditor, file))

	owner := access.Actor{ID: "owner", Role: access.RoleEmployee, CompanyID: 1}
	assert.True(t, access.CanShareFile(owner, file))

	colleague := access.Actor{ID: "peer", Role: access.RoleEmployee, CompanyID: 1, DepartmentID: deptID(5)}
	assert.False(t, access.CanShareFile(colleague, file))
}

// Scenario from the access rules: a department colleague can read a file
// they did not create but cannot modify it.
func TestEmployeeDepartmentReadWriteAsymmetry(t *testing.T) {
	actor := access.Actor{ID: "emp-1", Role: access.RoleEmployee, CompanyID: 1, DepartmentID: deptID(5)}
	file := access.Object{CompanyID: 1, DepartmentID: deptID(5), CreatedByUserID: "other-user"}

	assert.True(t, access.CanReadFile(actor, file))
	assert.False(t, access.CanWriteFile(actor, file))
}

func TestCanManagePolicies(t *testing.T) {
	tests := []struct {
		role access.Role
		want bool
	}{
		{access.RoleSuperAdmin, true},
		{access.RoleCompanyAdmin, true},
		{access.RoleDPO, true},
		{access.RoleAuditor, false},
		{access.RoleDepartmentManager, false},
		{access.RoleEmployee, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			actor := access.Actor{ID: "u", Role: tt.role, CompanyID: 1}
			assert.Equal(t, tt.want, access.CanManagePolicies(actor))
		})
	}
}

func TestCanViewAudit(t *testing.T) {
	tests := []struct {
		role  access.Role
		scope access.AuditScope
		want  bool
	}{
		{access.RoleSuperAdmin, access.AuditScopeAll, true},
		{access.RoleCompanyAdmin, access.AuditScopeCompany, true},
		{access.RoleCompanyAdmin, access.AuditScopeAll, false},
		{access.RoleDPO, access.AuditScopeCompany, true},
		{access.RoleAuditor, access.AuditScopeCompany, true},
		{access.RoleDepartmentManager, access.AuditScopeCompany, true},
		{access.RoleDepartmentManager, access.AuditScopeAll, false},
		{access.RoleEmployee, access.AuditScopeDepartment, true},
		{access.RoleEmployee, access.AuditScopeCompany, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.scope), func(t *testing.T) {
			actor := access.Actor{ID: "u", Role: tt.role, CompanyID: 1}
			assert.Equal(t, tt.want, access.CanViewAudit(actor, tt.scope))
		})
	}
}

func TestRoleValid(t *testing.T) {
	assert.True(t, access.RoleDPO.Valid())
	assert.True(t, access.RoleEmployee.Valid())
	assert.False(t, access.Role("").Valid())
	assert.False(t, access.Role("ROOT").Valid())
}

package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/filegrid/filegrid/internal/access"
)

func TestOverlayAllows(t *testing.T) {
	actor := access.Actor{ID: "usr-7", Role: access.RoleEmployee, CompanyID: 1, DepartmentID: deptID(5)}

	tests := []struct {
		name   string
		grants []access.Grant
		action access.Action
		want   bool
	}{
		{
			name:   "no grants",
			grants: nil,
			action: access.ActionRead,
			want:   false,
		},
		{
			name: "department grant matches",
			grants: []access.Grant{
				{SubjectType: access.SubjectDepartment, SubjectID: "5", CanRead: true},
			},
			action: access.ActionRead,
			want:   true,
		},
		{
			name: "department grant for other department",
			grants: []access.Grant{
				{SubjectType: access.SubjectDepartment, SubjectID: "6", CanRead: true},
			},
			action: access.ActionRead,
			want:   false,
		},
		{
			name: "grant matches but lacks the action",
			grants: []access.Grant{
				{SubjectType: access.SubjectDepartment, SubjectID: "5", CanRead: true},
			},
			action: access.ActionWrite,
			want:   false,
		},
		{
			name: "role grant matches",
			grants: []access.Grant{
				{SubjectType: access.SubjectRole, SubjectID: "EMPLOYEE", CanWrite: true},
			},
			action: access.ActionWrite,
			want:   true,
		},
		{
			name: "user grant matches",
			grants: []access.Grant{
				{SubjectType: access.SubjectUser, SubjectID: "usr-7", CanShare: true},
			},
			action: access.ActionShare,
			want:   true,
		},
		{
			name: "user grant for someone else",
			grants: []access.Grant{
				{SubjectType: access.SubjectUser, SubjectID: "usr-8", CanShare: true},
			},
			action: access.ActionShare,
			want:   false,
		},
		{
			name: "any matching grant suffices",
			grants: []access.Grant{
				{SubjectType: access.SubjectUser, SubjectID: "usr-8", CanManage: true},
				{SubjectType: access.SubjectDepartment, SubjectID: "bogus", CanManage: true},
				{SubjectType: access.SubjectRole, SubjectID: "EMPLOYEE", CanManage: true},
			},
			action: access.ActionManage,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, access.OverlayAllows(actor, tt.grants, tt.action))
		})
	}
}

func TestOverlayDepartmentGrantIgnoresActorWithoutDepartment(t *testing.T) {
	actor := access.Actor{ID: "usr-1", Role: access.RoleEmployee, CompanyID: 1}
	grants := []access.Grant{
		{SubjectType: access.SubjectDepartment, SubjectID: "5", CanRead: true},
	}

	assert.False(t, access.OverlayAllows(actor, grants, access.ActionRead))
}

func TestSubjectTypeValid(t *testing.T) {
	assert.True(t, access.SubjectDepartment.Valid())
	assert.True(t, access.SubjectRole.Valid())
	assert.True(t, access.SubjectUser.Valid())
	assert.False(t, access.SubjectType("GROUP").Valid())
}

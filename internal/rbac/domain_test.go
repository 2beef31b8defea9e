package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Manager ")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, role)

	_, err = ParseRole("superuser")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestRoleSetMembershipIsExact(t *testing.T) {
	set := NewRoleSet(RoleManager, RoleAdmin, Role("root"))
	assert.True(t, set.Contains(RoleAdmin))
	assert.True(t, set.Contains(RoleManager))
	assert.False(t, set.Contains(RoleStaff))
	assert.False(t, set.Contains(Role("root")))
	assert.Len(t, set.Roles(), 2)
}

func TestPolicyTable(t *testing.T) {
	cases := []struct {
		action  Action
		allowed []Role
		denied  []Role
	}{
		{ActionReadAsset, AllRoles(), nil},
		{ActionCreateAsset, []Role{RoleStaff, RoleManager, RoleAdmin}, []Role{RoleViewer}},
		{ActionUpdateAsset, []Role{RoleManager, RoleAdmin}, []Role{RoleStaff, RoleViewer}},
		{ActionDeleteAsset, []Role{RoleAdmin}, []Role{RoleManager, RoleStaff, RoleViewer}},
		{ActionRegisterUser, []Role{RoleAdmin}, []Role{RoleManager, RoleStaff, RoleViewer}},
		{ActionDeleteUser, []Role{RoleAdmin}, []Role{RoleManager}},
		{ActionViewProfile, AllRoles(), nil},
	}
	for _, tc := range cases {
		t.Run(string(tc.action), func(t *testing.T) {
			set, ok := Required(tc.action)
			require.True(t, ok)
			for _, role := range tc.allowed {
				assert.NoError(t, Authorize(Identity{Role: role}, set), role)
			}
			for _, role := range tc.denied {
				assert.ErrorIs(t, Authorize(Identity{Role: role}, set), ErrForbidden, role)
			}
		})
	}

	assert.True(t, IsPublic(ActionListAssets))
	assert.False(t, IsPublic(ActionReadAsset))
	_, ok := Required(Action("nope"))
	assert.False(t, ok)
}

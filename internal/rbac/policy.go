package rbac

import "sort"

// Action names an endpoint class in the permission table.
type Action string

const (
	ActionListAssets   Action = "assets.list"
	ActionReadAsset    Action = "assets.read"
	ActionCreateAsset  Action = "assets.create"
	ActionUpdateAsset  Action = "assets.update"
	ActionDeleteAsset  Action = "assets.delete"
	ActionRegisterUser Action = "users.register"
	ActionListUsers    Action = "users.list"
	ActionDeleteUser   Action = "users.delete"
	ActionViewProfile  Action = "users.me"
	ActionViewPolicy   Action = "policy.view"
	ActionViewJobs     Action = "jobs.view"
)

// policy is the single source of truth for endpoint authorization.
// A nil set marks a public action.
var policy = map[Action]RoleSet{
	ActionListAssets:   nil,
	ActionReadAsset:    NewRoleSet(AllRoles()...),
	ActionCreateAsset:  NewRoleSet(RoleStaff, RoleManager, RoleAdmin),
	ActionUpdateAsset:  NewRoleSet(RoleManager, RoleAdmin),
	ActionDeleteAsset:  NewRoleSet(RoleAdmin),
	ActionRegisterUser: NewRoleSet(RoleAdmin),
	ActionListUsers:    NewRoleSet(RoleAdmin),
	ActionDeleteUser:   NewRoleSet(RoleAdmin),
	ActionViewProfile:  NewRoleSet(AllRoles()...),
	ActionViewPolicy:   NewRoleSet(RoleAdmin),
	ActionViewJobs:     NewRoleSet(RoleAdmin),
}

// Required returns the permitted roles for an action and whether the action
// is known. A known action with a nil set requires no authentication.
func Required(action Action) (RoleSet, bool) {
	set, ok := policy[action]
	return set, ok
}

// IsPublic reports whether the action can be performed anonymously.
func IsPublic(action Action) bool {
	set, ok := policy[action]
	return ok && set == nil
}

// PolicyEntry is a printable row of the permission table.
type PolicyEntry struct {
	Action Action `json:"action"`
	Public bool   `json:"public"`
	Roles  []Role `json:"roles"`
}

// Policy returns the permission table ordered by action name.
func Policy() []PolicyEntry {
	entries := make([]PolicyEntry, 0, len(policy))
	for action, set := range policy {
		entries = append(entries, PolicyEntry{Action: action, Public: set == nil, Roles: set.Roles()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Action < entries[j].Action })
	return entries
}

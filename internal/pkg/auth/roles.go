package auth

import "strings"

// Role is the closed set of user groups.
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// Action is something a role may or may not be allowed to do.
type Action string

const (
	ActionManageCatalog  Action = "manage_catalog"
	ActionManageMetadata Action = "manage_metadata"
	ActionManageUsers    Action = "manage_users"
	ActionViewAllOrders  Action = "view_all_orders"
	ActionDeleteAnyOrder Action = "delete_any_order"
	ActionCancelAnyOrder Action = "cancel_any_order"
	ActionEditAnyProfile Action = "edit_any_profile"
	ActionModerate       Action = "moderate_comments"
	ActionViewAnalytics  Action = "view_analytics"
)

var permissions = map[Action][]Role{
	ActionManageCatalog:  {RoleModerator, RoleAdmin},
	ActionManageMetadata: {RoleAdmin},
	ActionManageUsers:    {RoleAdmin},
	ActionViewAllOrders:  {RoleModerator, RoleAdmin},
	ActionDeleteAnyOrder: {RoleAdmin},
	ActionCancelAnyOrder: {RoleAdmin},
	ActionEditAnyProfile: {RoleModerator, RoleAdmin},
	ActionModerate:       {RoleModerator, RoleAdmin},
	ActionViewAnalytics:  {RoleAdmin},
}

// Can reports whether role is allowed to perform action.
func Can(role Role, action Action) bool {
	for _, allowed := range permissions[action] {
		if allowed == role {
			return true
		}
	}
	return false
}

// ParseRole maps user input onto a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleModerator:
		return RoleModerator, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok && strings.ToUpper(string(r)) == string(r)
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uint
	Role   Role
}

// Can reports whether the actor's role allows action.
func (a Actor) Can(action Action) bool {
	return Can(a.Role, action)
}

// Owns reports whether the actor is userID.
func (a Actor) Owns(userID uint) bool {
	return a.UserID == userID
}

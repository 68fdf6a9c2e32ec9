package auth

import "strings"

// Permission is an action on a protected object
type Permission string

const (
	PermView   Permission = "view"
	PermCreate Permission = "create"
	PermEdit   Permission = "edit"
	PermDelete Permission = "delete"
)

// ObjectBook is the object guarded by the book permissions
const ObjectBook = "book"

// Permission groups
const (
	GroupViewers = "Viewers"
	GroupEditors = "Editors"
	GroupAdmins  = "Admins"
)

// Profile roles
const (
	RoleAdmin     = "Admin"
	RoleLibrarian = "Librarian"
	RoleMember    = "Member"
)

// Roles lists the valid profile roles
var Roles = []string{RoleAdmin, RoleLibrarian, RoleMember}

// GroupPolicy is the set of book permissions granted to a group
type GroupPolicy struct {
	Name        string
	Permissions []Permission
}

// DefaultGroups are the groups created by "groups setup"
var DefaultGroups = []GroupPolicy{
	{Name: GroupViewers, Permissions: []Permission{PermView}},
	{Name: GroupEditors, Permissions: []Permission{PermView, PermCreate, PermEdit}},
	{Name: GroupAdmins, Permissions: []Permission{PermView, PermCreate, PermEdit, PermDelete}},
}

// permissionCodenames maps permission codenames to actions. The can_*_book
// names are aliases used by the library role views.
var permissionCodenames = map[string]Permission{
	"can_view":        PermView,
	"can_create":      PermCreate,
	"can_edit":        PermEdit,
	"can_delete":      PermDelete,
	"can_add_book":    PermCreate,
	"can_change_book": PermEdit,
	"can_delete_book": PermDelete,
}

// ParsePermission resolves a codename ("can_edit", "edit") to a Permission.
func ParsePermission(code string) (Permission, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if p, ok := permissionCodenames[code]; ok {
		return p, true
	}
	switch Permission(code) {
	case PermView, PermCreate, PermEdit, PermDelete:
		return Permission(code), true
	}
	return "", false
}

// Codename returns the can_* codename for p
func (p Permission) Codename() string {
	return "can_" + string(p)
}

// IsValidRole reports whether role is one of Roles
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsValidGroup reports whether name is one of DefaultGroups
func IsValidGroup(name string) bool {
	for _, g := range DefaultGroups {
		if g.Name == name {
			return true
		}
	}
	return false
}

// HasRole reports whether p is authenticated and holds one of roles.
// Superusers hold every role.
func HasRole(p *Principal, roles ...string) bool {
	if p == nil || p.ID == 0 {
		return false
	}
	if p.IsSuperuser {
		return true
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// IsAdmin reports whether p has the Admin role
func IsAdmin(p *Principal) bool { return HasRole(p, RoleAdmin) }

// IsLibrarian reports whether p has the Librarian role
func IsLibrarian(p *Principal) bool { return HasRole(p, RoleLibrarian) }

// IsMember reports whether p has the Member role
func IsMember(p *Principal) bool { return HasRole(p, RoleMember) }

// IsStaff reports whether p may use the admin endpoints
func IsStaff(p *Principal) bool {
	return p != nil && p.ID != 0 && (p.IsStaff || p.IsSuperuser)
}

// Package access resolves where an authenticated user lands and whether a
// route may be rendered for the current identity.
package access

import (
	"errors"
	"slices"
	"strings"
)

// Role is one of the platform roles issued by the API.
type Role string

// Platform roles.
const (
	RoleNone          Role = ""
	RoleAdministrator Role = "ADMINISTRATOR"
	RoleOrganizer     Role = "ORGANIZER"
	RoleBuyer         Role = "BUYER"
	RoleStaff         Role = "STAFF"
)

// ErrRoleNotHeld is returned when switching to a role the identity does not carry.
var ErrRoleNotHeld = errors.New("access: role not held by identity")

// AllRoles lists every known role.
func AllRoles() []Role {
	return []Role{RoleAdministrator, RoleOrganizer, RoleBuyer, RoleStaff}
}

// ParseRole normalises raw input case-insensitively. The second result is
// false for empty or unknown values.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdministrator:
		return RoleAdministrator, true
	case RoleOrganizer:
		return RoleOrganizer, true
	case RoleBuyer:
		return RoleBuyer, true
	case RoleStaff:
		return RoleStaff, true
	}
	return RoleNone, false
}

// Valid reports whether r names a known role.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func (r Role) String() string { return string(r) }

// Identity describes the authenticated user as known to this frontend.
type Identity struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email,omitempty"`
	Name        string   `json:"name,omitempty"`
	Roles       []Role   `json:"roles"`
	ActiveRole  Role     `json:"active_role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// NewIdentity builds a normalised identity. Unknown roles are dropped and the
// active role falls back to the first held role when it is absent or not held.
func NewIdentity(userID string, roles []string, active string, permissions []string) *Identity {
	id := &Identity{UserID: strings.TrimSpace(userID)}
	for _, raw := range roles {
		role, ok := ParseRole(raw)
		if !ok || slices.Contains(id.Roles, role) {
			continue
		}
		id.Roles = append(id.Roles, role)
	}
	if role, ok := ParseRole(active); ok && slices.Contains(id.Roles, role) {
		id.ActiveRole = role
	} else if len(id.Roles) > 0 {
		id.ActiveRole = id.Roles[0]
	}
	id.Permissions = normalizePermissions(permissions)
	return id
}

// HasRole reports whether the identity may act as role. When an active role is
// selected only that role counts; otherwise any held role does.
func (i *Identity) HasRole(role Role) bool {
	if i == nil {
		return false
	}
	role, ok := ParseRole(string(role))
	if !ok {
		return false
	}
	if i.ActiveRole != RoleNone {
		return i.ActiveRole == role
	}
	return slices.Contains(i.Roles, role)
}

// Holds reports whether role is in the identity's role set regardless of the
// active role.
func (i *Identity) Holds(role Role) bool {
	if i == nil {
		return false
	}
	role, ok := ParseRole(string(role))
	return ok && slices.Contains(i.Roles, role)
}

// Can reports whether the identity carries permission. A nil identity has no
// permissions.
func (i *Identity) Can(permission string) bool {
	if i == nil {
		return false
	}
	permission = strings.ToLower(strings.TrimSpace(permission))
	if permission == "" {
		return false
	}
	return slices.Contains(i.Permissions, permission)
}

// Can is the nil-friendly form of Identity.Can.
func Can(identity *Identity, permission string) bool {
	return identity.Can(permission)
}

// SwitchRole changes the active role.
func (i *Identity) SwitchRole(role Role) error {
	if i == nil {
		return ErrRoleNotHeld
	}
	parsed, ok := ParseRole(string(role))
	if !ok || !slices.Contains(i.Roles, parsed) {
		return ErrRoleNotHeld
	}
	i.ActiveRole = parsed
	return nil
}

// Clone returns a deep copy.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	out := *i
	out.Roles = slices.Clone(i.Roles)
	out.Permissions = slices.Clone(i.Permissions)
	return &out
}

func normalizePermissions(perms []string) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

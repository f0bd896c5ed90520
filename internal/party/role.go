package party

import "fmt"

// Role is a member's rank within a party. Roles are ordered: a higher value
// carries every permission of the roles below it.
type Role int

const (
	RoleRecruit Role = iota
	RoleMember
	RoleOfficer
	RoleLeader
)

// Permission thresholds. Capability checks are plain level comparisons
// against these, not per-role logic.
const (
	minRoleInvite  = RoleOfficer
	minRoleKick    = RoleOfficer
	minRoleSetHome = RoleOfficer
	minRoleBan     = RoleOfficer
	minRolePromote = RoleLeader
	minRoleDisband = RoleLeader
	minRoleRename  = RoleLeader
)

func (r Role) CanInvite() bool  { return r >= minRoleInvite }
func (r Role) CanKick() bool    { return r >= minRoleKick }
func (r Role) CanSetHome() bool { return r >= minRoleSetHome }
func (r Role) CanBan() bool     { return r >= minRoleBan }
func (r Role) CanPromote() bool { return r >= minRolePromote }
func (r Role) CanDisband() bool { return r >= minRoleDisband }
func (r Role) CanRename() bool  { return r >= minRoleRename }

func (r Role) String() string {
	switch r {
	case RoleLeader:
		return "leader"
	case RoleOfficer:
		return "officer"
	case RoleMember:
		return "member"
	case RoleRecruit:
		return "recruit"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ParseRole converts a stored role name back to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "leader":
		return RoleLeader, nil
	case "officer":
		return RoleOfficer, nil
	case "member":
		return RoleMember, nil
	case "recruit":
		return RoleRecruit, nil
	}
	return RoleMember, fmt.Errorf("unknown role %q", s)
}

// MarshalText implements encoding.TextMarshaler so roles serialize by name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

package domain

import dErrors "tradevault/pkg/domain-errors"

// Role is an actor's global role. Invariant: the value must be one of the
// supported roles.
//
// Usage: construct via ParseRole at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Role string

const (
	RoleBank      Role = "bank"
	RoleCorporate Role = "corporate"
	RoleAuditor   Role = "auditor"
	RoleAdmin     Role = "admin"
)

// validRoles is the single source of truth for supported roles.
var validRoles = map[Role]bool{
	RoleBank:      true,
	RoleCorporate: true,
	RoleAuditor:   true,
	RoleAdmin:     true,
}

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CrossOrg reports whether the role reads across organization boundaries.
// Auditors and admins see every organization; everyone else is scoped to
// their own.
func (r Role) CrossOrg() bool {
	return r == RoleAuditor || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

package auth

import "strings"

// RoleSet is the caller's validated role claims.
type RoleSet map[string]struct{}

// NewRoleSet builds a set from role names. Matching is case-sensitive.
func NewRoleSet(roles ...string) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has reports membership of role. Nobody holds the blank role.
func (s RoleSet) Has(role string) bool {
	if role == "" {
		return false
	}
	_, ok := s[role]
	return ok
}

// Policy lists the roles an operation requires. A caller must hold every
// listed role (logical AND), not any one of them. The zero Policy places no
// restriction beyond authentication.
type Policy struct {
	required []string
}

// RequireAllRoles builds an AND policy over roles, keeping their order.
// Entries are trimmed; a blank entry stays in the policy as a role nobody
// holds, so a malformed declaration denies everyone.
func RequireAllRoles(roles ...string) Policy {
	required := make([]string, 0, len(roles))
	for _, role := range roles {
		required = append(required, strings.TrimSpace(role))
	}
	return Policy{required: required}
}

// ParsePolicy reads the comma-separated declaration form, e.g. "Admin,Role2".
// Only an entirely blank declaration yields the empty policy: "," or
// "Admin,," keep their empty entries and deny every caller.
func ParsePolicy(declaration string) Policy {
	if strings.TrimSpace(declaration) == "" {
		return Policy{}
	}
	return RequireAllRoles(strings.Split(declaration, ",")...)
}

// Roles returns the required roles in declaration order.
func (p Policy) Roles() []string {
	out := make([]string, len(p.required))
	copy(out, p.required)
	return out
}

// Empty reports whether the policy requires no role.
func (p Policy) Empty() bool { return len(p.required) == 0 }

func (p Policy) String() string { return strings.Join(p.required, ",") }

// Decision is the outcome of evaluating a Policy.
type Decision struct {
	Granted bool
	// Missing is the first required role the caller lacked.
	Missing string
}

// Evaluate checks the required roles in order and denies on the first one
// the caller lacks.
func (p Policy) Evaluate(caller RoleSet) Decision {
	for _, role := range p.required {
		if !caller.Has(role) {
			return Decision{Missing: role}
		}
	}
	return Decision{Granted: true}
}

package model

import "fmt"

// Role is an employee's position in the staffing hierarchy.
// A higher role can perform the duties of every role below it.
type Role string

const (
	RoleManager    Role = "manager"
	RoleAllrounder Role = "allrounder"
	RoleVersorger  Role = "versorger"
	RoleVerkauf    Role = "verkauf"
	RoleEssen      Role = "essen"
)

// hierarchy lists roles from most to least capable.
var hierarchy = []Role{
	RoleManager,
	RoleAllrounder,
	RoleVersorger,
	RoleVerkauf,
	RoleEssen,
}

// capabilityTable maps each role to the hierarchy suffix starting at that
// role. Precomputed so an invalid capability state cannot be constructed
// from a valid role.
var capabilityTable = buildCapabilityTable()

func buildCapabilityTable() map[Role][]Role {
	table := make(map[Role][]Role, len(hierarchy))
	for i, role := range hierarchy {
		suffix := make([]Role, len(hierarchy)-i)
		copy(suffix, hierarchy[i:])
		table[role] = suffix
	}
	return table
}

func (r Role) IsValid() bool {
	_, ok := capabilityTable[r]
	return ok
}

// rank returns the position of the role in the hierarchy (0 = manager).
// Invalid roles rank below everything.
func (r Role) rank() int {
	for i, role := range hierarchy {
		if role == r {
			return i
		}
	}
	return len(hierarchy)
}

// CanPerform reports whether an employee with role r can cover the given role.
func (r Role) CanPerform(other Role) bool {
	if !r.IsValid() || !other.IsValid() {
		return false
	}
	return r.rank() <= other.rank()
}

// CapabilitySet returns the roles an employee with the given role can cover:
// exactly the hierarchy suffix starting at the role itself. The returned
// slice is a copy.
func CapabilitySet(r Role) []Role {
	suffix, ok := capabilityTable[r]
	if !ok {
		return nil
	}
	out := make([]Role, len(suffix))
	copy(out, suffix)
	return out
}

// Roles returns the full hierarchy from most to least capable.
func Roles() []Role {
	out := make([]Role, len(hierarchy))
	copy(out, hierarchy)
	return out
}

func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return role, nil
}

// EmploymentType distinguishes fixed employees from part-time staff.
type EmploymentType string

const (
	EmploymentPartTime EmploymentType = "part_time"
	EmploymentFixed    EmploymentType = "fixed"
)

func (t EmploymentType) IsValid() bool {
	return t == EmploymentPartTime || t == EmploymentFixed
}

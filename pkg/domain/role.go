package domain

import dErrors "medgate/pkg/domain-errors"

// Role identifies the job function of an authenticated actor. Access to
// patient data is limited by role so staff only see what their duties need.
type Role string

// Supported actor roles.
const (
	RolePhysician    Role = "physician"
	RoleNurse        Role = "nurse"
	RoleAdmin        Role = "admin"
	RoleBilling      Role = "billing"
	RoleReceptionist Role = "receptionist"
)

// validRoles is the single source of truth for valid roles.
var validRoles = map[Role]bool{
	RolePhysician:    true,
	RoleNurse:        true,
	RoleAdmin:        true,
	RoleBilling:      true,
	RoleReceptionist: true,
}

// ParseRole constructs a Role from external input (token claims, requests).
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
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

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Roles returns all supported roles. Useful for exhaustive table checks.
func Roles() []Role {
	return []Role{RolePhysician, RoleNurse, RoleAdmin, RoleBilling, RoleReceptionist}
}

// Purposes returns all supported purposes.
func Purposes() []Purpose {
	return []Purpose{PurposeTreatment, PurposeBilling, PurposeReferral, PurposeResearch, PurposeEmergency}
}

// Package phi holds the disclosure policy: which roles may request patient
// data for which purposes, and exactly which fields each (purpose, role)
// combination may see. The tables are immutable configuration built once at
// startup and injected, so tests can substitute narrower policies.
package phi

import "medgate/pkg/domain"

// Authorizer answers whether an actor's role is permitted to request data for
// a stated purpose. Any combination absent from the table is denied.
type Authorizer struct {
	permitted map[domain.Role]map[domain.Purpose]bool
}

// NewAuthorizer builds an authorizer from a role -> permitted purposes table.
func NewAuthorizer(table map[domain.Role][]domain.Purpose) *Authorizer {
	permitted := make(map[domain.Role]map[domain.Purpose]bool, len(table))
	for role, purposes := range table {
		set := make(map[domain.Purpose]bool, len(purposes))
		for _, p := range purposes {
			set[p] = true
		}
		permitted[role] = set
	}
	return &Authorizer{permitted: permitted}
}

// DefaultPermissions is the production role/purpose table. Access is limited
// by job function: clinical roles get clinical purposes, administrative roles
// get billing, and everyone can invoke the emergency path they are cleared
// for.
func DefaultPermissions() map[domain.Role][]domain.Purpose {
	return map[domain.Role][]domain.Purpose{
		domain.RolePhysician:    {domain.PurposeTreatment, domain.PurposeReferral, domain.PurposeEmergency},
		domain.RoleNurse:        {domain.PurposeTreatment, domain.PurposeEmergency},
		domain.RoleAdmin:        {domain.PurposeBilling},
		domain.RoleBilling:      {domain.PurposeBilling},
		domain.RoleReceptionist: {domain.PurposeEmergency},
	}
}

// Authorize reports whether the role may request data for the purpose.
// Pure and deterministic; default-deny.
func (a *Authorizer) Authorize(role domain.Role, purpose domain.Purpose) bool {
	return a.permitted[role][purpose]
}

package phi

import (
	"medgate/internal/patient"
	"medgate/pkg/domain"
)

// Rule describes the disclosure policy for one purpose.
type Rule struct {
	// Roles restricts the rule to specific roles. Empty means any
	// authenticated role (the emergency and research purposes).
	Roles []domain.Role
	// Fields is the base allow-list for every permitted role.
	Fields []patient.Field
	// Extra grants additional fields to specific roles on top of Fields.
	Extra map[domain.Role][]patient.Field
}

func (r Rule) permits(role domain.Role) bool {
	if len(r.Roles) == 0 {
		return true
	}
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Policy maps each purpose to its disclosure rule.
type Policy map[domain.Purpose]Rule

// DefaultPolicy is the production field allow-list per purpose.
//
// The research rule is a known-incomplete de-identification placeholder: it
// stays restricted to dateOfBirth until a proper de-identification pass
// exists. Widening it is a policy change, not a bug fix.
func DefaultPolicy() Policy {
	return Policy{
		domain.PurposeTreatment: {
			Roles: []domain.Role{domain.RolePhysician, domain.RoleNurse},
			Fields: []patient.Field{
				patient.FieldName, patient.FieldDateOfBirth,
				patient.FieldMedicalHistory, patient.FieldMedications, patient.FieldAllergies,
			},
			Extra: map[domain.Role][]patient.Field{
				domain.RolePhysician: {patient.FieldHealthCardNumber},
			},
		},
		domain.PurposeBilling: {
			Roles: []domain.Role{domain.RoleBilling, domain.RoleAdmin},
			Fields: []patient.Field{
				patient.FieldName, patient.FieldAddress, patient.FieldCity,
				patient.FieldProvince, patient.FieldPostalCode, patient.FieldPhoneNumber,
				patient.FieldEmail, patient.FieldInsuranceInfo,
			},
		},
		domain.PurposeReferral: {
			Roles: []domain.Role{domain.RolePhysician},
			Fields: []patient.Field{
				patient.FieldName, patient.FieldDateOfBirth,
				patient.FieldHealthCardNumber, patient.FieldMedicalHistory,
			},
		},
		domain.PurposeEmergency: {
			Fields: []patient.Field{
				patient.FieldName, patient.FieldDateOfBirth,
				patient.FieldAllergies, patient.FieldEmergencyContacts,
			},
			Extra: map[domain.Role][]patient.Field{
				domain.RolePhysician: {patient.FieldMedications},
				domain.RoleNurse:     {patient.FieldMedications},
			},
		},
		domain.PurposeResearch: {
			Fields: []patient.Field{patient.FieldDateOfBirth},
		},
	}
}

// Filter computes the minimal disclosure of a record for a purpose and role.
type Filter struct {
	policy Policy
}

// NewFilter builds a filter over an immutable policy.
func NewFilter(policy Policy) *Filter {
	return &Filter{policy: policy}
}

// Apply returns the redacted record and the exact list of field names that
// were copied, identifier included. The list feeds the audit trail verbatim,
// so it must name fields only, never values.
//
// A purpose with no rule, or a role outside the rule's allow-set, yields the
// bare identifier. Pure function: same inputs, same outputs.
func (f *Filter) Apply(rec *patient.Record, purpose domain.Purpose, role domain.Role) (*patient.Disclosure, []string) {
	disclosed := &patient.Disclosure{ID: rec.ID}
	accessed := []string{string(patient.FieldID)}

	rule, ok := f.policy[purpose]
	if !ok || !rule.permits(role) {
		return disclosed, accessed
	}

	for _, field := range rule.Fields {
		disclosed.Disclose(rec, field)
		accessed = append(accessed, string(field))
	}
	for _, field := range rule.Extra[role] {
		disclosed.Disclose(rec, field)
		accessed = append(accessed, string(field))
	}
	return disclosed, accessed
}

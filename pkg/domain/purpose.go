package domain

import dErrors "medgate/pkg/domain-errors"

// Purpose is a domain value that identifies why patient data is requested.
// Invariant: the value must be one of the supported access purposes.
//
// Usage: construct via ParsePurpose at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Purpose string

// Supported access purposes. The purpose gates both the role permission
// check and the consent lookup.
const (
	PurposeTreatment Purpose = "treatment"
	PurposeBilling   Purpose = "billing"
	PurposeReferral  Purpose = "referral"
	PurposeResearch  Purpose = "research"
	PurposeEmergency Purpose = "emergency"
)

// validPurposes is the single source of truth for valid access purposes.
var validPurposes = map[Purpose]bool{
	PurposeTreatment: true,
	PurposeBilling:   true,
	PurposeReferral:  true,
	PurposeResearch:  true,
	PurposeEmergency: true,
}

// ParsePurpose constructs a Purpose from external input.
//
// Usage: call from handlers/adapters when parsing requests.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported; no
// other errors are expected.
func ParsePurpose(s string) (Purpose, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "purpose cannot be empty")
	}
	p := Purpose(s)
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid purpose")
	}
	return p, nil
}

// IsValid checks if the purpose is one of the supported enum values.
func (p Purpose) IsValid() bool {
	return validPurposes[p]
}

// String returns the string representation of the purpose.
func (p Purpose) String() string {
	return string(p)
}

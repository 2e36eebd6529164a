// Package consent stores and evaluates patient consent grants. A grant ties
// a patient to a purpose; disclosure for that purpose is only lawful while the
// grant is active, unwithdrawn, and unexpired.
package consent

import (
	"time"

	"medgate/pkg/domain"
)

// Denial reasons surfaced to callers and recorded in the audit trail.
const (
	ReasonNoActiveConsent = "no active consent found for this purpose"
	ReasonWithdrawn       = "consent has been withdrawn"
	ReasonExpired         = "consent has expired"
)

// EmergencyJustification is attached to emergency-purpose verifications, which
// bypass the consent lookup entirely.
const EmergencyJustification = "Emergency access permitted under PIPA BC Section 18"

// Grant is one consent record. ExpiresAt nil means the grant does not expire;
// WithdrawnAt is set exactly once, when the patient revokes it.
type Grant struct {
	ID          string         `json:"id"`
	PatientID   string         `json:"patientId"`
	Purpose     domain.Purpose `json:"purpose"`
	GrantedBy   string         `json:"grantedBy"`
	GrantedAt   time.Time      `json:"grantedAt"`
	ExpiresAt   *time.Time     `json:"expiresAt,omitempty"`
	WithdrawnAt *time.Time     `json:"withdrawnAt,omitempty"`
	Active      bool           `json:"active"`
}

// ValidAt reports whether the grant authorizes disclosure at the given time.
// Withdrawal wins over the active flag, and expiry is inclusive of the
// expiry instant itself.
func (g *Grant) ValidAt(now time.Time) bool {
	if !g.Active || g.WithdrawnAt != nil {
		return false
	}
	if g.ExpiresAt != nil && g.ExpiresAt.Before(now) {
		return false
	}
	return true
}

// Verification is the outcome of checking consent for one access request.
// Exactly one of the two shapes occurs: Valid with grant details (or an
// emergency justification), or invalid with a denial reason.
type Verification struct {
	Valid         bool
	ConsentID     string
	ExpiresAt     *time.Time
	Justification string
	Reason        string
}

// Package access orchestrates the PHI disclosure pipeline: authorization by
// role and purpose, consent verification, field filtering, and the mandatory
// audit append. Every request through this package produces exactly one audit
// entry, except lookups of patients that do not exist.
package access

import (
	"time"

	"medgate/internal/patient"
)

// ConsentInfo describes the consent basis of a granted disclosure. Regular
// purposes carry the grant reference; the emergency purpose carries the
// statutory justification instead.
type ConsentInfo struct {
	ConsentID     string     `json:"consentId,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	Justification string     `json:"justification,omitempty"`
}

// Result is a granted disclosure: the filtered record plus its consent basis.
type Result struct {
	Patient *patient.Disclosure `json:"patient"`
	Consent ConsentInfo         `json:"consent"`
}

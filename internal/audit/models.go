// Package audit records every PHI access decision in an append-only trail.
// Recording is mandatory: when the trail cannot be written, the access that
// would have gone unrecorded must fail.
package audit

import (
	"time"

	"medgate/pkg/domain"
)

// Action classifies an audit entry.
type Action string

const (
	ActionPatientAccess    Action = "PATIENT_ACCESS"
	ActionPatientUpdate    Action = "PATIENT_UPDATE"
	ActionAccessDenied     Action = "ACCESS_DENIED"
	ActionConsentGranted   Action = "CONSENT_GRANTED"
	ActionConsentWithdrawn Action = "CONSENT_WITHDRAWN"
)

// Resource types an entry can point at.
const (
	ResourcePatient = "patient"
	ResourceConsent = "consent"
)

// Entry is one immutable audit record. ResourceType/ResourceID name the exact
// record the action touched: the patient for accesses, the grant for consent
// lifecycle events. AccessedFields holds field names only, never field
// values; the tripwire in this package guards that invariant.
type Entry struct {
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	ActorID        string         `json:"actorId"`
	ActorRole      domain.Role    `json:"actorRole"`
	PatientID      string         `json:"patientId"`
	Action         Action         `json:"action"`
	ResourceType   string         `json:"resourceType,omitempty"`
	ResourceID     string         `json:"resourceId,omitempty"`
	Purpose        domain.Purpose `json:"purpose"`
	AccessedFields []string       `json:"accessedFields,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	RequestID      string         `json:"requestId,omitempty"`
	ClientIP       string         `json:"clientIp,omitempty"`
	UserAgent      string         `json:"userAgent,omitempty"`
}

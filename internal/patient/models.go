package patient

import (
	"encoding/json"
	"time"
)

// Record is the full patient chart as stored. The gateway only ever reads and
// redacts records; it never creates, mutates, or deletes them.
type Record struct {
	ID          string
	FirstName   string
	LastName    string
	DateOfBirth string // ISO date string

	// SocialInsuranceNumber has no corresponding Disclosure field and no
	// Field constant: it is not disclosable for any purpose.
	SocialInsuranceNumber string
	HealthCardNumber      string

	Address     string
	City        string
	Province    string
	PostalCode  string
	PhoneNumber string
	Email       string

	MedicalHistory    json.RawMessage
	Medications       json.RawMessage
	Allergies         json.RawMessage
	InsuranceInfo     json.RawMessage
	EmergencyContacts json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is the minimal identifying view used for basic lookup and identity
// verification.
type Summary struct {
	ID          string `json:"id"`
	Initials    string `json:"initials"`
	DateOfBirth string `json:"dateOfBirth"`
}

// Summary derives the minimal view from a record.
func (r *Record) Summary() Summary {
	initials := ""
	if r.FirstName != "" {
		initials += r.FirstName[:1]
	}
	if r.LastName != "" {
		initials += r.LastName[:1]
	}
	return Summary{ID: r.ID, Initials: initials, DateOfBirth: r.DateOfBirth}
}

// Field names one disclosable unit of a patient record. The audit trail
// records these names, never the values behind them.
//
// "name" deliberately covers both name columns: the first/last split is a
// storage detail, not a disclosure decision.
type Field string

const (
	FieldID                Field = "id"
	FieldName              Field = "name"
	FieldDateOfBirth       Field = "dateOfBirth"
	FieldHealthCardNumber  Field = "healthCardNumber"
	FieldAddress           Field = "address"
	FieldCity              Field = "city"
	FieldProvince          Field = "province"
	FieldPostalCode        Field = "postalCode"
	FieldPhoneNumber       Field = "phoneNumber"
	FieldEmail             Field = "email"
	FieldMedicalHistory    Field = "medicalHistory"
	FieldMedications       Field = "medications"
	FieldAllergies         Field = "allergies"
	FieldInsuranceInfo     Field = "insuranceInfo"
	FieldEmergencyContacts Field = "emergencyContacts"
)

// Disclosure is the redacted view of a record returned to callers. Every
// field is optional except the identifier; a field is present iff the
// disclosure policy named it. There is intentionally no field for the
// government identifier, so it cannot be disclosed by any code path.
type Disclosure struct {
	ID                string          `json:"id"`
	FirstName         *string         `json:"firstName,omitempty"`
	LastName          *string         `json:"lastName,omitempty"`
	DateOfBirth       *string         `json:"dateOfBirth,omitempty"`
	HealthCardNumber  *string         `json:"healthCardNumber,omitempty"`
	Address           *string         `json:"address,omitempty"`
	City              *string         `json:"city,omitempty"`
	Province          *string         `json:"province,omitempty"`
	PostalCode        *string         `json:"postalCode,omitempty"`
	PhoneNumber       *string         `json:"phoneNumber,omitempty"`
	Email             *string         `json:"email,omitempty"`
	MedicalHistory    json.RawMessage `json:"medicalHistory,omitempty"`
	Medications       json.RawMessage `json:"medications,omitempty"`
	Allergies         json.RawMessage `json:"allergies,omitempty"`
	InsuranceInfo     json.RawMessage `json:"insuranceInfo,omitempty"`
	EmergencyContacts json.RawMessage `json:"emergencyContacts,omitempty"`
}

// Disclose copies one named field from the record into the disclosure.
// The switch enumerates every disclosable field explicitly so nothing outside
// this list can ever be copied, whatever the policy tables say.
func (d *Disclosure) Disclose(r *Record, f Field) {
	switch f {
	case FieldName:
		d.FirstName = ptr(r.FirstName)
		d.LastName = ptr(r.LastName)
	case FieldDateOfBirth:
		d.DateOfBirth = ptr(r.DateOfBirth)
	case FieldHealthCardNumber:
		d.HealthCardNumber = ptr(r.HealthCardNumber)
	case FieldAddress:
		d.Address = ptr(r.Address)
	case FieldCity:
		d.City = ptr(r.City)
	case FieldProvince:
		d.Province = ptr(r.Province)
	case FieldPostalCode:
		d.PostalCode = ptr(r.PostalCode)
	case FieldPhoneNumber:
		d.PhoneNumber = ptr(r.PhoneNumber)
	case FieldEmail:
		d.Email = ptr(r.Email)
	case FieldMedicalHistory:
		d.MedicalHistory = r.MedicalHistory
	case FieldMedications:
		d.Medications = r.Medications
	case FieldAllergies:
		d.Allergies = r.Allergies
	case FieldInsuranceInfo:
		d.InsuranceInfo = r.InsuranceInfo
	case FieldEmergencyContacts:
		d.EmergencyContacts = r.EmergencyContacts
	}
}

func ptr(s string) *string {
	return &s
}

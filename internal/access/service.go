package access

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"medgate/internal/audit"
	"medgate/internal/consent"
	"medgate/internal/patient"
	"medgate/internal/phi"
	"medgate/internal/platform/metrics"
	"medgate/internal/platform/tracing"
	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
	"medgate/pkg/requestcontext"
)

// consentManagementRoles may record new grants on a patient's behalf.
// Withdrawal is deliberately ungated.
var consentManagementRoles = map[domain.Role]bool{
	domain.RolePhysician: true,
	domain.RoleNurse:     true,
	domain.RoleAdmin:     true,
}

// Service runs the disclosure pipeline. All collaborators are injected so
// tests can assemble it over in-memory stores.
type Service struct {
	authorizer *phi.Authorizer
	filter     *phi.Filter
	patients   patient.Store
	consents   *consent.Service
	auditor    *audit.Service
	metrics    *metrics.Metrics
}

func NewService(
	authorizer *phi.Authorizer,
	filter *phi.Filter,
	patients patient.Store,
	consents *consent.Service,
	auditor *audit.Service,
	m *metrics.Metrics,
) *Service {
	return &Service{
		authorizer: authorizer,
		filter:     filter,
		patients:   patients,
		consents:   consents,
		auditor:    auditor,
		metrics:    m,
	}
}

// RequestAccess runs the full pipeline for one disclosure request.
//
// Stage order is fixed: role/purpose authorization, consent verification,
// patient fetch, field filtering, audit append. Denials at the first two
// stages are themselves audited before the forbidden error is returned; a
// patient that does not exist is a plain not-found with no audit entry, since
// nothing was disclosed and no decision about a real record was made.
func (s *Service) RequestAccess(ctx context.Context, patientID string, purpose domain.Purpose) (result *Result, err error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	ctx, end := tracing.StartSpan(ctx, "access.request",
		attribute.String("access.purpose", string(purpose)),
		attribute.String("access.actor_role", string(actor.Role)),
	)
	defer func() { end(err) }()

	if !s.authorizer.Authorize(actor.Role, purpose) {
		reason := fmt.Sprintf("role %q is not permitted to access records for purpose %q", actor.Role, purpose)
		if err = s.recordDenial(ctx, actor, patientID, purpose, reason); err != nil {
			return nil, err
		}
		s.metrics.IncAccessDenied("authorization")
		err = dErrors.New(dErrors.CodeForbidden, reason)
		return nil, err
	}

	verification, err := s.verifyConsent(ctx, patientID, purpose)
	if err != nil {
		return nil, err
	}
	if !verification.Valid {
		if err = s.recordDenial(ctx, actor, patientID, purpose, verification.Reason); err != nil {
			return nil, err
		}
		s.metrics.IncAccessDenied("consent")
		err = dErrors.New(dErrors.CodeForbidden, verification.Reason)
		return nil, err
	}

	rec, err := s.fetchPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	disclosure, accessed := s.filter.Apply(rec, purpose, actor.Role)

	if err = s.recordAccess(ctx, audit.Entry{
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
		PatientID:      patientID,
		Action:         audit.ActionPatientAccess,
		ResourceType:   audit.ResourcePatient,
		ResourceID:     patientID,
		Purpose:        purpose,
		AccessedFields: accessed,
	}); err != nil {
		return nil, err
	}

	s.metrics.IncAccessGranted()
	return &Result{
		Patient: disclosure,
		Consent: ConsentInfo{
			ConsentID:     verification.ConsentID,
			ExpiresAt:     verification.ExpiresAt,
			Justification: verification.Justification,
		},
	}, nil
}

// GetSummary returns the minimal identifying view of a patient. Summary
// lookups are audited like any other access, with the summary's field names
// and no disclosure purpose.
func (s *Service) GetSummary(ctx context.Context, patientID string) (patient.Summary, error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return patient.Summary{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	rec, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return patient.Summary{}, err
	}
	if err := s.recordAccess(ctx, audit.Entry{
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
		PatientID:      patientID,
		Action:         audit.ActionPatientAccess,
		ResourceType:   audit.ResourcePatient,
		ResourceID:     patientID,
		AccessedFields: []string{"id", "initials", "dateOfBirth"},
	}); err != nil {
		return patient.Summary{}, err
	}
	return rec.Summary(), nil
}

// GrantConsent records a consent grant for the patient. Restricted to roles
// that manage consent at the point of care; the patient must exist.
func (s *Service) GrantConsent(ctx context.Context, patientID string, purpose domain.Purpose, grantedBy string, expiresAt *time.Time) (grant *consent.Grant, err error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !consentManagementRoles[actor.Role] {
		return nil, dErrors.New(dErrors.CodeForbidden, "role may not manage consent")
	}

	ctx, end := tracing.StartSpan(ctx, "access.grant_consent",
		attribute.String("access.purpose", string(purpose)),
	)
	defer func() { end(err) }()

	if _, err = s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}

	grant, err = s.consents.Grant(ctx, patientID, purpose, grantedBy, expiresAt)
	if err != nil {
		return nil, err
	}

	if _, err = s.auditor.Record(ctx, audit.Entry{
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		PatientID:    patientID,
		Action:       audit.ActionConsentGranted,
		ResourceType: audit.ResourceConsent,
		ResourceID:   grant.ID,
		Purpose:      purpose,
	}); err != nil {
		return nil, err
	}

	s.metrics.IncConsentGrant()
	return grant, nil
}

// WithdrawConsent revokes a grant belonging to the patient. Unlike granting,
// withdrawal carries no role restriction: consent can be withdrawn at any
// time, whoever relays the request.
func (s *Service) WithdrawConsent(ctx context.Context, patientID, consentID string) (err error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	ctx, end := tracing.StartSpan(ctx, "access.withdraw_consent")
	defer func() { end(err) }()

	grant, err := s.consents.Withdraw(ctx, patientID, consentID)
	if err != nil {
		return err
	}

	if _, err = s.auditor.Record(ctx, audit.Entry{
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		PatientID:    patientID,
		Action:       audit.ActionConsentWithdrawn,
		ResourceType: audit.ResourceConsent,
		ResourceID:   grant.ID,
		Purpose:      grant.Purpose,
	}); err != nil {
		return err
	}

	s.metrics.IncConsentWithdrawal()
	return nil
}

// AuditTrail returns the audit entries for one patient, oldest first.
func (s *Service) AuditTrail(ctx context.Context, patientID string) ([]audit.Entry, error) {
	if _, ok := requestcontext.Actor(ctx); !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return s.auditor.ListByPatient(ctx, patientID)
}

func (s *Service) verifyConsent(ctx context.Context, patientID string, purpose domain.Purpose) (v consent.Verification, err error) {
	ctx, end := tracing.StartSpan(ctx, "access.verify_consent")
	defer func() { end(err) }()
	return s.consents.Verify(ctx, patientID, purpose)
}

func (s *Service) fetchPatient(ctx context.Context, patientID string) (rec *patient.Record, err error) {
	ctx, end := tracing.StartSpan(ctx, "access.fetch_patient")
	defer func() { end(err) }()
	return s.patients.GetByID(ctx, patientID)
}

func (s *Service) recordAccess(ctx context.Context, entry audit.Entry) (err error) {
	ctx, end := tracing.StartSpan(ctx, "access.record_audit")
	defer func() { end(err) }()
	_, err = s.auditor.Record(ctx, entry)
	return err
}

func (s *Service) recordDenial(ctx context.Context, actor domain.Actor, patientID string, purpose domain.Purpose, reason string) error {
	return s.recordAccess(ctx, audit.Entry{
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		PatientID:    patientID,
		Action:       audit.ActionAccessDenied,
		ResourceType: audit.ResourcePatient,
		ResourceID:   patientID,
		Purpose:      purpose,
		Reason:       reason,
	})
}

package consent

import (
	"context"
	"time"

	"github.com/google/uuid"

	"medgate/internal/storage"
	"medgate/pkg/domain"
	dErrors "medgate/pkg/domain-errors"
	"medgate/pkg/requestcontext"
)

// Service evaluates and mutates consent grants. It keeps orchestration out of
// handlers and the validity rules out of stores.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Verify checks whether disclosure for the purpose is covered by consent at
// the request time.
//
// The emergency purpose never consults the store: emergency access is lawful
// without prior consent, and the verification carries the statutory
// justification instead of a grant reference. For every other purpose the
// latest grant decides, with withdrawal reported ahead of expiry.
func (s *Service) Verify(ctx context.Context, patientID string, purpose domain.Purpose) (Verification, error) {
	if purpose == domain.PurposeEmergency {
		return Verification{Valid: true, Justification: EmergencyJustification}, nil
	}

	now := requestcontext.Now(ctx)
	grant, err := s.store.FindLatest(ctx, patientID, purpose)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			return Verification{Reason: ReasonNoActiveConsent}, nil
		}
		return Verification{}, dErrors.Wrap(err, dErrors.CodeInternal, "consent lookup failed")
	}

	switch {
	case grant.WithdrawnAt != nil:
		return Verification{Reason: ReasonWithdrawn}, nil
	case grant.ExpiresAt != nil && grant.ExpiresAt.Before(now):
		return Verification{Reason: ReasonExpired}, nil
	case !grant.Active:
		return Verification{Reason: ReasonNoActiveConsent}, nil
	}

	return Verification{Valid: true, ConsentID: grant.ID, ExpiresAt: grant.ExpiresAt}, nil
}

// Grant records a new consent grant for the patient and purpose.
func (s *Service) Grant(ctx context.Context, patientID string, purpose domain.Purpose, grantedBy string, expiresAt *time.Time) (*Grant, error) {
	if grantedBy == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "grantedBy is required")
	}
	now := requestcontext.Now(ctx)
	if expiresAt != nil && expiresAt.Before(now) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "expiresAt must be in the future")
	}

	grant := &Grant{
		ID:        uuid.NewString(),
		PatientID: patientID,
		Purpose:   purpose,
		GrantedBy: grantedBy,
		GrantedAt: now,
		ExpiresAt: expiresAt,
		Active:    true,
	}
	if err := s.store.Insert(ctx, grant); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store consent grant")
	}
	return grant, nil
}

// Withdraw revokes a grant belonging to the patient. A grant under a
// different patient is reported as not found rather than forbidden, so the
// endpoint does not leak which consent IDs exist.
func (s *Service) Withdraw(ctx context.Context, patientID, consentID string) (*Grant, error) {
	grant, err := s.store.GetByID(ctx, consentID)
	if err != nil {
		return nil, err
	}
	if grant.PatientID != patientID {
		return nil, storage.ErrNotFound
	}
	if grant.WithdrawnAt != nil {
		return nil, dErrors.New(dErrors.CodeConflict, "consent has already been withdrawn")
	}

	now := requestcontext.Now(ctx)
	if err := s.store.Withdraw(ctx, consentID, now); err != nil {
		return nil, err
	}
	grant.WithdrawnAt = &now
	grant.Active = false
	return grant, nil
}

package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"medgate/internal/platform/metrics"
	dErrors "medgate/pkg/domain-errors"
	"medgate/pkg/requestcontext"
)

// Sink receives a copy of every recorded entry after it has been persisted.
// Sinks are best-effort fan-out (Kafka, log shippers); the store append is
// the mandatory write.
type Sink interface {
	Publish(entry Entry)
}

// Service records audit entries. Append failures are fatal to the operation
// being audited: an unrecorded PHI access must not succeed.
type Service struct {
	store   Store
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(store Store, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, logger: logger, metrics: m}
}

// WithSink attaches a best-effort fan-out sink.
func (s *Service) WithSink(sink Sink) *Service {
	s.sink = sink
	return s
}

// Record assigns the entry's identity and timestamp, stamps it with request
// metadata from the context, and appends it to the trail.
//
// The accessed-fields tripwire fires a warning and a metric when the list
// looks like it carries values instead of names, but never blocks the append:
// a suspect entry in the trail beats no entry at all.
func (s *Service) Record(ctx context.Context, entry Entry) (*Entry, error) {
	entry.ID = uuid.NewString()
	entry.Timestamp = requestcontext.Now(ctx)
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}
	if entry.ClientIP == "" {
		entry.ClientIP = requestcontext.ClientIP(ctx)
	}
	if entry.UserAgent == "" {
		entry.UserAgent = requestcontext.UserAgent(ctx)
	}

	if looksLikeValue(entry.AccessedFields) {
		s.metrics.IncTripwireHit()
		s.logger.Warn("audit accessed-fields list matched a value-shaped pattern",
			"action", entry.Action,
			"patient_id", entry.PatientID,
			"request_id", entry.RequestID,
		)
	}

	if err := s.store.Append(ctx, entry); err != nil {
		s.metrics.IncAuditAppendFailure()
		s.logger.Error("audit append failed",
			"error", err,
			"action", entry.Action,
			"patient_id", entry.PatientID,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "audit trail unavailable")
	}

	if s.sink != nil {
		s.sink.Publish(entry)
	}
	return &entry, nil
}

// ListByPatient returns the trail for one patient, oldest first.
func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]Entry, error) {
	return s.store.ListByPatient(ctx, patientID)
}

package audit

import "context"

// Store is an append-only sink for audit entries. There is no update or
// delete; ListByPatient exists for compliance review and tests.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByPatient(ctx context.Context, patientID string) ([]Entry, error)
}

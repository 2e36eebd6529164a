package patient

import "context"

// Store is the read-only view of the patient record collaborator.
type Store interface {
	GetByID(ctx context.Context, id string) (*Record, error)
}

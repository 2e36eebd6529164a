package consent

import (
	"context"
	"time"

	"medgate/pkg/domain"
)

// Store persists consent grants.
//
// FindLatest returns the grant that decides consent for the (patient,
// purpose) pair: the most recently granted active grant when one exists, and
// only otherwise the most recent inactive one, or storage.ErrNotFound when
// the pair has never been granted. A withdrawn grant must never shadow a
// still-active one; inactive grants are returned solely so the verifier can
// report why access was denied.
type Store interface {
	Insert(ctx context.Context, grant *Grant) error
	GetByID(ctx context.Context, id string) (*Grant, error)
	FindLatest(ctx context.Context, patientID string, purpose domain.Purpose) (*Grant, error)
	Withdraw(ctx context.Context, id string, withdrawnAt time.Time) error
}

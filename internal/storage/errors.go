package storage

import dErrors "medgate/pkg/domain-errors"

var (
	// ErrNotFound keeps storage-specific 404s consistent across the in-memory
	// and PostgreSQL implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")
)

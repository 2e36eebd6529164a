package consent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"medgate/internal/storage"
	"medgate/pkg/domain"
)

// PostgresStore persists consent grants in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed consent store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, grant *Grant) error {
	query := `
		INSERT INTO consent_grants (id, patient_id, purpose, granted_by, granted_at, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		grant.ID, grant.PatientID, string(grant.Purpose),
		grant.GrantedBy, grant.GrantedAt, grant.ExpiresAt, grant.Active,
	)
	if err != nil {
		return fmt.Errorf("insert consent grant: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Grant, error) {
	query := `
		SELECT id, patient_id, purpose, granted_by, granted_at, expires_at, withdrawn_at, active
		FROM consent_grants
		WHERE id = $1
	`
	return s.scanGrant(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) FindLatest(ctx context.Context, patientID string, purpose domain.Purpose) (*Grant, error) {
	query := `
		SELECT id, patient_id, purpose, granted_by, granted_at, expires_at, withdrawn_at, active
		FROM consent_grants
		WHERE patient_id = $1 AND purpose = $2
		ORDER BY active DESC, granted_at DESC
		LIMIT 1
	`
	return s.scanGrant(s.db.QueryRowContext(ctx, query, patientID, string(purpose)))
}

func (s *PostgresStore) Withdraw(ctx context.Context, id string, withdrawnAt time.Time) error {
	query := `
		UPDATE consent_grants
		SET withdrawn_at = $2, active = FALSE
		WHERE id = $1 AND withdrawn_at IS NULL
	`
	res, err := s.db.ExecContext(ctx, query, id, withdrawnAt)
	if err != nil {
		return fmt.Errorf("withdraw consent grant: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("withdraw consent grant: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) scanGrant(row *sql.Row) (*Grant, error) {
	var (
		g       Grant
		purpose string
	)
	err := row.Scan(&g.ID, &g.PatientID, &purpose, &g.GrantedBy,
		&g.GrantedAt, &g.ExpiresAt, &g.WithdrawnAt, &g.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan consent grant: %w", err)
	}
	g.Purpose = domain.Purpose(purpose)
	return &g, nil
}

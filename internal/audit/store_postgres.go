package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"medgate/pkg/domain"
)

// PostgresStore persists audit entries in PostgreSQL. The audit_entries table
// has no UPDATE or DELETE path in this codebase; the trail only grows.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO audit_entries
			(id, created_at, actor_id, actor_role, patient_id, action,
			 resource_type, resource_id, purpose,
			 accessed_fields, reason, request_id, client_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.Timestamp, entry.ActorID, string(entry.ActorRole),
		entry.PatientID, string(entry.Action),
		entry.ResourceType, entry.ResourceID, string(entry.Purpose),
		pq.Array(entry.AccessedFields), entry.Reason,
		entry.RequestID, entry.ClientIP, entry.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByPatient(ctx context.Context, patientID string) ([]Entry, error) {
	query := `
		SELECT id, created_at, actor_id, actor_role, patient_id, action,
		       resource_type, resource_id, purpose,
		       accessed_fields, reason, request_id, client_ip, user_agent
		FROM audit_entries
		WHERE patient_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e            Entry
			role, action string
			purpose      string
			fields       pq.StringArray
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ActorID, &role, &e.PatientID,
			&action, &e.ResourceType, &e.ResourceID, &purpose,
			&fields, &e.Reason, &e.RequestID, &e.ClientIP, &e.UserAgent); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ActorRole = domain.Role(role)
		e.Action = Action(action)
		e.Purpose = domain.Purpose(purpose)
		e.AccessedFields = fields
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return out, nil
}

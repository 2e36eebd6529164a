package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medgate/internal/storage"
)

// PostgresStore reads patient records from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed patient store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, first_name, last_name, date_of_birth,
		       COALESCE(social_insurance_number, ''), COALESCE(health_card_number, ''),
		       COALESCE(address, ''), COALESCE(city, ''), COALESCE(province, ''),
		       COALESCE(postal_code, ''), COALESCE(phone_number, ''), COALESCE(email, ''),
		       medical_history, medications, allergies, insurance_info, emergency_contacts,
		       created_at, updated_at
		FROM patients
		WHERE id = $1
	`
	var r Record
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.FirstName, &r.LastName, &r.DateOfBirth,
		&r.SocialInsuranceNumber, &r.HealthCardNumber,
		&r.Address, &r.City, &r.Province,
		&r.PostalCode, &r.PhoneNumber, &r.Email,
		&r.MedicalHistory, &r.Medications, &r.Allergies, &r.InsuranceInfo, &r.EmergencyContacts,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return &r, nil
}

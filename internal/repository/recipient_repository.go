package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/givance/outreach-backend/internal/model"
)

func intArray(ids []int) pq.Int64Array {
	arr := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		arr[i] = int64(id)
	}
	return arr
}

// RecipientRepositoryInterface is the read-only profile source consumed
// by the generation orchestrator.
type RecipientRepositoryInterface interface {
	GetByID(id int) (*model.Recipient, error)
	ListByIDs(ids []int) ([]model.Recipient, error)
}

// RecipientRepository is the concrete implementation
type RecipientRepository struct {
	DB *sql.DB
}

// GetByID fetches a recipient profile by ID
func (r *RecipientRepository) GetByID(id int) (*model.Recipient, error) {
	query := `
        SELECT id, email, first_name, last_name, location, donor_stage, lifetime_giving, notes
        FROM recipients
        WHERE id = $1
    `
	row := r.DB.QueryRow(query, id)

	var rec model.Recipient
	if err := row.Scan(&rec.ID, &rec.Email, &rec.FirstName, &rec.LastName, &rec.Location, &rec.DonorStage, &rec.LifetimeGiving, &rec.Notes); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &rec, nil
}

// ListByIDs fetches the profiles for a recipient selection
func (r *RecipientRepository) ListByIDs(ids []int) ([]model.Recipient, error) {
	query := `
        SELECT id, email, first_name, last_name, location, donor_stage, lifetime_giving, notes
        FROM recipients
        WHERE id = ANY($1)
    `
	rows, err := r.DB.Query(query, intArray(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		var rec model.Recipient
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.FirstName, &rec.LastName, &rec.Location, &rec.DonorStage, &rec.LifetimeGiving, &rec.Notes); err != nil {
			return nil, err
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

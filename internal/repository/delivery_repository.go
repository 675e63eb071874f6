package repository

import (
	"database/sql"
	"time"

	"github.com/givance/outreach-backend/internal/model"
)

// DeliveryRepositoryInterface defines the methods the worker needs
type DeliveryRepositoryInterface interface {
	Create(d *model.Delivery) error
	Update(d *model.Delivery) error
	GetByCampaignAndRecipient(campaignID string, recipientID int) (*model.Delivery, error)
}

type DeliveryRepository struct {
	DB *sql.DB
}

// Create inserts a new delivery row and returns the created ID
func (r *DeliveryRepository) Create(d *model.Delivery) error {
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	query := `
        INSERT INTO deliveries
        (campaign_id, recipient_id, subject, body, status, last_error, retry_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
	return r.DB.QueryRow(
		query,
		d.CampaignID,
		d.RecipientID,
		d.Subject,
		d.Body,
		d.Status,
		d.LastError,
		d.RetryCount,
		d.CreatedAt,
		d.UpdatedAt,
	).Scan(&d.ID)
}

// Update updates an existing delivery (status, last_error, retry_count)
func (r *DeliveryRepository) Update(d *model.Delivery) error {
	d.UpdatedAt = time.Now()
	query := `
        UPDATE deliveries
        SET status=$1, last_error=$2, retry_count=$3, updated_at=$4
        WHERE id=$5
    `
	_, err := r.DB.Exec(query, d.Status, d.LastError, d.RetryCount, d.UpdatedAt, d.ID)
	return err
}

// GetByCampaignAndRecipient fetches an existing delivery so the worker
// can process a redelivered job idempotently.
func (r *DeliveryRepository) GetByCampaignAndRecipient(campaignID string, recipientID int) (*model.Delivery, error) {
	query := `
        SELECT id, campaign_id, recipient_id, subject, body, status, last_error, retry_count, created_at, updated_at
        FROM deliveries
        WHERE campaign_id = $1 AND recipient_id = $2
    `
	var d model.Delivery
	err := r.DB.QueryRow(query, campaignID, recipientID).Scan(
		&d.ID,
		&d.CampaignID,
		&d.RecipientID,
		&d.Subject,
		&d.Body,
		&d.Status,
		&d.LastError,
		&d.RetryCount,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// StatsByCampaign returns delivery counts by status for a campaign
func (r *DeliveryRepository) StatsByCampaign(campaignID string) (map[string]int, error) {
	query := `
        SELECT status, COUNT(*)
        FROM deliveries
        WHERE campaign_id = $1
        GROUP BY status
    `
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		"total":  0,
		"queued": 0,
		"sent":   0,
		"failed": 0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		if _, ok := stats[status]; ok {
			stats[status] = count
		}
		stats["total"] += count
	}
	return stats, rows.Err()
}

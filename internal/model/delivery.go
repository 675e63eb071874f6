// internal/model/delivery.go
package model

import "time"

// Delivery is one queued outbound email picked up by the worker after
// a campaign batch is published.
type Delivery struct {
	ID          int       `db:"id" json:"id"`
	CampaignID  string    `db:"campaign_id" json:"campaign_id"`
	RecipientID int       `db:"recipient_id" json:"recipient_id"`
	Subject     string    `db:"subject" json:"subject"`
	Body        string    `db:"body" json:"body"`
	Status      string    `db:"status" json:"status"` // queued, sent, failed
	LastError   string    `db:"last_error,omitempty" json:"last_error,omitempty"`
	RetryCount  int       `db:"retry_count" json:"retry_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

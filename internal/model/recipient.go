// internal/model/recipient.go
package model

// Recipient is a donor profile used to personalize generated emails.
type Recipient struct {
	ID             int     `db:"id" json:"id"`
	Email          string  `db:"email" json:"email"`
	FirstName      string  `db:"first_name" json:"first_name"`
	LastName       string  `db:"last_name" json:"last_name"`
	Location       string  `db:"location" json:"location"`
	DonorStage     string  `db:"donor_stage" json:"donor_stage"`
	LifetimeGiving float64 `db:"lifetime_giving" json:"lifetime_giving"`
	Notes          string  `db:"notes" json:"notes"`
}

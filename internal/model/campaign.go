// internal/model/campaign.go
package model

import "time"

// CampaignStatus is the lifecycle state of a campaign. Transitions are
// owned by service.CampaignService; nothing else mutates it.
type CampaignStatus string

const (
	StatusSelectingRecipients CampaignStatus = "selecting_recipients"
	StatusNaming              CampaignStatus = "naming"
	StatusSelectingTemplate   CampaignStatus = "selecting_template"
	StatusWritingInstruction  CampaignStatus = "writing_instruction"
	StatusGenerating          CampaignStatus = "generating"
	StatusReviewing           CampaignStatus = "reviewing"
	StatusSending             CampaignStatus = "sending"
	StatusSent                CampaignStatus = "sent"
	StatusAbandoned           CampaignStatus = "abandoned"
)

// Terminal reports whether no further transitions are possible.
func (s CampaignStatus) Terminal() bool {
	return s == StatusAbandoned
}

type Campaign struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Status         CampaignStatus `json:"status"`
	RecipientIDs   []int          `json:"recipient_ids"`
	TemplateRef    string         `json:"template_ref,omitempty"`
	LastError      string         `json:"last_error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	TransitionedAt time.Time      `json:"transitioned_at"`
}

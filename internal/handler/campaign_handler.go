// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/givance/outreach-backend/internal/errors"
	"github.com/givance/outreach-backend/internal/model"
	"github.com/givance/outreach-backend/internal/service"
)

// DeliveryStatsSource reports per-status delivery counts from the
// delivery log. Implemented by repository.DeliveryRepository.
type DeliveryStatsSource interface {
	StatsByCampaign(campaignID string) (map[string]int, error)
}

// RecipientSource resolves the donor profiles behind a selection.
// Implemented by repository.RecipientRepository.
type RecipientSource interface {
	ListByIDs(ids []int) ([]model.Recipient, error)
}

// CampaignHandler holds the read-side HTTP handlers: campaign details,
// draft listing, run progress polling, and the delivery log.
type CampaignHandler struct {
	Service    *service.CampaignService
	Deliveries DeliveryStatsSource
	Recipients RecipientSource
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func readError(w http.ResponseWriter, err error) {
	var notFound *appErrors.ErrCampaignNotFound
	if errors.As(err, &notFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	var validation *appErrors.ValidationError
	if errors.As(err, &validation) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// ListCampaigns returns all campaigns, newest first.
func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"data": h.Service.ListCampaigns(),
	})
}

// GetCampaign returns one campaign with draft stats and the latest run.
func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	details, err := h.Service.GetCampaignDetails(id)
	if err != nil {
		readError(w, err)
		return
	}
	writeJSON(w, details)
}

// GetRun returns the most recent generation run for progress polling.
func (h *CampaignHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.Service.Progress(id)
	if err != nil {
		readError(w, err)
		return
	}
	writeJSON(w, run)
}

// ListRecipients returns the donor profiles behind the campaign's
// recipient selection.
func (h *CampaignHandler) ListRecipients(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.Service.GetCampaign(id)
	if err != nil {
		readError(w, err)
		return
	}
	recipients, err := h.Recipients.ListByIDs(c.RecipientIDs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"data": recipients})
}

// GetDeliveryStats returns delivery counts by status once a campaign's
// batch has been published.
func (h *CampaignHandler) GetDeliveryStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.Service.GetCampaign(id); err != nil {
		readError(w, err)
		return
	}
	stats, err := h.Deliveries.StatsByCampaign(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

// ListDrafts returns the draft snapshot with effective content.
func (h *CampaignHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	drafts, err := h.Service.Drafts(id)
	if err != nil {
		readError(w, err)
		return
	}

	type draftView struct {
		RecipientID      int    `json:"recipient_id"`
		Status           string `json:"status"`
		EffectiveSubject string `json:"effective_subject"`
		EffectiveBody    string `json:"effective_body"`
		Overridden       bool   `json:"overridden"`
		FailureReason    string `json:"failure_reason,omitempty"`
	}
	views := make([]draftView, 0, len(drafts))
	for i := range drafts {
		d := drafts[i]
		views = append(views, draftView{
			RecipientID:      d.RecipientID,
			Status:           string(d.Status),
			EffectiveSubject: d.EffectiveSubject(),
			EffectiveBody:    d.EffectiveBody(),
			Overridden:       d.Overridden,
			FailureReason:    d.FailureReason,
		})
	}
	writeJSON(w, map[string]any{"data": views})
}

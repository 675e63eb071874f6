// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/givance/outreach-backend/internal/errors"
	"github.com/givance/outreach-backend/internal/service"
)

// CampaignController exposes the lifecycle transitions over HTTP. Read
// endpoints live in handler.CampaignHandler.
type CampaignController struct {
	CampaignService *service.CampaignService
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError maps the typed error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		validation *appErrors.ValidationError
		conflict   *appErrors.ConflictError
		notFound   *appErrors.ErrCampaignNotFound
		invariant  *appErrors.InvariantViolation
		publish    *appErrors.PublishError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &conflict):
		status = http.StatusConflict
	case errors.As(err, &publish):
		status = http.StatusBadGateway
	case errors.As(err, &invariant):
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	campaign := c.CampaignService.CreateCampaign()
	writeJSON(w, campaign)
}

func (c *CampaignController) SelectRecipients(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		RecipientIDs []int `json:"recipient_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.SelectRecipients(id, body.RecipientIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, campaign)
}

func (c *CampaignController) SetName(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.SetName(id, body.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, campaign)
}

func (c *CampaignController) SelectTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		TemplateRef string `json:"template_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.SelectTemplate(id, body.TemplateRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, campaign)
}

func (c *CampaignController) SubmitInstruction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	run, err := c.CampaignService.SubmitInstruction(id, body.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, run)
}

func (c *CampaignController) Regenerate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	run, err := c.CampaignService.Regenerate(id, body.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, run)
}

func (c *CampaignController) EditDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	recipientID, err := strconv.Atoi(chi.URLParam(r, "recipientID"))
	if err != nil {
		http.Error(w, "invalid recipient id", http.StatusBadRequest)
		return
	}

	var body struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	d, err := c.CampaignService.EditDraft(id, recipientID, body.Subject, body.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, d)
}

func (c *CampaignController) RevertDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	recipientID, err := strconv.Atoi(chi.URLParam(r, "recipientID"))
	if err != nil {
		http.Error(w, "invalid recipient id", http.StatusBadRequest)
		return
	}

	d, err := c.CampaignService.RevertDraft(id, recipientID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, d)
}

func (c *CampaignController) Send(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, err := c.CampaignService.Send(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, campaign)
}

func (c *CampaignController) Abandon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, err := c.CampaignService.Abandon(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, campaign)
}

func (c *CampaignController) EnterEditMode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, err := c.CampaignService.EnterEditMode(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, campaign)
}

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/givance/outreach-backend/internal/generation"
	"github.com/givance/outreach-backend/internal/model"
	"github.com/givance/outreach-backend/internal/queue"
	"github.com/givance/outreach-backend/internal/service"
)

type stubClient struct{}

func (stubClient) Generate(ctx context.Context, req generation.Request) (generation.Result, error) {
	return generation.Result{Subject: "Hi", Body: "Thanks."}, nil
}

type stubProfiles struct{}

func (stubProfiles) GetByID(id int) (*model.Recipient, error) {
	return &model.Recipient{ID: id, FirstName: fmt.Sprintf("Donor%d", id)}, nil
}

type stubPublisher struct{}

func (stubPublisher) Publish(campaignID string, entries []queue.Entry) error { return nil }

type stubDeliveryStats struct {
	stats map[string]int
}

func (s stubDeliveryStats) StatsByCampaign(campaignID string) (map[string]int, error) {
	return s.stats, nil
}

type stubRecipients struct{}

func (stubRecipients) ListByIDs(ids []int) ([]model.Recipient, error) {
	out := make([]model.Recipient, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Recipient{ID: id, FirstName: fmt.Sprintf("Donor%d", id)})
	}
	return out, nil
}

func newTestHandler() (*chi.Mux, *service.CampaignService) {
	orc := &generation.Orchestrator{
		Client:   stubClient{},
		Profiles: stubProfiles{},
		Config:   generation.Config{Concurrency: 2, MaxRetries: 0, Backoff: time.Millisecond, CallTimeout: time.Second},
	}
	svc := service.NewCampaignService(orc, stubPublisher{})
	h := &CampaignHandler{
		Service:    svc,
		Deliveries: stubDeliveryStats{stats: map[string]int{"total": 2, "queued": 0, "sent": 2, "failed": 0}},
		Recipients: stubRecipients{},
	}
	r := chi.NewRouter()
	r.Get("/campaigns/{id}", h.GetCampaign)
	r.Get("/campaigns/{id}/recipients", h.ListRecipients)
	r.Get("/campaigns/{id}/deliveries", h.GetDeliveryStats)
	return r, svc
}

func doGet(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListRecipientsResolvesSelection(t *testing.T) {
	r, svc := newTestHandler()
	c := svc.CreateCampaign()
	if _, err := svc.SelectRecipients(c.ID, []int{1, 2}); err != nil {
		t.Fatal(err)
	}

	w := doGet(t, r, "/campaigns/"+c.ID+"/recipients")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Data []model.Recipient `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Data) != 2 || body.Data[0].FirstName != "Donor1" {
		t.Errorf("unexpected recipients: %+v", body.Data)
	}

	if w := doGet(t, r, "/campaigns/nope/recipients"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown campaign, got %d", w.Code)
	}
}

func TestGetDeliveryStats(t *testing.T) {
	r, svc := newTestHandler()
	c := svc.CreateCampaign()

	w := doGet(t, r, "/campaigns/"+c.ID+"/deliveries")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats["sent"] != 2 || stats["total"] != 2 {
		t.Errorf("unexpected stats: %v", stats)
	}

	if w := doGet(t, r, "/campaigns/nope/deliveries"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown campaign, got %d", w.Code)
	}
}

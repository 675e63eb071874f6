// internal/service/campaign_service.go
package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/givance/outreach-backend/internal/chat"
	"github.com/givance/outreach-backend/internal/draft"
	appErrors "github.com/givance/outreach-backend/internal/errors"
	"github.com/givance/outreach-backend/internal/generation"
	"github.com/givance/outreach-backend/internal/model"
	"github.com/givance/outreach-backend/internal/queue"
)

// userFacingGenerationError matches the retry affordance shown in the UI
// when every recipient failed.
const userFacingGenerationError = "Failed to generate emails. Please try again."

// CampaignService drives campaigns through their lifecycle. All
// mutations to one campaign's state, history, or drafts serialize
// through that campaign's lock; distinct campaigns never contend.
type CampaignService struct {
	mu        sync.Mutex
	campaigns map[string]*campaignState

	Orchestrator *generation.Orchestrator
	Publisher    queue.Publisher
}

// campaignState bundles everything owned by one campaign behind its lock.
type campaignState struct {
	mu        sync.Mutex
	campaign  model.Campaign
	history   *chat.History
	drafts    *draft.Store
	runs      map[string]*model.GenerationRun
	current   *model.GenerationRun
	cancelRun context.CancelFunc
	lastRunID string
}

func NewCampaignService(orc *generation.Orchestrator, pub queue.Publisher) *CampaignService {
	return &CampaignService{
		campaigns:    make(map[string]*campaignState),
		Orchestrator: orc,
		Publisher:    pub,
	}
}

func (s *CampaignService) state(id string) (*campaignState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return st, nil
}

// setStatus is the single place a campaign changes state.
func (st *campaignState) setStatus(status model.CampaignStatus) {
	st.campaign.Status = status
	st.campaign.TransitionedAt = time.Now()
}

func (st *campaignState) campaignCopy() model.Campaign {
	c := st.campaign
	c.RecipientIDs = append([]int(nil), st.campaign.RecipientIDs...)
	return c
}

// CreateCampaign starts a new campaign at the recipient selection step.
func (s *CampaignService) CreateCampaign() model.Campaign {
	now := time.Now()
	st := &campaignState{
		campaign: model.Campaign{
			ID:             uuid.NewString(),
			Status:         model.StatusSelectingRecipients,
			CreatedAt:      now,
			TransitionedAt: now,
		},
		history: chat.NewHistory(),
		drafts:  draft.NewStore(),
		runs:    make(map[string]*model.GenerationRun),
	}

	s.mu.Lock()
	s.campaigns[st.campaign.ID] = st
	s.mu.Unlock()

	return st.campaignCopy()
}

// ListCampaigns returns all campaigns, newest first.
func (s *CampaignService) ListCampaigns() []model.Campaign {
	s.mu.Lock()
	states := make([]*campaignState, 0, len(s.campaigns))
	for _, st := range s.campaigns {
		states = append(states, st)
	}
	s.mu.Unlock()

	out := make([]model.Campaign, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		out = append(out, st.campaignCopy())
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// SelectRecipients stores the immutable recipient set for the campaign.
func (s *CampaignService) SelectRecipients(id string, recipientIDs []int) (model.Campaign, error) {
	st, err := s.state(id)
	if err != nil {
		return model.Campaign{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.campaign.Status != model.StatusSelectingRecipients {
		return model.Campaign{}, appErrors.NewValidation("recipients can only be selected in %s, campaign is %s", model.StatusSelectingRecipients, st.campaign.Status)
	}
	if len(recipientIDs) == 0 {
		return model.Campaign{}, appErrors.NewValidation("recipient set must not be empty")
	}

	seen := make(map[int]bool, len(recipientIDs))
	deduped := make([]int, 0, len(recipientIDs))
	for _, rid := range recipientIDs {
		if !seen[rid] {
			seen[rid] = true
			deduped = append(deduped, rid)
		}
	}

	st.campaign.RecipientIDs = deduped
	st.setStatus(model.StatusNaming)
	return st.campaignCopy(), nil
}

// SetName names the campaign.
func (s *CampaignService) SetName(id, name string) (model.Campaign, error) {
	st, err := s.state(id)
	if err != nil {
		return model.Campaign{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.campaign.Status != model.StatusNaming {
		return model.Campaign{}, appErrors.NewValidation("name can only be set in %s, campaign is %s", model.StatusNaming, st.campaign.Status)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Campaign{}, appErrors.NewValidation("campaign name must not be empty")
	}

	st.campaign.Name = name
	st.setStatus(model.StatusSelectingTemplate)
	return st.campaignCopy(), nil
}

// SelectTemplate records an optional template reference.
func (s *CampaignService) SelectTemplate(id, templateRef string) (model.Campaign, error) {
	st, err := s.state(id)
	if err != nil {
		return model.Campaign{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.campaign.Status != model.StatusSelectingTemplate {
		return model.Campaign{}, appErrors.NewValidation("template can only be selected in %s, campaign is %s", model.StatusSelectingTemplate, st.campaign.Status)
	}

	st.campaign.TemplateRef = strings.TrimSpace(templateRef)
	st.setStatus(model.StatusWritingInstruction)
	return st.campaignCopy(), nil
}

// SubmitInstruction appends the instruction to the chat history and
// kicks off a generation run. It returns as soon as the run is
// initialized; progress is observed via Progress.
func (s *CampaignService) SubmitInstruction(id, text string) (model.GenerationRun, error) {
	return s.startRunFrom(id, text, []model.CampaignStatus{model.StatusWritingInstruction})
}

// Regenerate appends a refinement turn and starts a fresh run. Legal
// while reviewing, or mid-generation (the outstanding run is cancelled,
// its late results discarded by run id). Prior drafts stay visible
// until the new run's results overwrite them per recipient.
func (s *CampaignService) Regenerate(id, text string) (model.GenerationRun, error) {
	return s.startRunFrom(id, text, []model.CampaignStatus{model.StatusReviewing, model.StatusGenerating})
}

func (s *CampaignService) startRunFrom(id, text string, allowed []model.CampaignStatus) (model.GenerationRun, error) {
	st, err := s.state(id)
	if err != nil {
		return model.GenerationRun{}, err
	}

	st.mu.Lock()

	ok := false
	for _, status := range allowed {
		if st.campaign.Status == status {
			ok = true
			break
		}
	}
	if !ok {
		status := st.campaign.Status
		st.mu.Unlock()
		if status == model.StatusGenerating {
			return model.GenerationRun{}, appErrors.NewConflict(id, "a generation run is already active")
		}
		return model.GenerationRun{}, appErrors.NewValidation("cannot submit an instruction while campaign is %s", status)
	}
	if strings.TrimSpace(text) == "" {
		st.mu.Unlock()
		return model.GenerationRun{}, appErrors.NewValidation("instruction text must not be empty")
	}

	if st.current != nil {
		if st.campaign.Status == model.StatusGenerating {
			// Regeneration supersedes the outstanding run.
			st.cancelCurrentRunLocked()
		} else {
			st.mu.Unlock()
			return model.GenerationRun{}, appErrors.NewConflict(id, "a generation run is already active")
		}
	}

	if _, err := st.history.Append(model.RoleOperator, text); err != nil {
		st.mu.Unlock()
		log.Println("⚠️ chat history append failed:", err)
		return model.GenerationRun{}, err
	}

	// Run initialization happens under the lock; the fan-out does not.
	priorDrafts := make(map[int]model.Draft)
	for _, d := range st.drafts.Snapshot() {
		priorDrafts[d.RecipientID] = d
	}

	run := &model.GenerationRun{
		ID:           uuid.NewString(),
		CampaignID:   st.campaign.ID,
		SourceSeq:    st.history.LastSeq(),
		RecipientIDs: append([]int(nil), st.campaign.RecipientIDs...),
		Status:       model.RunRunning,
		Pending:      len(st.campaign.RecipientIDs),
		StartedAt:    time.Now(),
	}
	st.drafts.InitForRun(run.ID, run.SourceSeq, run.RecipientIDs)
	st.runs[run.ID] = run
	st.current = run
	st.lastRunID = run.ID

	runCtx, cancel := context.WithCancel(context.Background())
	st.cancelRun = cancel

	st.campaign.LastError = ""
	st.setStatus(model.StatusGenerating)

	history := st.history.Turns()
	templateRef := st.campaign.TemplateRef
	snapshot := *run
	st.mu.Unlock()

	s.Orchestrator.Start(runCtx, run, history, priorDrafts, templateRef, s)
	return snapshot, nil
}

// cancelCurrentRunLocked marks the outstanding run cancelled. In-flight
// generation calls are not interrupted; their results are discarded at
// record time because the run id is no longer current.
func (st *campaignState) cancelCurrentRunLocked() {
	if st.current == nil {
		return
	}
	if st.cancelRun != nil {
		st.cancelRun()
	}
	now := time.Now()
	st.current.Status = model.RunCancelled
	st.current.FinishedAt = &now
	st.current = nil
	st.cancelRun = nil
}

// RecordResult is the orchestrator sink for one per-recipient outcome.
// It briefly re-acquires the campaign lock; stale run ids are dropped.
func (s *CampaignService) RecordResult(campaignID, runID string, out model.Outcome) {
	st, err := s.state(campaignID)
	if err != nil {
		log.Println("⚠️ result for unknown campaign:", campaignID)
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.current == nil || st.current.ID != runID {
		log.Printf("discarding stale result for campaign %s run %s recipient %d", campaignID, runID, out.RecipientID)
		return
	}
	if !st.drafts.RecordResult(runID, out) {
		return // duplicate callback
	}
	st.current.Pending--
	if out.Err != nil {
		st.current.Failed++
	} else {
		st.current.Succeeded++
	}
}

// RunCompleted moves the campaign out of generating: to reviewing when
// at least one draft succeeded, back to writing with a surfaced error
// when every recipient failed.
func (s *CampaignService) RunCompleted(campaignID, runID string, status model.RunStatus) {
	st, err := s.state(campaignID)
	if err != nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.current == nil || st.current.ID != runID {
		return // superseded or abandoned, already marked cancelled
	}

	now := time.Now()
	st.current.Status = status
	st.current.FinishedAt = &now
	st.current = nil
	if st.cancelRun != nil {
		st.cancelRun()
	}
	st.cancelRun = nil

	switch status {
	case model.RunFailed:
		st.campaign.LastError = userFacingGenerationError
		st.setStatus(model.StatusWritingInstruction)
	case model.RunCancelled:
		// Nothing to transition; the cancelling operation already did.
	default:
		st.campaign.LastError = ""
		st.setStatus(model.StatusReviewing)
	}
}

// EditDraft sets the manual override for one recipient's draft.
func (s *CampaignService) EditDraft(id string, recipientID int, subject, body string) (model.Draft, error) {
	st, err := s.state(id)
	if err != nil {
		return model.Draft{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.campaign.Status != model.StatusReviewing {
		return model.Draft{}, appErrors.NewValidation("drafts can only be edited in %s, campaign is %s", model.StatusReviewing, st.campaign.Status)
	}
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(body) == "" {
		return model.Draft{}, appErrors.NewValidation("edited subject and body must not be empty")
	}
	if err := st.drafts.SetOverride(recipientID, subject, body); err != nil {
		return model.Draft{}, err
	}
	d, _ := st.drafts.Get(recipientID)
	return d, nil
}

// RevertDraft clears the manual override for one recipient's draft.
func (s *CampaignService) RevertDraft(id string, recipientID int) (model.Draft, error) {
	st, err := s.state(id)
	if err != nil {
		return model.Draft{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.campaign.Status != model.StatusReviewing {
		return model.Draft{}, appErrors.NewValidation("drafts can only be reverted in %s, campaign is %s", model.StatusReviewing, st.campaign.Status)
	}
	if err := st.drafts.ClearOverride(recipientID); err != nil {
		return model.Draft{}, err
	}
	d, _ := st.drafts.Get(recipientID)
	return d, nil
}

// Send snapshots the effective drafts and hands them to the delivery
// queue. A failed publish mutates no drafts and drops the campaign back
// to reviewing, so the caller can simply retry.
func (s *CampaignService) Send(id string) (model.Campaign, error) {
	st, err := s.state(id)
	if err != nil {
		return model.Campaign{}, err
	}

	st.mu.Lock()
	if st.campaign.Status != model.StatusReviewing {
		st.mu.Unlock()
		return model.Campaign{}, appErrors.NewValidation("campaign can only be sent from %s, campaign is %s", model.StatusReviewing, st.campaign.Status)
	}
	if missing := st.drafts.MissingContent(); len(missing) > 0 {
		st.mu.Unlock()
		return model.Campaign{}, appErrors.NewValidation("recipients %v have neither generated content nor an override", missing)
	}

	entries := make([]queue.Entry, 0, len(st.campaign.RecipientIDs))
	for _, d := range st.drafts.Snapshot() {
		entries = append(entries, queue.Entry{
			RecipientID: d.RecipientID,
			Subject:     d.EffectiveSubject(),
			Body:        d.EffectiveBody(),
		})
	}
	st.setStatus(model.StatusSending)
	st.mu.Unlock()

	// The publisher call runs outside the lock; Sending rejects every
	// other transition in the meantime.
	pubErr := s.Publisher.Publish(id, entries)

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.campaign.Status != model.StatusSending {
		// Abandoned while the publish was in flight; the terminal state wins.
		return st.campaignCopy(), appErrors.NewConflict(id, "campaign was abandoned during send")
	}
	if pubErr != nil {
		log.Println("⚠️ publish failed for campaign", id, ":", pubErr)
		st.campaign.LastError = pubErr.Error()
		st.setStatus(model.StatusReviewing)
		return st.campaignCopy(), pubErr
	}

	st.drafts.MarkApproved()
	st.campaign.LastError = ""
	st.setStatus(model.StatusSent)
	log.Printf("🚀 campaign %s sent with %d entries", id, len(entries))
	return st.campaignCopy(), nil
}

// Abandon terminates the campaign from any non-terminal state and
// releases the run lock by marking any outstanding run cancelled.
func (s *CampaignService) Abandon(id string) (model.Campaign, error) {
	st, err := s.state(id)
	if err != nil {
		return model.Campaign{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.campaign.Status.Terminal() {
		return model.Campaign{}, appErrors.NewValidation("campaign is already %s", st.campaign.Status)
	}

	st.cancelCurrentRunLocked()
	st.setStatus(model.StatusAbandoned)
	return st.campaignCopy(), nil
}

// EnterEditMode reopens a reviewed or sent campaign for another
// instruction round. Chat history is preserved so the next run has the
// full conversation as context.
func (s *CampaignService) EnterEditMode(id string) (model.Campaign, error) {
	st, err := s.state(id)
	if err != nil {
		return model.Campaign{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.campaign.Status != model.StatusReviewing && st.campaign.Status != model.StatusSent {
		return model.Campaign{}, appErrors.NewValidation("edit mode requires %s or %s, campaign is %s", model.StatusReviewing, model.StatusSent, st.campaign.Status)
	}

	st.setStatus(model.StatusWritingInstruction)
	return st.campaignCopy(), nil
}

// GetCampaign returns a snapshot of one campaign.
func (s *CampaignService) GetCampaign(id string) (model.Campaign, error) {
	st, err := s.state(id)
	if err != nil {
		return model.Campaign{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.campaignCopy(), nil
}

// CampaignDetails is the campaign plus draft tallies for the UI.
type CampaignDetails struct {
	model.Campaign
	Stats map[string]int       `json:"stats"`
	Run   *model.GenerationRun `json:"run,omitempty"`
}

// GetCampaignDetails returns the campaign with draft stats and the most
// recent generation run.
func (s *CampaignService) GetCampaignDetails(id string) (*CampaignDetails, error) {
	st, err := s.state(id)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	pending, succeeded, failed := st.drafts.Counts()
	details := &CampaignDetails{
		Campaign: st.campaignCopy(),
		Stats: map[string]int{
			"total":     pending + succeeded + failed,
			"pending":   pending,
			"succeeded": succeeded,
			"failed":    failed,
		},
	}
	if run, ok := st.runs[st.lastRunID]; ok {
		snapshot := *run
		details.Run = &snapshot
	}
	return details, nil
}

// Progress returns the most recent generation run for polling.
func (s *CampaignService) Progress(id string) (model.GenerationRun, error) {
	st, err := s.state(id)
	if err != nil {
		return model.GenerationRun{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	run, ok := st.runs[st.lastRunID]
	if !ok {
		return model.GenerationRun{}, appErrors.NewValidation("campaign has no generation run yet")
	}
	return *run, nil
}

// Drafts returns the current draft snapshot in selection order.
func (s *CampaignService) Drafts(id string) ([]model.Draft, error) {
	st, err := s.state(id)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.drafts.Snapshot(), nil
}

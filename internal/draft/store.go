// internal/draft/store.go
package draft

import (
	"fmt"
	"sync"

	appErrors "github.com/givance/outreach-backend/internal/errors"
	"github.com/givance/outreach-backend/internal/model"
)

// Store holds the per-recipient drafts for one campaign. Generated
// fields are owned by the current generation run; override fields are
// owned by the operator and only change through SetOverride and
// ClearOverride.
type Store struct {
	mu       sync.Mutex
	order    []int
	drafts   map[int]*model.Draft
	recorded map[string]bool // runID:recipientID, guards duplicate callbacks
}

func NewStore() *Store {
	return &Store{
		drafts:   make(map[int]*model.Draft),
		recorded: make(map[string]bool),
	}
}

// InitForRun creates pending drafts for a new run. Generated fields of
// prior drafts are reset; override fields are untouched. Drafts for
// recipients dropped from the selection are discarded.
func (s *Store) InitForRun(runID string, sourceSeq int, recipientIDs []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[int]bool, len(recipientIDs))
	for _, id := range recipientIDs {
		keep[id] = true
	}
	for id := range s.drafts {
		if !keep[id] {
			delete(s.drafts, id)
		}
	}

	s.order = append([]int(nil), recipientIDs...)
	for _, id := range recipientIDs {
		d, ok := s.drafts[id]
		if !ok {
			d = &model.Draft{RecipientID: id}
			s.drafts[id] = d
		}
		d.RunID = runID
		d.SourceSeq = sourceSeq
		d.Status = model.DraftPending
		d.Subject = ""
		d.Body = ""
		d.FailureReason = ""
		d.Approved = false
	}
}

// RecordResult applies one per-recipient outcome. It is idempotent per
// (recipient, run): a duplicate callback for the same run is ignored,
// as is a result for a run that no longer owns the draft.
func (s *Store) RecordResult(runID string, out model.Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[out.RecipientID]
	if !ok || d.RunID != runID {
		return false // recipient dropped or run superseded
	}

	key := fmt.Sprintf("%s:%d", runID, out.RecipientID)
	if s.recorded[key] {
		return false
	}
	s.recorded[key] = true

	if out.Err != nil {
		d.Status = model.DraftFailed
		d.FailureReason = out.Err.Error()
		d.Subject = ""
		d.Body = ""
		return true
	}
	d.Status = model.DraftSucceeded
	d.Subject = out.Subject
	d.Body = out.Body
	d.FailureReason = ""
	return true
}

// SetOverride records a manual edit. Generation status is untouched.
func (s *Store) SetOverride(recipientID int, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[recipientID]
	if !ok {
		return appErrors.NewValidation("no draft for recipient %d", recipientID)
	}
	d.Overridden = true
	d.EditedSubject = subject
	d.EditedBody = body
	return nil
}

// ClearOverride reverts a manual edit back to the generated content.
func (s *Store) ClearOverride(recipientID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[recipientID]
	if !ok {
		return appErrors.NewValidation("no draft for recipient %d", recipientID)
	}
	d.Overridden = false
	d.EditedSubject = ""
	d.EditedBody = ""
	return nil
}

// Get returns a copy of one recipient's draft.
func (s *Store) Get(recipientID int) (model.Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[recipientID]
	if !ok {
		return model.Draft{}, false
	}
	return *d, true
}

// Snapshot returns copies of all drafts in recipient selection order.
func (s *Store) Snapshot() []model.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Draft, 0, len(s.order))
	for _, id := range s.order {
		if d, ok := s.drafts[id]; ok {
			out = append(out, *d)
		}
	}
	return out
}

// Counts returns pending/succeeded/failed tallies for progress polling.
func (s *Store) Counts() (pending, succeeded, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drafts {
		switch d.Status {
		case model.DraftPending:
			pending++
		case model.DraftSucceeded:
			succeeded++
		case model.DraftFailed:
			failed++
		}
	}
	return
}

// MissingContent lists recipients whose draft has neither generated
// content nor an override. A campaign with any of these cannot be sent.
func (s *Store) MissingContent() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var missing []int
	for _, id := range s.order {
		if d, ok := s.drafts[id]; ok && !d.HasContent() {
			missing = append(missing, id)
		}
	}
	return missing
}

// MarkApproved flags every draft in the snapshot that was handed to the
// delivery queue.
func (s *Store) MarkApproved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drafts {
		d.Approved = true
	}
}

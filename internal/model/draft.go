// internal/model/draft.go
package model

type DraftStatus string

const (
	DraftPending   DraftStatus = "pending"
	DraftSucceeded DraftStatus = "succeeded"
	DraftFailed    DraftStatus = "failed"
)

// Draft is the generated email for one recipient under the current
// instruction turn. Generated fields belong to the generation run;
// edited fields belong to the operator and survive regeneration until
// explicitly reverted.
type Draft struct {
	RecipientID   int         `json:"recipient_id"`
	RunID         string      `json:"run_id"`
	SourceSeq     int         `json:"source_seq"`
	Status        DraftStatus `json:"status"`
	Subject       string      `json:"subject,omitempty"`
	Body          string      `json:"body,omitempty"`
	FailureReason string      `json:"failure_reason,omitempty"`
	Overridden    bool        `json:"overridden"`
	EditedSubject string      `json:"edited_subject,omitempty"`
	EditedBody    string      `json:"edited_body,omitempty"`
	Approved      bool        `json:"approved"`
}

// EffectiveSubject returns the edited subject when an override is set,
// otherwise the generated one.
func (d *Draft) EffectiveSubject() string {
	if d.Overridden {
		return d.EditedSubject
	}
	return d.Subject
}

func (d *Draft) EffectiveBody() string {
	if d.Overridden {
		return d.EditedBody
	}
	return d.Body
}

// HasContent reports whether the draft can be sent: either the run
// produced content or the operator supplied an override.
func (d *Draft) HasContent() bool {
	if d.Overridden {
		return d.EditedBody != ""
	}
	return d.Status == DraftSucceeded && d.Body != ""
}

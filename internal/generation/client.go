// internal/generation/client.go
package generation

import (
	"context"

	"github.com/givance/outreach-backend/internal/model"
)

// Request carries everything the generation service needs for one
// recipient: the full conversation, the donor profile, and the prior
// draft when the operator asked for a refinement.
type Request struct {
	History     []model.ChatTurn
	Recipient   model.Recipient
	PriorDraft  *model.Draft
	TemplateRef string
}

// Result is one generated email.
type Result struct {
	Subject string
	Body    string
}

// Client is the opaque generation service. Implementations classify
// failures as transient or permanent via appErrors.GenerationError so
// the orchestrator can route retries.
type Client interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// ProfileSource is the read-only recipient profile lookup. A lookup
// failure surfaces as a permanent per-recipient generation failure.
type ProfileSource interface {
	GetByID(id int) (*model.Recipient, error)
}

// internal/generation/gemini_client.go
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	appErrors "github.com/givance/outreach-backend/internal/errors"
)

// GeminiClient generates drafts with Google's Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed generation client.
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: modelName}, nil
}

// Generate produces one personalized email from the full conversation
// plus the recipient profile. Context-window management is the model's
// problem, not ours; the whole history is always sent.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (Result, error) {
	prompt := buildPrompt(req)

	resp, err := c.client.Models.GenerateContent(ctx,
		c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{},
	)
	if err != nil {
		return Result{}, classifyError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Result{}, appErrors.NewTransientGeneration("empty response from model", nil)
	}

	subject, body, ok := splitSubjectBody(text)
	if !ok {
		// Missing subject line is usually model flakiness; let the
		// retry policy take another shot.
		return Result{}, appErrors.NewTransientGeneration("response missing subject line", nil)
	}
	return Result{Subject: subject, Body: body}, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are drafting a personalized email on behalf of a nonprofit.\n")
	b.WriteString("Write exactly one email for the recipient below.\n")
	b.WriteString("Reply with the subject on the first line as 'Subject: ...' and the body after a blank line.\n\n")

	b.WriteString("Conversation with the operator:\n")
	for _, turn := range req.History {
		fmt.Fprintf(&b, "[%s] %s\n", turn.Role, turn.Text)
	}

	r := req.Recipient
	b.WriteString("\nRecipient profile:\n")
	fmt.Fprintf(&b, "Name: %s %s\n", r.FirstName, r.LastName)
	fmt.Fprintf(&b, "Email: %s\n", r.Email)
	fmt.Fprintf(&b, "Location: %s\n", r.Location)
	fmt.Fprintf(&b, "Donor stage: %s\n", r.DonorStage)
	fmt.Fprintf(&b, "Lifetime giving: %.2f\n", r.LifetimeGiving)
	if r.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", r.Notes)
	}

	if req.TemplateRef != "" {
		fmt.Fprintf(&b, "\nFollow the structure of template %q.\n", req.TemplateRef)
	}

	if req.PriorDraft != nil && req.PriorDraft.Body != "" {
		b.WriteString("\nThe operator is refining this earlier draft:\n")
		fmt.Fprintf(&b, "Subject: %s\n%s\n", req.PriorDraft.Subject, req.PriorDraft.Body)
	}

	return b.String()
}

func splitSubjectBody(text string) (subject, body string, ok bool) {
	first, rest, _ := strings.Cut(text, "\n")
	if !strings.HasPrefix(strings.ToLower(first), "subject:") {
		return "", "", false
	}
	subject = strings.TrimSpace(first[len("subject:"):])
	body = strings.TrimSpace(rest)
	if subject == "" || body == "" {
		return "", "", false
	}
	return subject, body, true
}

// classifyError maps API failures onto the retry taxonomy: rate limits
// and server errors are transient, everything the caller did wrong is
// permanent.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return appErrors.NewTransientGeneration("request timed out", err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return appErrors.NewTransientGeneration("rate limited", err)
		case apiErr.Code >= 500:
			return appErrors.NewTransientGeneration("model backend unavailable", err)
		default:
			return appErrors.NewPermanentGeneration("request rejected by model API", err)
		}
	}

	// Network-level errors without an API status are worth a retry.
	return appErrors.NewTransientGeneration("generation call failed", err)
}

// internal/generation/orchestrator.go
package generation

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	appErrors "github.com/givance/outreach-backend/internal/errors"
	"github.com/givance/outreach-backend/internal/model"
)

// Sink receives per-recipient results and the run completion signal.
// Implemented by service.CampaignService, which re-acquires the
// campaign lock for each call.
type Sink interface {
	RecordResult(campaignID, runID string, out model.Outcome)
	RunCompleted(campaignID, runID string, status model.RunStatus)
}

// Config bounds the fan-out. The numbers carry no product intent; they
// exist so operators can tune them per deployment.
type Config struct {
	Concurrency int           // max in-flight generation calls per run
	MaxRetries  int           // retries after the first attempt, transient failures only
	Backoff     time.Duration // base backoff, doubled per retry
	CallTimeout time.Duration // per-attempt deadline
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 60 * time.Second
	}
	return c
}

// Orchestrator fans one instruction out to N concurrent per-recipient
// generation tasks. One recipient failing never aborts the others; the
// run aggregates a per-recipient outcome instead.
type Orchestrator struct {
	Client   Client
	Profiles ProfileSource
	Config   Config
}

// Start launches the fan-out for an already-initialized run and returns
// immediately. Results and the terminal status arrive through the sink.
// Cancelling ctx stops retries and backoff waits; in-flight calls are
// allowed to finish and their results are discarded downstream.
func (o *Orchestrator) Start(ctx context.Context, run *model.GenerationRun, history []model.ChatTurn, prior map[int]model.Draft, templateRef string, sink Sink) {
	cfg := o.Config.withDefaults()
	recipients := append([]int(nil), run.RecipientIDs...)
	campaignID, runID := run.CampaignID, run.ID

	go func() {
		var succeeded, failed int
		results := make(chan model.Outcome, len(recipients))

		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(cfg.Concurrency)
		for _, id := range recipients {
			id := id
			eg.Go(func() error {
				req := Request{History: history, TemplateRef: templateRef}
				if d, ok := prior[id]; ok && d.Body != "" {
					priorDraft := d
					req.PriorDraft = &priorDraft
				}
				results <- o.generateOne(egCtx, cfg, id, req)
				return nil
			})
		}
		go func() {
			eg.Wait()
			close(results)
		}()

		for out := range results {
			if out.Err != nil {
				failed++
			} else {
				succeeded++
			}
			sink.RecordResult(campaignID, runID, out)
		}

		status := model.RunCompleted
		switch {
		case ctx.Err() != nil:
			status = model.RunCancelled
		case succeeded == 0:
			status = model.RunFailed
		case failed > 0:
			status = model.RunCompletedWithFailures
		}
		log.Printf("generation run %s finished: %d succeeded, %d failed (%s)", runID, succeeded, failed, status)
		sink.RunCompleted(campaignID, runID, status)
	}()
}

// generateOne resolves the profile and calls the generation service
// with the per-recipient retry policy: up to MaxRetries extra attempts
// with exponential backoff, transient failure classes only.
func (o *Orchestrator) generateOne(ctx context.Context, cfg Config, recipientID int, req Request) model.Outcome {
	profile, err := o.Profiles.GetByID(recipientID)
	if err != nil {
		return model.Outcome{RecipientID: recipientID, Err: appErrors.NewPermanentGeneration("profile lookup failed", err)}
	}
	if profile == nil {
		return model.Outcome{RecipientID: recipientID, Err: appErrors.NewPermanentGeneration("recipient profile not found", nil)}
	}
	req.Recipient = *profile

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := cfg.Backoff << (attempt - 1)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return model.Outcome{RecipientID: recipientID, Err: appErrors.NewTransientGeneration("run cancelled", ctx.Err())}
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
		res, err := o.Client.Generate(callCtx, req)
		cancel()
		if err == nil {
			return model.Outcome{RecipientID: recipientID, Subject: res.Subject, Body: res.Body}
		}

		lastErr = err
		if !appErrors.IsTransient(err) {
			break
		}
		log.Printf("transient generation failure for recipient %d (attempt %d): %v", recipientID, attempt+1, err)
	}
	return model.Outcome{RecipientID: recipientID, Err: lastErr}
}

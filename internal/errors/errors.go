// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ValidationError is bad caller input. Recoverable locally, never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func NewValidation(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ConflictError means a concurrent run is already active, or the caller
// acted on stale state. The caller must re-fetch and retry.
type ConflictError struct {
	CampaignID string
	Reason     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on campaign %s: %s", e.CampaignID, e.Reason)
}

func NewConflict(campaignID, reason string) error {
	return &ConflictError{CampaignID: campaignID, Reason: reason}
}

// InvariantViolation is a programming or ordering bug. Fatal to the
// operation; logged, never swallowed.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return "invariant violated: " + e.Reason
}

func NewInvariant(format string, args ...any) error {
	return &InvariantViolation{Reason: fmt.Sprintf(format, args...)}
}

// FailureKind routes generation failures to the retry policy.
type FailureKind string

const (
	FailureTransient FailureKind = "transient" // timeout, rate limit
	FailurePermanent FailureKind = "permanent" // validation, content policy
)

// GenerationError is a per-recipient generation service failure.
type GenerationError struct {
	Kind   FailureKind
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("generation %s: %s", e.Kind, e.Reason)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func NewTransientGeneration(reason string, err error) error {
	return &GenerationError{Kind: FailureTransient, Reason: reason, Err: err}
}

func NewPermanentGeneration(reason string, err error) error {
	return &GenerationError{Kind: FailurePermanent, Reason: reason, Err: err}
}

// IsTransient reports whether err should be retried by the
// per-recipient retry policy.
func IsTransient(err error) bool {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind == FailureTransient
	}
	return false
}

// PublishError is a delivery queue hand-off failure. The campaign stays
// in reviewing and send is safely retryable.
type PublishError struct {
	Reason string
	Err    error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publish failed: %s: %v", e.Reason, e.Err)
	}
	return "publish failed: " + e.Reason
}

func (e *PublishError) Unwrap() error { return e.Err }

func NewPublish(reason string, err error) error {
	return &PublishError{Reason: reason, Err: err}
}

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %s not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

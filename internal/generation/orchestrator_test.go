package generation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	appErrors "github.com/givance/outreach-backend/internal/errors"
	"github.com/givance/outreach-backend/internal/model"
)

// scriptedClient returns, per recipient, a fixed sequence of errors
// followed by success.
type scriptedClient struct {
	mu       sync.Mutex
	failures map[int][]error // errors to return before succeeding
	calls    map[int]int
}

func (c *scriptedClient) Generate(ctx context.Context, req Request) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := req.Recipient.ID
	c.calls[id]++
	if errs := c.failures[id]; len(errs) > 0 {
		err := errs[0]
		c.failures[id] = errs[1:]
		return Result{}, err
	}
	return Result{
		Subject: fmt.Sprintf("Hello %s", req.Recipient.FirstName),
		Body:    "Thank you for your support.",
	}, nil
}

type mapProfiles struct {
	profiles map[int]model.Recipient
}

func (m *mapProfiles) GetByID(id int) (*model.Recipient, error) {
	if p, ok := m.profiles[id]; ok {
		return &p, nil
	}
	return nil, nil
}

// recordingSink collects outcomes and signals completion.
type recordingSink struct {
	mu       sync.Mutex
	outcomes []model.Outcome
	status   model.RunStatus
	done     chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{})}
}

func (s *recordingSink) RecordResult(campaignID, runID string, out model.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, out)
}

func (s *recordingSink) RunCompleted(campaignID, runID string, status model.RunStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	close(s.done)
}

func (s *recordingSink) wait(t *testing.T) model.RunStatus {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not complete in time")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func testRun(recipients ...int) *model.GenerationRun {
	return &model.GenerationRun{
		ID:           "run-1",
		CampaignID:   "camp-1",
		SourceSeq:    1,
		RecipientIDs: recipients,
		Status:       model.RunRunning,
		Pending:      len(recipients),
	}
}

func testProfiles(ids ...int) *mapProfiles {
	m := &mapProfiles{profiles: make(map[int]model.Recipient)}
	for _, id := range ids {
		m.profiles[id] = model.Recipient{ID: id, FirstName: fmt.Sprintf("R%d", id), Email: fmt.Sprintf("r%d@example.org", id)}
	}
	return m
}

func TestRunRetriesTransientAndCompletes(t *testing.T) {
	client := &scriptedClient{
		calls: map[int]int{},
		failures: map[int][]error{
			// Recipient 2 is rate limited once, then succeeds.
			2: {appErrors.NewTransientGeneration("rate limited", nil)},
		},
	}
	sink := newRecordingSink()
	orc := &Orchestrator{
		Client:   client,
		Profiles: testProfiles(1, 2, 3),
		Config:   Config{Concurrency: 3, MaxRetries: 2, Backoff: time.Millisecond, CallTimeout: time.Second},
	}

	orc.Start(context.Background(), testRun(1, 2, 3), nil, nil, "", sink)

	if status := sink.wait(t); status != model.RunCompleted {
		t.Errorf("expected completed, got %s", status)
	}
	if len(sink.outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(sink.outcomes))
	}
	for _, out := range sink.outcomes {
		if out.Err != nil {
			t.Errorf("recipient %d: unexpected failure: %v", out.RecipientID, out.Err)
		}
	}
	if client.calls[2] != 2 {
		t.Errorf("expected 2 attempts for recipient 2, got %d", client.calls[2])
	}
}

func TestRunReportsPartialFailures(t *testing.T) {
	client := &scriptedClient{
		calls: map[int]int{},
		failures: map[int][]error{
			2: {
				appErrors.NewTransientGeneration("timeout", nil),
				appErrors.NewTransientGeneration("timeout", nil),
				appErrors.NewTransientGeneration("timeout", nil),
			},
		},
	}
	sink := newRecordingSink()
	orc := &Orchestrator{
		Client:   client,
		Profiles: testProfiles(1, 2),
		Config:   Config{Concurrency: 2, MaxRetries: 2, Backoff: time.Millisecond, CallTimeout: time.Second},
	}

	orc.Start(context.Background(), testRun(1, 2), nil, nil, "", sink)

	if status := sink.wait(t); status != model.RunCompletedWithFailures {
		t.Errorf("expected completed_with_failures, got %s", status)
	}
	// Initial attempt plus two retries, then give up.
	if client.calls[2] != 3 {
		t.Errorf("expected 3 attempts for recipient 2, got %d", client.calls[2])
	}
}

func TestRunFailsWhenEveryRecipientFails(t *testing.T) {
	client := &scriptedClient{
		calls: map[int]int{},
		failures: map[int][]error{
			1: {appErrors.NewPermanentGeneration("content policy", nil)},
			2: {appErrors.NewPermanentGeneration("content policy", nil)},
			3: {appErrors.NewPermanentGeneration("content policy", nil)},
		},
	}
	sink := newRecordingSink()
	orc := &Orchestrator{
		Client:   client,
		Profiles: testProfiles(1, 2, 3),
		Config:   Config{Concurrency: 3, MaxRetries: 2, Backoff: time.Millisecond, CallTimeout: time.Second},
	}

	orc.Start(context.Background(), testRun(1, 2, 3), nil, nil, "", sink)

	if status := sink.wait(t); status != model.RunFailed {
		t.Errorf("expected failed, got %s", status)
	}
	for id, calls := range client.calls {
		if calls != 1 {
			t.Errorf("permanent failure must not be retried, recipient %d got %d attempts", id, calls)
		}
	}
}

func TestMissingProfileIsPermanentFailure(t *testing.T) {
	client := &scriptedClient{calls: map[int]int{}, failures: map[int][]error{}}
	sink := newRecordingSink()
	orc := &Orchestrator{
		Client:   client,
		Profiles: testProfiles(1), // recipient 2 has no profile
		Config:   Config{Concurrency: 2, MaxRetries: 2, Backoff: time.Millisecond, CallTimeout: time.Second},
	}

	orc.Start(context.Background(), testRun(1, 2), nil, nil, "", sink)

	if status := sink.wait(t); status != model.RunCompletedWithFailures {
		t.Errorf("expected completed_with_failures, got %s", status)
	}
	if client.calls[2] != 0 {
		t.Error("generation must not be called without a profile")
	}
}

// blockingClient tracks in-flight calls to verify the concurrency bound.
type blockingClient struct {
	inFlight int64
	max      int64
	release  chan struct{}
}

func (c *blockingClient) Generate(ctx context.Context, req Request) (Result, error) {
	n := atomic.AddInt64(&c.inFlight, 1)
	for {
		old := atomic.LoadInt64(&c.max)
		if n <= old || atomic.CompareAndSwapInt64(&c.max, old, n) {
			break
		}
	}
	<-c.release
	atomic.AddInt64(&c.inFlight, -1)
	return Result{Subject: "s", Body: "b"}, nil
}

func TestConcurrencyIsBounded(t *testing.T) {
	client := &blockingClient{release: make(chan struct{})}
	sink := newRecordingSink()
	orc := &Orchestrator{
		Client:   client,
		Profiles: testProfiles(1, 2, 3, 4, 5, 6),
		Config:   Config{Concurrency: 2, MaxRetries: 0, Backoff: time.Millisecond, CallTimeout: time.Second},
	}

	orc.Start(context.Background(), testRun(1, 2, 3, 4, 5, 6), nil, nil, "", sink)

	time.Sleep(50 * time.Millisecond)
	close(client.release)
	sink.wait(t)

	if max := atomic.LoadInt64(&client.max); max > 2 {
		t.Errorf("concurrency bound violated: %d calls in flight", max)
	}
}

func TestCancelledRunStopsRetrying(t *testing.T) {
	client := &scriptedClient{
		calls: map[int]int{},
		failures: map[int][]error{
			1: {
				appErrors.NewTransientGeneration("timeout", nil),
				appErrors.NewTransientGeneration("timeout", nil),
			},
		},
	}
	sink := newRecordingSink()
	orc := &Orchestrator{
		Client:   client,
		Profiles: testProfiles(1),
		Config:   Config{Concurrency: 1, MaxRetries: 2, Backoff: time.Minute, CallTimeout: time.Second},
	}

	ctx, cancel := context.WithCancel(context.Background())
	orc.Start(ctx, testRun(1), nil, nil, "", sink)

	// Let the first attempt fail, then cancel during the backoff wait.
	time.Sleep(50 * time.Millisecond)
	cancel()

	if status := sink.wait(t); status != model.RunCancelled {
		t.Errorf("expected cancelled, got %s", status)
	}
	if client.calls[1] != 1 {
		t.Errorf("expected a single attempt before cancellation, got %d", client.calls[1])
	}
}

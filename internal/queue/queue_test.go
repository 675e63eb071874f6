package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/givance/outreach-backend/internal/model"
)

type memDeliveryRepo struct {
	mu     sync.Mutex
	nextID int
	rows   []*model.Delivery
}

func (m *memDeliveryRepo) Create(d *model.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	d.ID = m.nextID
	copied := *d
	m.rows = append(m.rows, &copied)
	return nil
}

func (m *memDeliveryRepo) Update(d *model.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.ID == d.ID {
			copied := *d
			m.rows[i] = &copied
		}
	}
	return nil
}

func (m *memDeliveryRepo) GetByCampaignAndRecipient(campaignID string, recipientID int) (*model.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.CampaignID == campaignID && row.RecipientID == recipientID {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memDeliveryRepo) statuses() map[int]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int]string{}
	for _, row := range m.rows {
		out[row.RecipientID] = row.Status
	}
	return out
}

type memRecipientRepo struct{}

func (memRecipientRepo) GetByID(id int) (*model.Recipient, error) {
	return &model.Recipient{ID: id, Email: "donor@example.org"}, nil
}

func (memRecipientRepo) ListByIDs(ids []int) ([]model.Recipient, error) { return nil, nil }

func TestInMemoryPublisherDeliversBatch(t *testing.T) {
	q := NewInMemoryQueue()
	repo := &memDeliveryRepo{}

	var wg sync.WaitGroup
	wg.Add(3)
	StartDeliverySubscriber(q, repo, memRecipientRepo{}, func(to, subject, body string) error {
		defer wg.Done()
		return nil
	})

	// Subscribe runs in a goroutine; give it a beat to register.
	time.Sleep(10 * time.Millisecond)

	pub := &InMemoryPublisher{Queue: q}
	entries := []Entry{
		{RecipientID: 1, Subject: "A", Body: "a"},
		{RecipientID: 2, Subject: "B", Body: "b"},
		{RecipientID: 3, Subject: "C", Body: "c"},
	}
	if err := pub.Publish("camp-1", entries); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("deliveries never processed")
	}

	// Status updates happen right after the send callback; poll briefly.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		statuses := repo.statuses()
		if statuses[1] == "sent" && statuses[2] == "sent" && statuses[3] == "sent" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected all sent, got %v", repo.statuses())
}

func TestPublishWithoutSubscribersFails(t *testing.T) {
	pub := &InMemoryPublisher{Queue: NewInMemoryQueue()}
	if err := pub.Publish("camp-1", []Entry{{RecipientID: 1, Subject: "A", Body: "a"}}); err == nil {
		t.Fatal("expected error with no subscribers")
	}
}

// internal/queue/publisher.go
package queue

import (
	"encoding/json"
	"log"

	"github.com/streadway/amqp"

	appErrors "github.com/givance/outreach-backend/internal/errors"
)

// DeliveryTopic is the queue the approved batch entries land on.
const DeliveryTopic = "campaign_sends"

// Entry is one approved draft in a published batch.
type Entry struct {
	RecipientID int    `json:"recipient_id"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

// DeliveryJob is the wire payload the worker consumes, one per entry.
type DeliveryJob struct {
	CampaignID  string `json:"campaign_id"`
	RecipientID int    `json:"recipient_id"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

// Publisher hands an approved batch to the delivery queue. At-least-once:
// a failed publish mutates nothing and is safe to retry.
type Publisher interface {
	Publish(campaignID string, entries []Entry) error
}

// AMQPPublisher publishes batch entries to RabbitMQ.
type AMQPPublisher struct {
	URL string
}

func (p *AMQPPublisher) Publish(campaignID string, entries []Entry) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return appErrors.NewPublish("failed to connect to queue", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return appErrors.NewPublish("failed to open queue channel", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		DeliveryTopic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return appErrors.NewPublish("failed to declare queue", err)
	}

	for _, e := range entries {
		body, _ := json.Marshal(DeliveryJob{
			CampaignID:  campaignID,
			RecipientID: e.RecipientID,
			Subject:     e.Subject,
			Body:        e.Body,
		})
		err = ch.Publish(
			"",
			q.Name,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        body,
			},
		)
		if err != nil {
			return appErrors.NewPublish("failed to publish batch entry", err)
		}
	}

	log.Printf("📤 published %d entries for campaign %s", len(entries), campaignID)
	return nil
}

// InMemoryPublisher routes batch entries onto an InMemoryQueue so the
// server can run without a broker.
type InMemoryPublisher struct {
	Queue *InMemoryQueue
}

func (p *InMemoryPublisher) Publish(campaignID string, entries []Entry) error {
	for _, e := range entries {
		job := DeliveryJob{
			CampaignID:  campaignID,
			RecipientID: e.RecipientID,
			Subject:     e.Subject,
			Body:        e.Body,
		}
		if err := p.Queue.Publish(DeliveryTopic, job); err != nil {
			return appErrors.NewPublish("in-memory queue rejected entry", err)
		}
	}
	return nil
}

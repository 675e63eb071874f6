// internal/queue/subscriber.go
package queue

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/givance/outreach-backend/internal/model"
	"github.com/givance/outreach-backend/internal/repository"
)

// SendFunc performs the actual channel send for one email.
type SendFunc func(to string, subject, body string) error

// StartDeliverySubscriber consumes published batch entries from the
// in-process queue, sends them, and records the result. This is the
// no-broker counterpart of cmd/worker.
func StartDeliverySubscriber(q Queue, deliveryRepo repository.DeliveryRepositoryInterface, recipientRepo repository.RecipientRepositoryInterface, send SendFunc) {
	go func() {
		err := q.Subscribe(DeliveryTopic, func(payload any) error {
			job, ok := payload.(DeliveryJob)
			if !ok {
				log.Println("⚠️ Invalid payload type, expected DeliveryJob")
				return nil // no retry
			}

			log.Printf("📩 Processing delivery for campaign %s recipient %d", job.CampaignID, job.RecipientID)

			// Idempotent create: a redelivered job reuses its row.
			d, err := deliveryRepo.GetByCampaignAndRecipient(job.CampaignID, job.RecipientID)
			if err != nil {
				log.Println("⚠️ Failed to look up delivery:", err)
				return err
			}
			if d == nil {
				d = &model.Delivery{
					CampaignID:  job.CampaignID,
					RecipientID: job.RecipientID,
					Subject:     job.Subject,
					Body:        job.Body,
					Status:      "queued",
				}
				if err := deliveryRepo.Create(d); err != nil {
					log.Println("⚠️ Failed to create delivery:", err)
					return err
				}
			}
			if d.Status == "sent" {
				return nil // already delivered
			}

			recipient, err := recipientRepo.GetByID(job.RecipientID)
			if err != nil || recipient == nil {
				d.Status = "failed"
				d.LastError = "recipient profile unavailable"
				_ = deliveryRepo.Update(d)
				return nil // no retry, profile will not appear
			}

			if err := send(recipient.Email, job.Subject, job.Body); err != nil {
				log.Println("⚠️ Failed to send message:", err)
				d.Status = "failed"
				d.LastError = err.Error()
				d.RetryCount++
				_ = deliveryRepo.Update(d)
				return err // triggers retry in queue
			}

			d.Status = "sent"
			d.LastError = ""
			if err := deliveryRepo.Update(d); err != nil {
				log.Println("⚠️ Failed to update delivery status:", err)
				return err // retry
			}

			log.Printf("✅ Delivered campaign %s to recipient %d", job.CampaignID, job.RecipientID)
			return nil
		})

		if err != nil {
			log.Println("⚠️ Failed to start subscriber for", DeliveryTopic, ":", err)
		}
	}()
}

// MockSender simulates sending messages with 90% success
func MockSender(to, subject, body string) error {
	if rand.Float64() < 0.9 {
		return nil // success
	}
	return fmt.Errorf("mock sending failed")
}

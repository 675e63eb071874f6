// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/givance/outreach-backend/internal/config"
	"github.com/givance/outreach-backend/internal/controller"
	"github.com/givance/outreach-backend/internal/db"
	"github.com/givance/outreach-backend/internal/generation"
	"github.com/givance/outreach-backend/internal/handler"
	"github.com/givance/outreach-backend/internal/queue"
	"github.com/givance/outreach-backend/internal/repository"
	"github.com/givance/outreach-backend/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	// Init DB
	db.Init()

	recipientRepo := &repository.RecipientRepository{DB: db.DB}
	deliveryRepo := &repository.DeliveryRepository{DB: db.DB}

	genClient, err := generation.NewGeminiClient(context.Background(), cfg.GeminiKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("failed to init generation client: %v", err)
	}

	orchestrator := &generation.Orchestrator{
		Client:   genClient,
		Profiles: recipientRepo,
		Config:   cfg.Generation,
	}

	// With a broker configured the dedicated worker consumes the queue;
	// otherwise deliveries are processed in-process.
	var publisher queue.Publisher
	if cfg.AMQPURL != "" {
		publisher = &queue.AMQPPublisher{URL: cfg.AMQPURL}
	} else {
		q := queue.NewInMemoryQueue()
		queue.StartDeliverySubscriber(q, deliveryRepo, recipientRepo, queue.MockSender)
		publisher = &queue.InMemoryPublisher{Queue: q}
		log.Println("⚠️ AMQP_URL not set, using in-process delivery queue")
	}

	campaignService := service.NewCampaignService(orchestrator, publisher)

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
	}
	campaignHandler := &handler.CampaignHandler{
		Service:    campaignService,
		Deliveries: deliveryRepo,
		Recipients: recipientRepo,
	}

	r := chi.NewRouter()

	// Campaign lifecycle
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Post("/campaigns/{id}/recipients", campaignController.SelectRecipients)
	r.Post("/campaigns/{id}/name", campaignController.SetName)
	r.Post("/campaigns/{id}/template", campaignController.SelectTemplate)
	r.Post("/campaigns/{id}/instruction", campaignController.SubmitInstruction)
	r.Post("/campaigns/{id}/regenerate", campaignController.Regenerate)
	r.Put("/campaigns/{id}/drafts/{recipientID}", campaignController.EditDraft)
	r.Delete("/campaigns/{id}/drafts/{recipientID}", campaignController.RevertDraft)
	r.Post("/campaigns/{id}/send", campaignController.Send)
	r.Post("/campaigns/{id}/abandon", campaignController.Abandon)
	r.Post("/campaigns/{id}/edit", campaignController.EnterEditMode)

	// Reads
	r.Get("/campaigns", campaignHandler.ListCampaigns)
	r.Get("/campaigns/{id}", campaignHandler.GetCampaign)
	r.Get("/campaigns/{id}/run", campaignHandler.GetRun)
	r.Get("/campaigns/{id}/drafts", campaignHandler.ListDrafts)
	r.Get("/campaigns/{id}/recipients", campaignHandler.ListRecipients)
	r.Get("/campaigns/{id}/deliveries", campaignHandler.GetDeliveryStats)

	log.Println("🚀 Server running on :" + cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}

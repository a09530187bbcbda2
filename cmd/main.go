package main

import (
	"context"
	"fmt"
	"os"

	"github.com/relaychat/relay-backend/internal/db"
	"github.com/relaychat/relay-backend/internal/handlers"
	"github.com/relaychat/relay-backend/internal/jobs"
	"github.com/relaychat/relay-backend/internal/jobs/chain"
	"github.com/relaychat/relay-backend/internal/jobs/runtime"
	"github.com/relaychat/relay-backend/internal/logger"
	"github.com/relaychat/relay-backend/internal/repos"
	"github.com/relaychat/relay-backend/internal/server"
	"github.com/relaychat/relay-backend/internal/services"
	"github.com/relaychat/relay-backend/internal/utils"

	gcpclients "github.com/relaychat/relay-backend/internal/clients/gcp"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	channelRepo := repos.NewChannelRepo(thePG, log)
	conversationRepo := repos.NewConversationRepo(thePG, log)
	messageRepo := repos.NewMessageRepo(thePG, log)
	attachmentRepo := repos.NewAttachmentRepo(thePG, log)
	jobRunRepo := repos.NewJobRunRepo(thePG, log)

	// Event bus (optional: without REDIS_ADDR events are dropped)
	var bus services.EventBus
	if os.Getenv("REDIS_ADDR") != "" {
		bus, err = services.NewEventBus(log)
		if err != nil {
			log.Warn("Could not init EventBus", "error", err)
			bus = nil
		}
	}

	// GCP describer stack (optional: without it attachments go undescribed)
	var describer services.AttachmentDescriber
	if os.Getenv("ATTACHMENT_BUCKET") != "" {
		storageClient, serr := gcpclients.NewStorage(log)
		visionClient, verr := gcpclients.NewVision(log)
		speechClient, sperr := gcpclients.NewSpeech(log)
		videoClient, vderr := gcpclients.NewVideo(log)
		if serr != nil || verr != nil || sperr != nil || vderr != nil {
			log.Warn("Could not init GCP describer clients",
				"storage_error", serr, "vision_error", verr,
				"speech_error", sperr, "video_error", vderr)
		} else {
			describer = services.NewGCPAttachmentDescriber(log, storageClient, visionClient, speechClient, videoClient)
		}
	}

	// Services
	log.Info("Setting up Services from main...")
	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	jobService := services.NewJobService(thePG, log, jobRunRepo)
	messageService := services.NewMessageService(thePG, log, messageRepo, attachmentRepo, jobService, bus)
	chainBuilder := services.NewChainBuilderService(thePG, log, messageRepo)
	historyFormatter := services.NewHistoryFormatterService(thePG, log, messageRepo)
	synthesizer := services.NewContextSynthesizerService(log, openaiClient)
	embeddingWriter := services.NewEmbeddingWriterService(thePG, log, messageRepo, openaiClient)
	searchService := services.NewSearchService(thePG, log, messageRepo, userRepo, channelRepo, openaiClient)

	// Worker
	log.Info("Setting up job worker from main...")
	registry := runtime.NewRegistry()
	processor := chain.NewProcessor(
		log,
		messageRepo,
		attachmentRepo,
		channelRepo,
		conversationRepo,
		chainBuilder,
		historyFormatter,
		synthesizer,
		embeddingWriter,
		describer,
		bus,
	)
	if err := registry.Register(processor); err != nil {
		log.Error("Could not register chain processor", "error", err)
		os.Exit(1)
	}
	worker := jobs.NewWorker(thePG, log, jobRunRepo, registry)
	worker.Start(context.Background())

	// Handlers
	log.Info("Setting up handlers from main...")
	messageHandler := handlers.NewMessageHandler(messageService)
	searchHandler := handlers.NewSearchHandler(searchService)
	jobsHandler := handlers.NewJobsHandler(jobService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		Log:            log,
		MessageHandler: messageHandler,
		SearchHandler:  searchHandler,
		JobsHandler:    jobsHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

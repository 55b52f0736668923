package main

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/lib/pq"

	"github.com/munhub/conference_bot/internal/access"
	"github.com/munhub/conference_bot/internal/bot"
	"github.com/munhub/conference_bot/internal/config"
	"github.com/munhub/conference_bot/internal/db"
	"github.com/munhub/conference_bot/internal/export"
	"github.com/munhub/conference_bot/internal/files"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading .env: %v", err)
	}

	database, err := db.New(cfg)
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	defer database.Close()

	err = db.RunMigrations(database.Conn, "db_scripts/init.sql")
	if err != nil {
		log.Fatalf("Error running migrations: %v", err)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("Error creating telegram bot: %v", err)
	}

	userRepo := db.NewUsersRepository(database.Conn, cfg.ChiefAdminIDs, cfg.TechLeadID)
	conferenceRepo := db.NewConferenceRepository(database.Conn)
	creationRepo := db.NewCreationRequestRepository(database.Conn)
	editRepo := db.NewEditRequestRepository(database.Conn)
	applicationRepo := db.NewApplicationRepository(database.Conn)
	supportRepo := db.NewSupportRepository(database.Conn)
	statusRepo := db.NewBotStatusRepository(database.Conn)

	gate := access.NewGate(cfg.ChiefAdminIDs, cfg.TechLeadID)

	fileService, err := files.NewFileService(botAPI, "doc_files")
	if err != nil {
		log.Fatalf("Error creating FileService: %v", err)
	}

	exporter, err := export.NewExporter("exports", userRepo, conferenceRepo, applicationRepo, supportRepo)
	if err != nil {
		log.Fatalf("Error creating Exporter: %v", err)
	}

	botService := bot.New(
		botAPI,
		userRepo,
		conferenceRepo,
		creationRepo,
		editRepo,
		applicationRepo,
		supportRepo,
		statusRepo,
		gate,
		fileService,
		exporter,
		cfg.ChiefAdminIDs,
		cfg.TechLeadID,
	)

	log.Printf("Bot started as @%s", botAPI.Self.UserName)

	botService.Start()
}

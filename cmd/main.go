package main

import (
	"fmt"
	"os"

	"github.com/boakyeni/nanas-wedding-backend/internal/clients/sendgrid"
	"github.com/boakyeni/nanas-wedding-backend/internal/clients/twilio"
	"github.com/boakyeni/nanas-wedding-backend/internal/db"
	"github.com/boakyeni/nanas-wedding-backend/internal/handlers"
	"github.com/boakyeni/nanas-wedding-backend/internal/middleware"
	"github.com/boakyeni/nanas-wedding-backend/internal/platform/envutil"
	"github.com/boakyeni/nanas-wedding-backend/internal/platform/logger"
	"github.com/boakyeni/nanas-wedding-backend/internal/platform/phone"
	"github.com/boakyeni/nanas-wedding-backend/internal/repos"
	"github.com/boakyeni/nanas-wedding-backend/internal/server"
	"github.com/boakyeni/nanas-wedding-backend/internal/services"
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
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	guestRepo := repos.NewGuestRepo(thePG, log)
	partyRepo := repos.NewPartyRepo(thePG, log)

	// Outbound clients
	log.Info("Setting up outbound clients from main...")
	sendgridClient, err := sendgrid.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init SendGrid client", "error", err)
		os.Exit(1)
	}
	twilioClient, err := twilio.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init Twilio client", "error", err)
		os.Exit(1)
	}

	phones := phone.NewNormalizer(
		envutil.String("PHONE_DEFAULT_REGION", "US"),
		envutil.String("PHONE_TRUNK_REGION", "GH"),
	)

	// Services
	log.Info("Setting up services from main...")
	emailSender, err := services.NewSendGridEmailSender(log, sendgridClient, services.SendGridEmailSenderConfigFromEnv())
	if err != nil {
		log.Error("Could not init email sender", "error", err)
		os.Exit(1)
	}
	messagingSender, err := services.NewTwilioMessagingSender(log, twilioClient, services.TwilioMessagingSenderConfigFromEnv())
	if err != nil {
		log.Error("Could not init messaging sender", "error", err)
		os.Exit(1)
	}
	dispatchService := services.NewDispatchService(thePG, log, guestRepo, emailSender, messagingSender, phones, services.DispatchConfigFromEnv())
	guestService := services.NewGuestService(thePG, log, guestRepo, partyRepo, phones)
	partyService := services.NewPartyService(thePG, log, partyRepo, guestRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	dispatchHandler := handlers.NewDispatchHandler(log, dispatchService)
	guestHandler := handlers.NewGuestHandler(log, guestService)
	partyHandler := handlers.NewPartyHandler(log, partyService)
	rsvpHandler := handlers.NewRSVPHandler(log, guestService)

	// Middleware
	adminKeyMiddleware := middleware.NewAdminKeyMiddleware(log, os.Getenv("ADMIN_API_KEY"))

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AllowOrigins:       server.SplitOrigins(os.Getenv("CORS_ALLOW_ORIGINS")),
		AdminKeyMiddleware: adminKeyMiddleware,
		RSVPHandler:        rsvpHandler,
		GuestHandler:       guestHandler,
		PartyHandler:       partyHandler,
		DispatchHandler:    dispatchHandler,
	})

	port := envutil.String("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/boakyeni/nanas-wedding-backend/internal/handlers"
	"github.com/boakyeni/nanas-wedding-backend/internal/middleware"
)

type RouterConfig struct {
	AllowOrigins       []string
	AdminKeyMiddleware *middleware.AdminKeyMiddleware
	RSVPHandler        *handlers.RSVPHandler
	GuestHandler       *handlers.GuestHandler
	PartyHandler       *handlers.PartyHandler
	DispatchHandler    *handlers.DispatchHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-API-Key", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.GET("/api/health", handlers.HealthCheck)
	router.POST("/rsvp", cfg.RSVPHandler.Submit)

	// ===============
	// || Admin     ||
	// ===============
	admin := router.Group("/")
	admin.Use(cfg.AdminKeyMiddleware.RequireKey())
	// Guests
	admin.POST("/guests", cfg.GuestHandler.Create)
	admin.GET("/guests", cfg.GuestHandler.List)
	admin.GET("/guests/export", cfg.GuestHandler.ExportCSV)
	admin.GET("/guests/:id", cfg.GuestHandler.Get)
	admin.PATCH("/guests/:id", cfg.GuestHandler.Update)
	admin.DELETE("/guests/:id", cfg.GuestHandler.Delete)
	// Confirmation dispatch
	admin.POST("/guests/:id/confirmations", cfg.DispatchHandler.SendConfirmations)
	// Parties
	admin.POST("/parties", cfg.PartyHandler.Create)
	admin.GET("/parties", cfg.PartyHandler.List)
	admin.GET("/parties/:id", cfg.PartyHandler.Get)
	admin.DELETE("/parties/:id", cfg.PartyHandler.Delete)

	return router
}

// SplitOrigins parses a comma-separated origin list from configuration.
func SplitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

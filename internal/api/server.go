// Package api wires configuration, storage, services and routes into the
// HTTP server.
package api

import (
	"net/http"

	"anjoman/internal/auth"
	"anjoman/internal/cache"
	"anjoman/internal/config"
	"anjoman/internal/database"
	"anjoman/internal/external"
	"anjoman/internal/handlers"
	"anjoman/internal/logger"
	"anjoman/internal/messaging"
	"anjoman/internal/middleware"
	"anjoman/internal/repository"
	"anjoman/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	cache    *cache.Client
	nats     *messaging.NATSClient
	services *service.Services
	repos    *repository.Repositories
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// The event cache is an optimization; the server comes up without it.
	cacheClient, err := cache.NewClient(cfg.Redis)
	if err != nil {
		logger.Get().Warn("Redis unavailable, event cache disabled", "error", err)
		cacheClient = nil
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}

	gateway := external.NewZarinpalClient(cfg.Zarinpal)
	authManager := auth.NewManager(cfg.Auth)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, authManager, cacheClient, gateway, natsClient)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		cache:    cacheClient,
		nats:     natsClient,
		services: services,
		repos:    repos,
	}

	server.setupRoutes(authManager)

	return server
}

func (s *Server) setupRoutes(authManager *auth.Manager) {
	h := handlers.New(s.services, s.config.FrontendCallbackURL)

	api := s.router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", h.Login)
			authGroup.POST("/refresh", h.Refresh)
			authGroup.POST("/logout", middleware.BearerAuth(authManager), h.Logout)
		}

		events := api.Group("/events")
		{
			events.GET("", h.ListEvents)
			events.GET("/:id", h.GetEvent)

			protected := events.Group("", middleware.BearerAuth(authManager))
			{
				protected.POST("/:id/register", h.Register)
				protected.DELETE("/:id/register", h.CancelRegistration)
				protected.GET("/:id/is-registered", h.IsRegistered)
				protected.GET("/my-registrations", h.MyRegistrations)
				protected.GET("/registrations/verify/:ticket_id", h.VerifyTicket)
			}
		}

		payments := api.Group("/payments")
		{
			// The gateway calls these two without a bearer token; the
			// snapshot read is keyed by the unguessable ref_id.
			payments.GET("/callback", h.PaymentCallback)
			payments.POST("/notifications", h.PaymentNotification)
			payments.GET("/by-ref/:ref_id", h.PaymentByRef)

			protected := payments.Group("", middleware.BearerAuth(authManager))
			{
				protected.POST("/create", h.CreatePayment)
				protected.POST("/coupon/check", h.CheckCoupon)
			}
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	dbHealth := s.db.HealthCheck(c.Request.Context())

	status := http.StatusOK
	if dbHealth.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   dbHealth.Status,
		"service":  "anjoman-api",
		"database": dbHealth,
	})
}

// GetRouter exposes the router for the HTTP server and tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes long-lived connections.
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			logger.Get().Error("Error closing Redis connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}

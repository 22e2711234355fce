package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/gasmarket/marketplace-api/internal/auth"
	"github.com/gasmarket/marketplace-api/internal/config"
	"github.com/gasmarket/marketplace-api/internal/database"
	"github.com/gasmarket/marketplace-api/internal/handlers"
	"github.com/gasmarket/marketplace-api/internal/metrics"
	"github.com/gasmarket/marketplace-api/internal/models"
	"github.com/gasmarket/marketplace-api/internal/outbox"
	"github.com/gasmarket/marketplace-api/internal/repository"
	"github.com/gasmarket/marketplace-api/internal/service"
	"github.com/gasmarket/marketplace-api/pkg/circuitbreaker"
	"github.com/gasmarket/marketplace-api/pkg/kafka"
	"github.com/gasmarket/marketplace-api/pkg/logger"
	"github.com/gasmarket/marketplace-api/pkg/middleware"
)

// Server wires the marketplace API: HTTP surface, services, repositories,
// the outbox dispatcher and the lifecycle events consumer.
type Server struct {
	config          *config.Config
	logger          logger.Logger
	router          *mux.Router
	httpServer      *http.Server
	db              *database.Database
	redisClient     *redis.Client
	outboxRepo      *repository.OutboxRepository
	outboxProcessor *outbox.Processor
	kafkaProducer   *kafka.Producer
	kafkaConsumer   *kafka.Consumer
	publishBreaker  *circuitbreaker.CircuitBreaker
	rateLimiter     *middleware.RateLimiterMiddleware

	profileService *service.ProfileService
	listingService *service.ListingService
	orderService   *service.OrderService
	invoiceService *service.InvoiceService
	ratingService  *service.RatingService
}

// NewServer creates a new API server with the given configuration and logger.
func NewServer(cfg *config.Config, logger logger.Logger) (*Server, error) {
	db, err := database.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})

	// Repositories. Composite order transitions run inside
	// repository-owned transactions, so the order repository holds the
	// listing, invoice and outbox repositories.
	profileRepo := repository.NewProfileRepository(db, logger)
	listingRepo := repository.NewListingRepository(db, logger)
	cachedListings := repository.NewCachedListingRepository(listingRepo, redisClient, cfg.Redis.CacheTTL, logger)
	outboxRepo := repository.NewOutboxRepository(db, logger)
	paymentRepo := repository.NewPaymentRepository(db, logger)
	invoiceRepo := repository.NewInvoiceRepository(db, paymentRepo, outboxRepo, logger)
	orderRepo := repository.NewOrderRepository(db, listingRepo, invoiceRepo, outboxRepo, logger)
	ratingRepo := repository.NewRatingRepository(db, logger)

	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	// Services
	profileService := service.NewProfileService(profileRepo, logger)
	listingService := service.NewListingService(cachedListings, logger)
	orderService := service.NewOrderService(orderRepo, cachedListings, invoiceRepo, logger)
	invoiceService := service.NewInvoiceService(invoiceRepo, paymentRepo, orderRepo, cachedListings, logger)
	ratingService := service.NewRatingService(ratingRepo, orderRepo, cachedListings, logger)

	// Outbox dispatcher, publishing through a circuit breaker
	publishBreaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 2,
	})

	outboxProcessor := outbox.NewProcessor(outboxRepo, outbox.ProcessorConfig{
		PollingInterval: 5 * time.Second,
		BatchSize:       10,
		MaxAttempts:     5,
	}, logger)

	kafkaHandler := outbox.NewKafkaHandler(kafkaProducer, publishBreaker, cfg.Kafka.EventsTopic, logger)
	outboxProcessor.RegisterHandler(models.EventOrderCreated, kafkaHandler)
	outboxProcessor.RegisterHandler(models.EventOrderStatusChanged, kafkaHandler)
	outboxProcessor.RegisterHandler(models.EventInvoicePaid, kafkaHandler)

	// Lifecycle events consumer
	kafkaConsumer, err := kafka.NewConsumer(&kafka.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		Topics:        []string{cfg.Kafka.EventsTopic},
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}
	kafkaConsumer.RegisterHandler(cfg.Kafka.EventsTopic, handlers.NewLifecycleEventsHandler(logger))

	rateLimiter := middleware.NewRateLimiterMiddleware(&middleware.RateLimiterConfig{
		IPMaxTokens:       cfg.RateLimit.IPMaxTokens,
		IPRefillRate:      cfg.RateLimit.IPRefillRate,
		TrustForwardedFor: true,
	}, logger)

	r := mux.NewRouter()

	server := &Server{
		config: cfg,
		logger: logger,
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		db:              db,
		redisClient:     redisClient,
		outboxRepo:      outboxRepo,
		outboxProcessor: outboxProcessor,
		kafkaProducer:   kafkaProducer,
		kafkaConsumer:   kafkaConsumer,
		publishBreaker:  publishBreaker,
		rateLimiter:     rateLimiter,
		profileService:  profileService,
		listingService:  listingService,
		orderService:    orderService,
		invoiceService:  invoiceService,
		ratingService:   ratingService,
	}

	server.setupRoutes(auth.NewMiddleware(profileRepo, logger))

	outboxProcessor.Start()

	if err := kafkaConsumer.Start(); err != nil {
		// The API still serves without the consumer; events keep
		// accumulating in the topic.
		logger.Error("Failed to start Kafka consumer", "error", err)
	}

	return server, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server and its background workers
func (s *Server) Shutdown(ctx context.Context) error {
	s.outboxProcessor.Stop()
	s.rateLimiter.Stop()

	if err := s.kafkaConsumer.Stop(); err != nil {
		s.logger.Error("Error stopping Kafka consumer", "error", err)
	}

	if err := s.kafkaProducer.Close(); err != nil {
		s.logger.Error("Error closing Kafka producer", "error", err)
	}

	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Error closing Redis client", "error", err)
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Error closing database connection", "error", err)
	}

	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all the routes for the API
func (s *Server) setupRoutes(authMiddleware *auth.Middleware) {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.rateLimiter.Middleware)

	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	// Everything below requires a resolved principal.
	authed := api.NewRoute().Subrouter()
	authed.Use(authMiddleware.Handler)

	authed.HandleFunc("/profiles/me", s.getMyProfileHandler).Methods(http.MethodGet)
	authed.HandleFunc("/profiles", s.createProfileHandler).Methods(http.MethodPost)

	authed.HandleFunc("/listings", s.listListingsHandler).Methods(http.MethodGet)
	authed.HandleFunc("/listings", s.createListingHandler).Methods(http.MethodPost)
	authed.HandleFunc("/listings/mine", s.getMyListingsHandler).Methods(http.MethodGet)
	authed.HandleFunc("/listings/{id}", s.getListingHandler).Methods(http.MethodGet)
	authed.HandleFunc("/listings/{id}", s.updateListingHandler).Methods(http.MethodPut)

	authed.HandleFunc("/orders", s.listOrdersHandler).Methods(http.MethodGet)
	authed.HandleFunc("/orders", s.createOrderHandler).Methods(http.MethodPost)
	authed.HandleFunc("/orders/{id}", s.getOrderHandler).Methods(http.MethodGet)
	authed.HandleFunc("/orders/{id}/approve", s.approveOrderHandler).Methods(http.MethodPost)
	authed.HandleFunc("/orders/{id}/reject", s.rejectOrderHandler).Methods(http.MethodPost)
	authed.HandleFunc("/orders/{id}/cancel", s.cancelOrderHandler).Methods(http.MethodPost)
	authed.HandleFunc("/orders/{id}/deliver", s.markOrderDeliveredHandler).Methods(http.MethodPost)
	authed.HandleFunc("/orders/{id}/invoice", s.getOrderInvoiceHandler).Methods(http.MethodGet)
	authed.HandleFunc("/orders/{id}/invoice", s.createOrderInvoiceHandler).Methods(http.MethodPost)
	authed.HandleFunc("/orders/{id}/rating", s.getOrderRatingHandler).Methods(http.MethodGet)
	authed.HandleFunc("/orders/{id}/rating", s.rateOrderHandler).Methods(http.MethodPost)

	authed.HandleFunc("/invoices", s.listInvoicesHandler).Methods(http.MethodGet)
	authed.HandleFunc("/invoices/{id}", s.getInvoiceHandler).Methods(http.MethodGet)
	authed.HandleFunc("/invoices/{id}/approve", s.approveInvoiceHandler).Methods(http.MethodPost)
	authed.HandleFunc("/invoices/{id}/pay", s.markInvoicePaidHandler).Methods(http.MethodPost)

	authed.HandleFunc("/payments", s.listPaymentsHandler).Methods(http.MethodGet)
	authed.HandleFunc("/payments/{id}", s.getPaymentHandler).Methods(http.MethodGet)

	authed.HandleFunc("/ratings", s.listRatingsHandler).Methods(http.MethodGet)

	// Admin surface for the event pipeline
	admin := authed.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/outbox/failed", s.getFailedOutboxMessagesHandler).Methods(http.MethodGet)
	admin.HandleFunc("/outbox/{id}/retry", s.retryOutboxMessageHandler).Methods(http.MethodPost)
	admin.HandleFunc("/circuit-breaker", s.getCircuitBreakerHandler).Methods(http.MethodGet)
}

// statusWriter captures the response code for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs every request after it is served and records the
// per-route request counter.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()

		s.logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
			"remoteAddr", r.RemoteAddr,
		)
	})
}

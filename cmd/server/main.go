// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gigmarket/internal/config"
	"gigmarket/internal/logging"
	mapscache "gigmarket/internal/maps/cache"
	mapsgateway "gigmarket/internal/maps/gateway"
	mapsservice "gigmarket/internal/maps/service"
	mapshttp "gigmarket/internal/maps/transport/http"
	mediaservice "gigmarket/internal/media/service"
	mediahttp "gigmarket/internal/media/transport/http"
	"gigmarket/internal/metrics"
	"gigmarket/internal/migrations"
	"gigmarket/internal/notification"
	notificationrepository "gigmarket/internal/notification/repository"
	notificationservice "gigmarket/internal/notification/service"
	notificationhttp "gigmarket/internal/notification/transport/http"
	outboxrepository "gigmarket/internal/outbox/repository"
	outboxservice "gigmarket/internal/outbox/service"
	otpgateway "gigmarket/internal/otp/gateway"
	otprepository "gigmarket/internal/otp/repository"
	otpservice "gigmarket/internal/otp/service"
	otphttp "gigmarket/internal/otp/transport/http"
	"gigmarket/internal/payment"
	paymentgateway "gigmarket/internal/payment/gateway"
	paymentrepository "gigmarket/internal/payment/repository"
	paymentservice "gigmarket/internal/payment/service"
	paymenthttp "gigmarket/internal/payment/transport/http"
	searchrepository "gigmarket/internal/search/repository"
	searchservice "gigmarket/internal/search/service"
	searchhttp "gigmarket/internal/search/transport/http"
	subscriptionrepository "gigmarket/internal/subscription/repository"
	subscriptionservice "gigmarket/internal/subscription/service"
	subscriptionhttp "gigmarket/internal/subscription/transport/http"
	userrepository "gigmarket/internal/user/repository"
	userservice "gigmarket/internal/user/service"
	userhttp "gigmarket/internal/user/transport/http"
	"gigmarket/pkg/db"
	"gigmarket/pkg/middleware"
	"gigmarket/pkg/response"
)

var server *http.Server

func main() {
	logger := logging.NewJSON()
	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Database connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := migrations.Run(ctx, database); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}

	metrics.InitMetrics()

	// --- LAYERS ---
	userRepo := userrepository.NewPostgresUserRepository(database)
	userService := userservice.NewUserService(userRepo)
	userHandler := userhttp.NewHandler(userService)

	subRepo := subscriptionrepository.NewSubscriptionRepository(database)
	subService := subscriptionservice.NewService(subRepo)
	subHandler := subscriptionhttp.NewSubscriptionHandler(subService)

	outboxRepo := outboxrepository.NewOutboxRepository(database)
	dispatcher := outboxservice.NewDispatcher(outboxRepo, logger)

	notificationRepo := notificationrepository.NewNotificationRepository(database)
	notificationService := notificationservice.NewService(notificationRepo)
	notificationHandler := notificationhttp.NewHandler(notificationService)

	// Payments
	flutterwave := paymentgateway.NewFlutterwaveClient(cfg.FlutterwaveBaseURL, cfg.FlutterwaveSecretKey, cfg.OutboundProxy)
	paymentRepo := paymentrepository.NewPaymentRepository(database)
	paymentService := paymentservice.NewService(flutterwave, paymentRepo, subService, userRepo, dispatcher, logger, cfg.TxRefPrefix)
	paymentHandler := paymenthttp.NewPaymentHandler(paymentService, cfg.FlutterwaveWebhookHash)

	dispatcher.Register(payment.KindAttemptCompleted, paymentService.HandleAttemptCompleted)
	dispatcher.Register(notification.KindCreate, notificationService.HandleCreate)

	// SMS
	termii := otpgateway.NewTermiiClient(cfg.TermiiBaseURL, cfg.TermiiAPIKey, cfg.TermiiSenderID, cfg.OutboundProxy)
	strategy, err := otpservice.NewStrategy(cfg.OTPMode, termii)
	if err != nil {
		log.Fatalf("OTP setup failed: %v", err)
	}
	otpService := otpservice.NewService(otprepository.NewVerificationRepository(database), strategy, logger)
	smsHandler := otphttp.NewSMSHandler(otpService)

	// Maps
	var cache mapsservice.Cache
	if cfg.RedisAddr != "" {
		rdb, err := mapscache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Printf("Warning: %v, map lookups will not be cached", err)
		} else {
			defer rdb.Close()
			cache = mapscache.NewRedisCache(rdb, "maps:")
		}
	}
	google := mapsgateway.NewGoogleClient(cfg.MapsBaseURL, cfg.MapsAPIKey, cfg.OutboundProxy)
	mapsHandler := mapshttp.NewMapsHandler(mapsservice.NewService(google, cache, cfg.MapsCacheTTL, logger))

	searchRepo := searchrepository.NewSearchRepository(sqlx.NewDb(database, "postgres"))
	searchHandler := searchhttp.NewSearchHandler(searchservice.NewService(searchRepo))

	mediaHandler := mediahttp.NewMediaHandler(mediaservice.NewService(mediaservice.Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	}))

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	}()

	go dispatcher.Run(ctx, cfg.OutboxInterval)

	// --- ROUTER ---
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.MetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "apikey", "x-client-info", "verif-hash"},
		MaxAge:         300,
	}))

	// Public routes
	r.Get("/api/subscription/prices", subHandler.Prices)
	r.Get("/api/search/providers", searchHandler.Providers)
	r.With(middleware.ValidateRequest).Post("/api/payment/webhook", paymentHandler.Webhook)

	r.Group(func(lr chi.Router) {
		lr.Use(limiter.Middleware)
		lr.With(middleware.ValidateRequest).Post("/api/sms", smsHandler.SMS)
		lr.Get("/api/maps/geocode", mapsHandler.Geocode)
		lr.Get("/api/maps/reverse", mapsHandler.Reverse)
		lr.Get("/api/maps/autocomplete", mapsHandler.Autocomplete)
	})

	// 🔐 Authenticated routes
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.JWTAuth(cfg.JWTSecret))

		pr.Get("/api/me", userHandler.Me)
		pr.With(middleware.ValidateRequest).Post("/api/me/onboarding", userHandler.Onboarding)

		pr.With(middleware.ValidateRequest).Post("/api/payment/initiate", paymentHandler.Initiate)
		pr.With(middleware.ValidateRequest).Post("/api/payment/verify", paymentHandler.Verify)
		pr.Get("/api/payment/attempts/{tx_ref}", paymentHandler.Attempt)
		pr.Get("/api/subscription/status", subHandler.Status)

		pr.Get("/api/notifications", notificationHandler.List)
		pr.Post("/api/notifications/{id}/read", notificationHandler.MarkRead)

		pr.With(middleware.ValidateRequest).Post("/api/media/upload-url", mediaHandler.UploadURL)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pending, err := outboxRepo.CountPending(r.Context())
		if err != nil {
			response.Error(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		dead, err := outboxRepo.CountDead(r.Context())
		if err != nil {
			response.Error(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		response.JSON(w, http.StatusOK, map[string]interface{}{
			"status":         "ok",
			"outbox_pending": pending,
			"outbox_dead":    dead,
		})
	})

	if cfg.MetricsUser != "" {
		r.With(middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPassword)).Handle("/metrics", promhttp.Handler())
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info(ctx, "server starting", "addr", cfg.HTTPAddr, "otp_mode", cfg.OTPMode)

	// Graceful shutdown on OS signals
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		log.Println("Shutdown signal received, starting graceful shutdown")
		cancel()
		shutdownServer()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}

	if err := database.Close(); err != nil {
		log.Printf("Database close failed: %v", err)
	}
}

func shutdownServer() {
	log.Println("Starting server shutdown process")

	// Bounded wait for in-flight requests
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/booksexchange/booksexchange-api/internal/config"
	"github.com/booksexchange/booksexchange-api/internal/domain/book"
	"github.com/booksexchange/booksexchange-api/internal/domain/exchange"
	"github.com/booksexchange/booksexchange-api/internal/domain/notification"
	"github.com/booksexchange/booksexchange-api/internal/domain/points"
	"github.com/booksexchange/booksexchange-api/internal/domain/qr"
	"github.com/booksexchange/booksexchange-api/internal/domain/wishlist"
	"github.com/booksexchange/booksexchange-api/internal/middleware"
	"github.com/booksexchange/booksexchange-api/internal/pkg/database"
	"github.com/booksexchange/booksexchange-api/internal/pkg/imaging"
	"github.com/booksexchange/booksexchange-api/internal/pkg/jwt"
	"github.com/booksexchange/booksexchange-api/internal/pkg/logger"
	pkgresponse "github.com/booksexchange/booksexchange-api/internal/pkg/response"
	"github.com/booksexchange/booksexchange-api/internal/pkg/storage"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env}); err != nil {
		log.Fatal().Err(err).Msg("Failed to init logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting BooksExchange API")

	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	coverStorage, err := storage.New(storage.Config{
		Provider:    cfg.StorageProvider,
		S3Region:    cfg.S3Region,
		S3Bucket:    cfg.S3Bucket,
		S3Endpoint:  cfg.S3Endpoint,
		S3AccessKey: cfg.S3AccessKeyID,
		S3SecretKey: cfg.S3SecretAccessKey,
		PublicURL:   cfg.StoragePublicURL,
		LocalPath:   cfg.LocalStoragePath,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create cover storage")
	}
	coverProcessor := imaging.NewProcessor(imaging.DefaultConfig())

	// ---------- Repositories ----------
	bookRepo := book.NewRepository(db)
	pointsRepo := points.NewRepository(db)
	exchangeRepo := exchange.NewRepository(db)
	wishlistRepo := wishlist.NewRepository(db)
	notificationRepo := notification.NewRepository(db)

	// ---------- Services ----------
	pointsService := points.NewService(pointsRepo)
	bookService := book.NewService(db, bookRepo, pointsService, coverStorage, coverProcessor)
	exchangeService := exchange.NewService(db, exchangeRepo, bookRepo, pointsService)
	qrService := qr.NewService(bookRepo, bookService, cfg.QRScanBaseURL)
	notificationService := notification.NewService(notificationRepo)

	// ---------- WebSocket hub ----------
	hub := notification.NewHub(redis)
	go hub.Run()

	notificationService.SetPublisher(notification.NewWSPublisher(hub))
	exchangeService.SetNotifier(notification.NewDispatcher(notificationService, bookRepo, wishlistRepo))

	// ---------- Handlers ----------
	bookHandler := book.NewHandler(bookService)
	qrHandler := qr.NewHandler(qrService)
	pointsHandler := points.NewHandler(pointsService, cfg.PaymentWebhookSecret)
	exchangeHandler := exchange.NewHandler(exchangeService)
	wishlistHandler := wishlist.NewHandler(wishlistRepo)
	notificationHandler := notification.NewHandler(notificationService, hub, cfg.AllowedOrigins)

	authMiddleware := middleware.Auth(jwtService)
	wsAuthMiddleware := middleware.AuthWS(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint (before Compress)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		wsAuthMiddleware(http.HandlerFunc(notificationHandler.WebSocket)).ServeHTTP(w, r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/books", bookHandler.Routes(authMiddleware))
		mountBookWishlistRoutes(r, authMiddleware, wishlistHandler.Add, wishlistHandler.Remove)
		r.Mount("/wishlist", wishlistHandler.Routes(authMiddleware))

		r.Mount("/qr", qrHandler.Routes(authMiddleware))
		r.Mount("/points", pointsHandler.Routes(authMiddleware))
		r.Mount("/exchanges", exchangeHandler.Routes(authMiddleware))
		r.Mount("/notifications", notificationHandler.Routes(authMiddleware))
	})

	// ---------- Background jobs ----------
	jobsCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()

	var reconcileWorker *points.Worker
	if cfg.ReconcileEnabled {
		reconcileWorker = points.NewWorker(pointsService, cfg.ReconcileInterval)
		reconcileWorker.Start()
	}

	cleanupJob := notification.NewCleanupJob(notificationRepo, 90)
	go cleanupJob.Start(jobsCtx, 24*time.Hour)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if reconcileWorker != nil {
		reconcileWorker.Stop()
	}
	stopJobs()
	hub.Shutdown()

	log.Info().Msg("Server exited properly")
}

// mountBookWishlistRoutes registers the wishlist toggles that live under the
// books path. They are routed here rather than inside the books subrouter so
// the wishlist handler owns them end to end.
func mountBookWishlistRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler, add, remove http.HandlerFunc) {
	r.Route("/books/{id}/wishlist", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", add)
		r.Delete("/", remove)
	})
}

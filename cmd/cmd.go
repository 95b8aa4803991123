package cmd

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geodrop-backend/internal/cache"
	"geodrop-backend/internal/clock"
	"geodrop-backend/internal/config"
	"geodrop-backend/internal/handlers"
	"geodrop-backend/internal/middleware"
	"geodrop-backend/internal/repository"
	"geodrop-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	tokenFor := flag.Int64("token-for", 0, "print a signed access token for this user id and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log)

	if *tokenFor != 0 {
		printToken(cfg, *tokenFor)
		return
	}

	ctx := context.Background()

	// Connect to database
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Test database connection
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	db := repository.NewDB(pool)
	if cfg.Database.AutoMigrate {
		if err := db.ApplySchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply schema")
		}
		log.Info().Msg("Database schema applied")
	}

	// Follow counts are cached only when Redis is configured
	var counts services.CountCache
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to redis")
		}
		defer client.Close()
		counts = cache.NewFollowCountCache(client, cfg.Redis.CountTTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis follow count cache enabled")
	}

	loc, err := cfg.Rules.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load timezone")
	}
	clk := clock.NewSystemClock(loc)
	rules := cfg.Rules

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	readRepo := repository.NewReadRepository(db)
	unlockRepo := repository.NewUnlockRepository(db)
	followRepo := repository.NewFollowRepository(db)

	// Initialize services
	quota := services.NewQuotaEngine(messageRepo, clk, rules.DailyLimit)
	reads := services.NewReadTracker(readRepo, clk)
	unlocks := services.NewUnlockEngine(reads, unlockRepo, clk, rules.UnlockThreshold)
	ranking := services.NewRankingEngine(messageRepo, clk, rules.HotRank, rules.TopLimit, rules.MaxTopLimit)
	follows := services.NewFollowGraph(followRepo, userRepo, counts, clk)
	messageService := services.NewMessageService(db, messageRepo, userRepo, quota, reads, unlocks, ranking, follows, clk)
	userService := services.NewUserService(userRepo, unlocks, cfg.JWT.Secret, clk)

	// Initialize handlers
	messageHandler := handlers.NewMessageHandler(messageService)
	userHandler := handlers.NewUserHandler(userService, messageService)
	followHandler := handlers.NewFollowHandler(follows)

	r := newRouter(messageHandler, userHandler, followHandler, userService)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("timezone", loc.String()).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// newRouter mounts the API under /api/v1
func newRouter(
	messageHandler *handlers.MessageHandler,
	userHandler *handlers.UserHandler,
	followHandler *handlers.FollowHandler,
	tokens middleware.TokenValidator,
) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(log.Logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes, a valid token only personalizes the response
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(tokens))

			r.Get("/map/messages", messageHandler.MapView)
			r.Get("/messages", messageHandler.Today)
			r.Get("/messages/top/today", messageHandler.TopToday)
			r.Get("/users/{user}", userHandler.GetProfile)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(tokens))

			r.Get("/messages/remaining", messageHandler.Remaining)
			r.Get("/messages/my/today", messageHandler.MyToday)
			r.Post("/messages", messageHandler.PostMessage)
			r.Post("/messages/{message}/read", messageHandler.ReadMessage)

			r.Get("/users/me/messages", userHandler.MyMessages)
			r.Get("/users/{user}/messages", userHandler.UserMessages)

			r.Post("/users/{user}/follow", followHandler.Follow)
			r.Post("/users/{user}/unfollow", followHandler.Unfollow)
			r.Get("/users/{user}/followers", followHandler.Followers)
			r.Get("/users/{user}/following", followHandler.Following)
			r.Get("/users/{user}/follow-status", followHandler.Status)
		})
	})

	return r
}

// printToken issues a token for an existing identity; users are provisioned
// outside this service
func printToken(cfg *config.Config, userID int64) {
	token, err := issueToken(cfg, userID)
	if err != nil {
		log.Fatal().Err(err).Int64("user_id", userID).Msg("Failed to generate token")
	}
	fmt.Println(token)
}

func issueToken(cfg *config.Config, userID int64) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("invalid user id %d", userID)
	}
	loc, err := cfg.Rules.Location()
	if err != nil {
		return "", err
	}
	users := services.NewUserService(nil, nil, cfg.JWT.Secret, clock.NewSystemClock(loc))
	return users.GenerateJWT(userID)
}

// setupLogger configures zerolog logger
func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch cfg.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// zerolog.Ctx falls back to the global logger outside requests
	zerolog.DefaultContextLogger = &log.Logger
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

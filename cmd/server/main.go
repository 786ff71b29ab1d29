package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aradabingo/bingomaster/internal/config"
	"github.com/aradabingo/bingomaster/internal/database"
	"github.com/aradabingo/bingomaster/internal/game"
	"github.com/aradabingo/bingomaster/internal/handlers"
	"github.com/aradabingo/bingomaster/internal/logging"
	"github.com/aradabingo/bingomaster/internal/middleware"
	"github.com/aradabingo/bingomaster/internal/services"
	"github.com/aradabingo/bingomaster/internal/ws"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	// Initialize logger
	logger := logging.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
	}

	logger.Info("Starting BingoMaster server...")

	// Connect to PostgreSQL
	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()
	logger.Info("Migrations completed")

	// Connect to Redis
	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	// Initialize services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)

	authService := services.NewAuthService(dbAdapter, redisAdapter, cfg.Auth.SessionTTL)
	cartelaService := services.NewCartelaService(dbAdapter)
	roundService := services.NewRoundService(dbAdapter)

	// Build the in-memory game engine
	patterns, err := game.ParsePatterns(cfg.Game.WinPatterns)
	if err != nil {
		return fmt.Errorf("parsing win patterns: %w", err)
	}

	registry := game.NewRegistry()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ctx := context.Background()
	if err := loadShopInventory(ctx, registry, cartelaService, cfg, logger, rng); err != nil {
		return fmt.Errorf("loading shop inventory: %w", err)
	}

	broadcaster := game.NewBroadcaster(cfg.Game.OutboxSize, logger)
	hub := game.NewHub(registry, broadcaster, roundService, patterns, logger)

	reaperCtx, reaperCancel := context.WithCancel(context.Background())
	go hub.RunReaper(reaperCtx, cfg.Game.ReaperInterval, cfg.Game.IdleTimeout)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	authHandler := handlers.NewAuthHandler(authService)
	cartelaHandler := handlers.NewCartelaHandler(registry, cartelaService)
	roundHandler := handlers.NewRoundHandler(hub, roundService)
	wsHandler := ws.NewHandler(hub, authService, logger)

	// Initialize middleware
	authMiddleware := middleware.NewAuthenticator(authService)
	requestLogger := middleware.NewRequestLogger(logger)
	loginRateLimiter := middleware.NewRateLimiter(
		redisDB.Client,
		cfg.Auth.LoginRateLimit,
		cfg.Auth.LoginRateWindow,
		"ratelimit:login:",
		middleware.GetClientIP,
		false,
	)
	requireAuth := authMiddleware.Require

	// Set up router
	mux := http.NewServeMux()

	// Health endpoint (no auth, no rate limit)
	mux.HandleFunc("GET /api/health", healthHandler.Check)

	// Auth endpoints
	mux.Handle("POST /api/login", loginRateLimiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/logout", requireAuth(http.HandlerFunc(authHandler.Logout)))

	// Shop and cartela endpoints
	mux.Handle("GET /api/shops", requireAuth(http.HandlerFunc(cartelaHandler.ListShops)))
	mux.Handle("GET /api/cartelas/shop/{shopID}", requireAuth(http.HandlerFunc(cartelaHandler.ListByShop)))

	// Round endpoints
	mux.Handle("POST /api/rounds", requireAuth(http.HandlerFunc(roundHandler.Create)))
	mux.Handle("GET /api/rounds/shop/{shopID}", requireAuth(http.HandlerFunc(roundHandler.History)))
	mux.Handle("GET /api/rounds/{shopID}", requireAuth(http.HandlerFunc(roundHandler.Current)))
	mux.Handle("DELETE /api/rounds/{shopID}", requireAuth(http.HandlerFunc(roundHandler.Remove)))
	mux.Handle("POST /api/rounds/{shopID}/start", requireAuth(http.HandlerFunc(roundHandler.Start)))
	mux.Handle("POST /api/rounds/{shopID}/pause", requireAuth(http.HandlerFunc(roundHandler.Pause)))
	mux.Handle("POST /api/rounds/{shopID}/draw", requireAuth(http.HandlerFunc(roundHandler.Draw)))
	mux.Handle("POST /api/rounds/{shopID}/verify", requireAuth(http.HandlerFunc(roundHandler.Verify)))
	mux.Handle("POST /api/rounds/{shopID}/end", requireAuth(http.HandlerFunc(roundHandler.End)))
	mux.Handle("POST /api/rounds/{shopID}/book", requireAuth(http.HandlerFunc(roundHandler.Book)))
	mux.Handle("POST /api/rounds/{shopID}/unbook", requireAuth(http.HandlerFunc(roundHandler.Unbook)))

	// Live feed; the handler does its own token check because browsers
	// cannot set headers on websocket upgrades.
	mux.Handle("GET /ws", wsHandler)

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = requestLogger.Apply(handler)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Websocket connections are long-lived; no write timeout.
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")
		reaperCancel()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

// loadShopInventory seeds missing cartelas when enabled and loads every
// shop's grids into the in-memory registry.
func loadShopInventory(ctx context.Context, registry *game.Registry, svc services.CartelaServiceInterface, cfg *config.Config, logger *logging.Logger, rng *rand.Rand) error {
	shops, err := svc.ListShops(ctx)
	if err != nil {
		return fmt.Errorf("listing shops: %w", err)
	}

	for _, shop := range shops {
		if shop.IsBlocked {
			logger.Info("Skipping blocked shop", map[string]interface{}{"shop_id": shop.ID})
			continue
		}
		if cfg.Game.SeedCartelas {
			inserted, err := svc.SeedShop(ctx, shop.ID, cfg.Game.CartelasPerShop, rng)
			if err != nil {
				return fmt.Errorf("seeding shop %d: %w", shop.ID, err)
			}
			if inserted > 0 {
				logger.Info("Seeded cartelas", map[string]interface{}{
					"shop_id":  shop.ID,
					"inserted": inserted,
				})
			}
		}
		cartelas, err := svc.ListByShop(ctx, shop.ID)
		if err != nil {
			return fmt.Errorf("loading cartelas for shop %d: %w", shop.ID, err)
		}
		registry.LoadShop(shop.ID, cartelas)
		logger.Info("Loaded shop", map[string]interface{}{
			"shop_id":  shop.ID,
			"cartelas": len(cartelas),
		})
	}
	return nil
}

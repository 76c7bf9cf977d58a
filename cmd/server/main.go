package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/showdown-bot/internal/auth"
	"github.com/freeeve/showdown-bot/internal/bot"
	"github.com/freeeve/showdown-bot/internal/config"
	"github.com/freeeve/showdown-bot/internal/handler"
	"github.com/freeeve/showdown-bot/internal/logger"
	"github.com/freeeve/showdown-bot/internal/middleware"
	"github.com/freeeve/showdown-bot/internal/repository/postgres"
	redisrepo "github.com/freeeve/showdown-bot/internal/repository/redis"
	"github.com/freeeve/showdown-bot/pkg/bei"
)

func main() {
	logger.Init()
	cfg := config.Load()
	log.Info().
		Str("strategy", cfg.Strategy).
		Int("searchTimeMs", cfg.SearchTimeMs).
		Int("parallelism", cfg.SearchParallelism).
		Msg("Config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Experience store (best effort)
	var db *sql.DB
	if conn, err := postgres.Connect(ctx, cfg.DatabaseURL); err != nil {
		log.Warn().Err(err).Msg("Database unavailable, experience goes to the log file only")
	} else {
		db = conn
		defer db.Close()
	}

	// Usage statistics
	redisClient, err := redisrepo.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, usage scouting falls back to the usage file")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var usage bot.UsageSource
	switch {
	case cfg.UsageFile != "":
		table, err := bot.LoadUsageFile(cfg.UsageFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.UsageFile).Msg("Usage file load failed")
		}
		usage = bot.TableSource(table)
	case redisClient != nil:
		usage = bot.NewStoreSource(redisClient, cfg.UsageFormat)
	}

	// Experience recorder
	recorder := bot.MultiRecorder{bot.NewFileRecorder(cfg.ExperienceLogPath)}
	var experienceRepo *postgres.ExperienceRepo
	if db != nil {
		experienceRepo = postgres.NewExperienceRepo(db)
		recorder = append(recorder, bot.NewStoreRecorder(experienceRepo))
	}

	// Search engine
	var engine bot.SearchEngine
	var damage bot.DamageCalculator
	if cfg.EnginePath != "" {
		pool, err := bei.NewPool(ctx, cfg.SearchParallelism, nil, cfg.EnginePath)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.EnginePath).Msg("Engine pool failed to start")
		} else {
			defer pool.Close()
			engine = bot.NewEngineSearch(pool)
			damage = bot.NewEngineDamage(pool)
		}
	}

	var decider *bot.Bot
	if engine != nil {
		decider = bot.NewBot(engine,
			bot.WithScout(bot.NewUsageScout(usage)),
			bot.WithDamage(damage),
			bot.WithParallelism(cfg.SearchParallelism),
			bot.WithGrace(time.Duration(cfg.SearchGraceMs)*time.Millisecond),
		)
	}
	strategy, err := bot.StrategyForName(cfg.Strategy, decider)
	if err != nil {
		log.Warn().Err(err).Msg("Falling back to heuristic strategy")
		strategy = bot.HeuristicStrategy{}
	}
	log.Info().Str("strategy", strategy.Name()).Msg("Strategy ready")

	timeCfg := bot.DefaultTimeConfig(cfg.SearchTimeMs)
	timeCfg.InitialBankMs = cfg.TimeBankMs
	newContext := func() *bot.StrategicContext {
		return bot.NewStrategicContext(damage, timeCfg, recorder)
	}

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.ClientKey)

	// Handlers
	hub := handler.NewHub()
	authHandler := handler.NewAuthHandler(jwtMgr)
	decisionHandler := handler.NewDecisionHandler(hub, jwtMgr, strategy, newContext)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Auth (public)
	mux.HandleFunc("POST /auth/token", authHandler.IssueToken)
	mux.HandleFunc("POST /auth/refresh", authHandler.RefreshToken)

	// Protected API routes
	api := http.NewServeMux()
	if experienceRepo != nil {
		api.HandleFunc("GET /matches/{id}/experience", handler.NewExperienceHandler(experienceRepo).ListByMatch)
	}
	if redisClient != nil {
		api.HandleFunc("GET /usage/{format}/{unit}", handler.NewUsageHandler(redisClient).GetUsage)
	}
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/decide", decisionHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.Recover, middleware.CORS(cfg.AllowedOrigins), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	hub.CloseAll()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}

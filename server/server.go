package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"LoudGate/cache"
	"LoudGate/config"
	"LoudGate/core/engine"
	"LoudGate/core/gate"
	"LoudGate/core/loudness"
	"LoudGate/core/render"
	"LoudGate/db"
	"LoudGate/logger"
	"LoudGate/model"
	"LoudGate/repository"
	"LoudGate/storage"

	"github.com/gorilla/mux"
)

// Start initializes dependencies and runs the HTTP server until a shutdown
// signal arrives.
func Start() {
	cfg := config.Load()

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 初始化 MinIO 客户端
	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("failed to initialize MinIO", logger.ErrorField(err))
	}

	// Connect to the database
	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(&model.MasterJob{}); err != nil {
		logger.Fatal("failed to migrate models", logger.ErrorField(err))
	}

	// Connect to Redis
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("failed to connect to Redis", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	// Warn early when the engine is missing; requests would only fail later
	// with SpawnFailed otherwise.
	runner := engine.ExecRunner{Timeout: cfg.ProcessTimeout}
	probeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if !engine.Probe(probeCtx, runner, cfg.FFmpegPath) {
		logger.Warn("ffmpeg not available at startup", logger.String("path", cfg.FFmpegPath))
	}
	cancel()

	measurer := loudness.NewMeasurer(runner, cfg.FFmpegPath)
	renderer := render.NewRenderer(runner, cfg.FFmpegPath)
	releaseGate := gate.New(renderer, measurer)
	jobRepo := repository.NewGormJobRepository()
	metricsCache := cache.NewMetricsCache(db.RedisClient, cache.DefaultMetricsTTL)

	apiHandler := NewAPIHandler(jobRepo, releaseGate, measurer, metricsCache, runner, cfg)

	router := mux.NewRouter()

	// CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	router.HandleFunc("/api/master", apiHandler.HandleSubmitMaster).Methods(http.MethodPost)
	router.HandleFunc("/api/master/{id}", apiHandler.HandleGetJob).Methods(http.MethodGet)
	router.HandleFunc("/api/master", apiHandler.HandleListJobs).Methods(http.MethodGet)
	router.HandleFunc("/api/check", apiHandler.HandleCheck).Methods(http.MethodPost)
	router.HandleFunc("/api/engine", apiHandler.HandleEngineStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/health", apiHandler.HandleHealth).Methods(http.MethodGet)

	srv.Handler = router

	// 优雅关闭
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", logger.ErrorField(err))
		}
	}()

	logger.Info("server listening", logger.String("addr", cfg.ServerAddr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server failed", logger.ErrorField(err))
	}
}

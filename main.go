package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aminestudio/internal/api"
	"aminestudio/internal/config"
	"aminestudio/internal/gemini"
	"aminestudio/internal/redis"
	"aminestudio/internal/service/assistant"
	"aminestudio/internal/storage"
	"aminestudio/internal/worker"
)

func main() {
	cfgPath := os.Getenv("AMINESTUDIO_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	dbType := os.Getenv("AMINESTUDIO_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	logger.Info("opening database", zap.String("driver", dbType))
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	// The studio runs uncached when redis is unavailable.
	cache, err := redis.NewClient(cfg)
	if err != nil {
		logger.Warn("redis unavailable, artifact caching disabled", zap.Error(err))
		cache = nil
	} else {
		defer cache.Close()
	}

	client := gemini.NewClient(gemini.Config{
		BaseURL:    cfg.Gemini.BaseURL,
		Model:      cfg.Gemini.Model,
		ImageModel: cfg.Gemini.ImageModel,
		Timeout:    time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second,
	}, gemini.EnvCredential(), logger)

	runtime := worker.NewManager(worker.Config{
		MinWorkers:  cfg.BasicConfig.MinWorkers,
		MaxWorkers:  cfg.BasicConfig.MaxWorkers,
		QueueSize:   cfg.BasicConfig.QueueSize,
		IdleTimeout: time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Minute,
	}, logger)
	defer runtime.Stop()

	assistantService, err := assistant.NewService(db, client, cache, runtime, assistant.Options{
		HistoryWindow:  cfg.BasicConfig.HistoryWindow,
		ThinkingBudget: cfg.Gemini.ThinkingBudget,
		RetryPolicy:    gemini.DefaultRetryPolicy(),
	}, logger)
	if err != nil {
		logger.Fatal("init assistant service", zap.Error(err))
	}

	cleanCtx, cleanCancel := context.WithCancel(context.Background())
	defer cleanCancel()
	assistantService.StartTraceJobCleaner(cleanCtx,
		time.Duration(cfg.BasicConfig.TraceCleanInterval)*time.Minute,
		time.Duration(cfg.BasicConfig.TraceJobTTL)*time.Minute,
	)

	handlers := api.NewHandler(assistantService, logger)
	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}
	logger.Info("studio listening", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

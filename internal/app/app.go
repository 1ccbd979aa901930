// Package app wires configuration, storage, providers and HTTP routes into
// a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/yoockh/intervuo/config"
	"github.com/yoockh/intervuo/internal/analysis"
	"github.com/yoockh/intervuo/internal/api/handlers"
	"github.com/yoockh/intervuo/internal/api/middleware"
	"github.com/yoockh/intervuo/internal/api/routes"
	"github.com/yoockh/intervuo/internal/cache"
	"github.com/yoockh/intervuo/internal/logger"
	"github.com/yoockh/intervuo/internal/providers/llm"
	"github.com/yoockh/intervuo/internal/providers/voice"
	mongorepo "github.com/yoockh/intervuo/internal/repositories/mongo"
	pgrepo "github.com/yoockh/intervuo/internal/repositories/postgres"
	"github.com/yoockh/intervuo/internal/services"
	"github.com/yoockh/intervuo/internal/storage"
	"github.com/yoockh/intervuo/internal/workers"
)

// App owns every long-lived client. Close releases them.
type App struct {
	Config *config.Config
	Log    *logrus.Logger
	Engine *gin.Engine

	mongo    *mongo.Client
	postgres *gorm.DB
	redis    *redis.Client
	gcs      *storage.GCSUploader
	archive  *workers.ArchivePool
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.New(cfg.LogLevel)
	a := &App{Config: cfg, Log: log}

	mc, db, err := config.NewMongo(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("mongodb: %w", err)
	}
	a.mongo = mc
	if err := config.EnsureMongoIndexes(ctx, db); err != nil {
		log.WithError(err).Warn("failed to ensure mongo indexes")
	}
	log.Info("MongoDB connected")

	pg, err := config.NewPostgres(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}
	a.postgres = pg
	if err := pgrepo.Migrate(pg); err != nil {
		a.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	log.Info("PostgreSQL connected")

	rdb, err := config.NewRedis(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	a.redis = rdb
	log.Info("Redis connected")

	interviews := mongorepo.NewInterviewRepo(db)
	profiles := pgrepo.NewProfileRepo(pg)
	rc := cache.NewRedisCache(rdb)
	queue := workers.NewStreamQueue(rdb)

	var signer storage.Signer
	if cfg.GCSBucket != "" {
		up, err := storage.NewGCSUploader(ctx, cfg.GCSBucket)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("gcs: %w", err)
		}
		a.gcs = up
		signer = up
		a.archive = &workers.ArchivePool{
			Redis:      rdb,
			Interviews: interviews,
			Uploader:   up,
			NumWorkers: cfg.ArchiveWorkers,
			Logger:     log,
		}
	} else {
		log.Warn("GCS_BUCKET not set, transcript archive disabled")
	}

	llmFactory := &llm.Factory{
		Provider:       cfg.LLMProvider,
		APIKey:         cfg.GroqAPIKey,
		BaseURL:        cfg.LLMBaseURL,
		Model:          cfg.LLMModel,
		VertexProject:  cfg.VertexProject,
		VertexLocation: cfg.VertexLocation,
	}
	analyzerFor := func(ctx context.Context, key string) (services.Analyzer, error) {
		p, err := llmFactory.ForKey(ctx, key)
		if err != nil {
			return nil, err
		}
		return analysis.NewRelay(p, log), nil
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	ultravox := voice.NewUltravox(cfg.UltravoxBaseURL, cfg.UltravoxAPIKey, httpClient)

	gateway := services.NewGatewayService(interviews, profiles, ultravox, rc)
	history := services.NewInterviewService(interviews, rc, cfg.HistoryCacheTTL, signer)
	analyses := services.NewAnalysisService(interviews, profiles, analyzerFor, rc, rc, services.AnalysisOptions{
		Timeout: cfg.AnalysisTimeout,
		Queue:   queue,
		Logger:  log,
	})
	profileSvc := services.NewProfileService(profiles)

	auth := middleware.AuthConfig{
		FirebaseProjectID: cfg.FirebaseProjectID,
		HS256Secret:       cfg.AuthHS256Secret,
	}
	if cfg.FirebaseProjectID != "" {
		auth.Keys = middleware.NewFirebaseKeys()
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CORS(cfg.CORSOrigins))
	routes.RegisterRoutes(r, routes.Deps{
		Interview: handlers.NewInterviewHandler(gateway, history),
		Analysis:  handlers.NewAnalysisHandler(analyses),
		Profile:   handlers.NewProfileHandler(profileSvc),
		Auth:      auth,
	})
	a.Engine = r

	return a, nil
}

// StartWorkers launches background consumers; they stop with ctx.
func (a *App) StartWorkers(ctx context.Context) error {
	if a.archive == nil {
		return nil
	}
	return a.archive.Start(ctx)
}

func (a *App) Close() {
	var errs []error
	if a.gcs != nil {
		errs = append(errs, a.gcs.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.postgres != nil {
		if sqlDB, err := a.postgres.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.mongo.Disconnect(ctx))
		cancel()
	}
	if err := errors.Join(errs...); err != nil {
		a.Log.WithError(err).Warn("shutdown")
	}
}

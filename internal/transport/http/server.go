package http

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clausewise/internal/bootstrap"
	"clausewise/internal/transport/http/handler"
	"clausewise/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(), gin.Recovery())
	router.MaxMultipartMemory = app.Config.Pipeline.MaxUploadBytes

	healthHandler := handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, healthChecks(app))
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var jobs handler.JobQueue
	if app.Jobs != nil {
		jobs = app.Jobs
	}
	authHandler := handler.NewAuthHandler(app.Auth)
	documentHandler := handler.NewDocumentHandler(app.Coordinator, jobs, app.Config.Pipeline.MaxUploadBytes)
	qaHandler := handler.NewQAHandler(app.QA)
	corpusHandler := handler.NewCorpusHandler(app.Corpus)

	v1 := router.Group("/api/v1")
	api := v1.Group("")
	if app.Config.Auth.Enabled {
		secret := app.Config.Auth.JWTSecret
		authGroup := v1.Group("/auth")
		authGroup.POST("/token", authHandler.Token)
		authGroup.GET("/me", middleware.AuthJWT(secret), authHandler.Me)
		api.Use(middleware.AuthJWT(secret))
	}

	docs := api.Group("/documents")
	docs.POST("", documentHandler.Upload)
	docs.GET("", documentHandler.List)
	docs.GET("/:id/status", documentHandler.Status)
	docs.POST("/:id/stages/:stage", documentHandler.Advance)
	docs.POST("/:id/process", documentHandler.Process)
	docs.POST("/:id/retry", documentHandler.Retry)
	docs.POST("/:id/reindex", documentHandler.Reindex)
	docs.POST("/:id/reprocess", documentHandler.Reprocess)
	docs.GET("/:id/extracted", documentHandler.Text)
	docs.GET("/:id/analysis", documentHandler.Analysis)

	docs.POST("/:id/questions", qaHandler.Ask)
	docs.GET("/:id/questions", qaHandler.History)
	docs.GET("/:id/questions/suggested", qaHandler.Suggested)
	docs.GET("/:id/search", qaHandler.Search)

	corpus := api.Group("/corpus")
	corpus.GET("", corpusHandler.List)
	corpus.GET("/search", qaHandler.SearchCorpus)
	corpus.GET("/entries/:entryID", corpusHandler.Get)

	return router
}

func healthChecks(app *bootstrap.App) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		app.Config.Store.Driver: func(ctx context.Context) error {
			sqlDB, err := app.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}
	}
	if app.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if app.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	if app.MinIO != nil {
		bucket := app.Config.Blob.MinIOBucket
		checks["minio"] = func(ctx context.Context) error {
			ok, err := app.MinIO.BucketExists(ctx, bucket)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("bucket missing")
			}
			return nil
		}
	}
	return checks
}

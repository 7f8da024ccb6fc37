package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"clausewise/internal/ai"
	"clausewise/internal/app"
	"clausewise/internal/cache"
	"clausewise/internal/config"
	"clausewise/internal/extract"
	"clausewise/internal/logger"
	kafkaClient "clausewise/internal/platform/kafka"
	minioClient "clausewise/internal/platform/minio"
	mysqlClient "clausewise/internal/platform/mysql"
	rabbitmqClient "clausewise/internal/platform/rabbitmq"
	redisClient "clausewise/internal/platform/redis"
	sqliteClient "clausewise/internal/platform/sqlite"
	"clausewise/internal/repository"
	"clausewise/internal/storage"
	"clausewise/internal/worker"
)

// App owns every long-lived resource. Redis, RabbitMQ, Kafka and MinIO are
// optional and nil when disabled.
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection
	MinIO  *miniogo.Client
	Events *kafkaClient.StageEventPublisher

	Store         *repository.ArtifactStore
	Coordinator   *app.Coordinator
	QA            *app.QAService
	Auth          *app.AuthService
	Corpus        *app.Corpus
	Jobs          *rabbitmqClient.JobPublisher
	ProcessWorker *worker.ProcessWorker

	llmCloser io.Closer
	StartedAt time.Time
}

// Options tune New for callers other than the server.
type Options struct {
	// StartWorker consumes the process queue in this process.
	StartWorker bool
}

func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(ctx, cfg, opts)
}

// NewWithConfig wires the application from an already loaded config. On
// error everything opened so far is closed.
func NewWithConfig(ctx context.Context, cfg *config.Config, opts Options) (a *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a = &App{Config: cfg, StartedAt: time.Now()}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()
	log := logger.For("bootstrap")

	if a.DB, err = openDatabase(ctx, cfg); err != nil {
		return nil, err
	}
	if err = repository.AutoMigrate(a.DB); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}
	a.Store = repository.NewArtifactStore(a.DB)

	blobs, err := a.openBlobs(ctx)
	if err != nil {
		return nil, err
	}

	gen, emb, err := a.openLLM(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := corpusEntries(cfg.Corpus)
	if err != nil {
		return nil, err
	}

	var analysisCache app.AnalysisCache
	if cfg.Redis.Enabled {
		if a.Redis, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			return nil, err
		}
		analysisCache = cache.NewAnalysisCache(a.Redis, time.Duration(cfg.Redis.AnalysisTTLSeconds)*time.Second)
	}

	var events app.EventPublisher
	if cfg.Kafka.Enabled {
		writer, err := kafkaClient.NewWriter(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		a.Events = kafkaClient.NewStageEventPublisher(writer)
		events = a.Events
	}

	indexer := app.NewKnowledgeIndexer(emb, a.Store, entries, app.IndexerConfig{
		BatchSize:   cfg.Pipeline.EmbeddingBatchSize,
		Concurrency: cfg.Pipeline.EmbeddingConcurrency,
		Dimension:   cfg.LLM.EmbeddingDimension,
	})
	a.Corpus = indexer.Corpus()

	a.Coordinator = app.NewCoordinator(app.CoordinatorDeps{
		Store:     a.Store,
		Blobs:     blobs,
		Extractor: extract.NewLocal(),
		Classifier: app.NewClauseClassifier(gen, app.ClassifierConfig{
			ConfidenceThreshold: cfg.Pipeline.ClassifyConfidenceThreshold,
			SchemaRetries:       cfg.Pipeline.SchemaRetries,
		}),
		Assessor: app.NewRiskAssessor(gen, app.RiskAssessorConfig{
			Concurrency: cfg.Pipeline.AnalysisConcurrency,
		}),
		Indexer: indexer,
		Cache:   analysisCache,
		Events:  events,
	}, app.CoordinatorConfig{
		MaxUploadBytes: cfg.Pipeline.MaxUploadBytes,
		StageTimeout:   time.Duration(cfg.Pipeline.StageTimeoutSeconds) * time.Second,
	})

	a.QA = app.NewQAService(a.Store, indexer, gen, app.QAConfig{
		DocumentTopK: cfg.QA.DocumentTopK,
		CorpusTopM:   cfg.QA.CorpusTopM,
		HistoryLimit: cfg.QA.HistoryLimit,
		Timeout:      time.Duration(cfg.QA.TimeoutSeconds) * time.Second,
	})

	a.Auth = app.NewAuthService(
		cfg.Auth.Username,
		cfg.Auth.PasswordHash,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)

	if cfg.RabbitMQ.Enabled {
		if a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.ProcessQueue); err != nil {
			return nil, err
		}
		a.Jobs = rabbitmqClient.NewJobPublisher(a.MQConn, cfg.RabbitMQ.ProcessQueue)
		if opts.StartWorker {
			a.ProcessWorker = worker.NewProcessWorker(a.MQConn, a.Coordinator, cfg.RabbitMQ.ProcessQueue, cfg.Pipeline.AnalysisConcurrency)
			if err = a.ProcessWorker.Start(ctx); err != nil {
				return nil, fmt.Errorf("start process worker failed: %w", err)
			}
		}
	}

	log.WithFields(logrus.Fields{
		"store":    cfg.Store.Driver,
		"blob":     cfg.Blob.Driver,
		"provider": cfg.LLM.Provider,
		"redis":    cfg.Redis.Enabled,
		"rabbitmq": cfg.RabbitMQ.Enabled,
		"kafka":    cfg.Kafka.Enabled,
		"corpus":   len(entries),
	}).Info("application wired")
	return a, nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return sqliteClient.New(ctx, cfg.Store.SQLitePath)
	default:
		return mysqlClient.New(ctx, cfg.MySQLDSN())
	}
}

func (a *App) openBlobs(ctx context.Context) (app.BlobStore, error) {
	b := a.Config.Blob
	if b.Driver == "minio" {
		client, err := minioClient.New(ctx, b.MinIOEndpoint, b.MinIOAccessKey, b.MinIOSecretKey, b.MinIOBucket, b.MinIOSecure)
		if err != nil {
			return nil, err
		}
		a.MinIO = client
		return storage.NewMinIO(client, b.MinIOBucket), nil
	}
	return storage.NewLocal(b.LocalDir)
}

func (a *App) openLLM(ctx context.Context) (ai.Generator, ai.Embedder, error) {
	l := a.Config.LLM
	var (
		gen ai.Generator
		emb ai.Embedder
	)
	switch l.Provider {
	case "gemini":
		client, err := ai.NewGeminiClient(ctx, l.APIKey, l.Model, l.EmbeddingModel)
		if err != nil {
			return nil, nil, err
		}
		a.llmCloser = client
		gen, emb = client, client
	default:
		client := ai.NewOpenAICompatibleClient(ai.OpenAICompatibleConfig{
			BaseURL:        l.BaseURL,
			APIKey:         l.APIKey,
			Model:          l.Model,
			EmbeddingModel: l.EmbeddingModel,
			Timeout:        time.Duration(l.TimeoutSeconds) * time.Second,
		})
		gen, emb = client, client
	}
	if l.RequestsPerSecond > 0 {
		gen = ai.NewRateLimitedGenerator(gen, l.RequestsPerSecond, l.Burst)
		emb = ai.NewRateLimitedEmbedder(emb, l.RequestsPerSecond, l.Burst)
	}
	return gen, emb, nil
}

func corpusEntries(cfg config.CorpusConfig) ([]app.CorpusEntry, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Path == "" {
		return app.BuiltinCorpus(), nil
	}
	entries, err := app.LoadCorpusEntries(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("load corpus failed: %w", err)
	}
	return entries, nil
}

func (a *App) Close() error {
	var errs []error
	if a.ProcessWorker != nil {
		a.ProcessWorker.Close()
	}
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.llmCloser != nil {
		if err := a.llmCloser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

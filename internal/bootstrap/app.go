package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/qdrant/go-client/qdrant"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"pdfchat/internal/ai"
	"pdfchat/internal/app"
	"pdfchat/internal/cache"
	"pdfchat/internal/config"
	"pdfchat/internal/identity"
	"pdfchat/internal/index"
	"pdfchat/internal/mailer"
	qdrantClient "pdfchat/internal/platform/qdrant"
	rabbitmqClient "pdfchat/internal/platform/rabbitmq"
	redisClient "pdfchat/internal/platform/redis"
	"pdfchat/internal/platform/sqldb"
	"pdfchat/internal/pkg/textsplit"
	"pdfchat/internal/repository"
	"pdfchat/internal/worker"
)

type Services struct {
	RAG     *app.RAGService
	Study   *app.StudyService
	Account *app.AccountService
}

type App struct {
	Config     *config.Config
	Redis      *redis.Client
	MQConn     *amqp.Connection
	SQL        *gorm.DB
	Qdrant     *qdrant.Client
	Publisher  *rabbitmqClient.Publisher
	MailWorker *worker.MailDeliveryWorker
	Sessions   *repository.SessionRepository
	LLM        *ai.OpenAICompatibleClient
	Mail       *mailer.BrevoClient
	Services   Services

	closers   []io.Closer
	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	a := &App{Config: cfg, StartedAt: time.Now()}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config

	if cfg.UsesRedis() {
		cli, err := redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		a.Redis = cli
	}

	embedder, err := a.newEmbedder()
	if err != nil {
		return err
	}

	factory, err := a.newIndexFactory(ctx)
	if err != nil {
		return err
	}
	a.Sessions = repository.NewSessionRepository(factory)

	var history app.HistoryStore = cache.NewMemoryHistory()
	if cfg.History.Backend == "redis" {
		history = cache.NewHistoryCache(a.Redis, cfg.Redis.KeyPrefix,
			time.Duration(cfg.History.TTLHours)*time.Hour, cfg.History.MaxTurns)
	}

	a.LLM = ai.NewOpenAICompatibleClient(ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	if !a.LLM.Configured() {
		slog.Warn("llm api key not configured; chat and study endpoints will fail")
	}

	mail, err := a.newMailer(ctx)
	if err != nil {
		return err
	}
	renderer := mailer.NewRenderer(cfg.Mail.FromName)

	var codes app.CodeStore = repository.NewCodeRepository()
	if cfg.OTP.Backend == "redis" {
		codes = repository.NewRedisCodeRepository(a.Redis, cfg.Redis.KeyPrefix)
	}

	provider, err := a.newIdentityProvider(ctx)
	if err != nil {
		return err
	}

	otp := app.NewOTPService(codes, mail, renderer, app.OTPOptions{
		LoginTTL: time.Duration(cfg.OTP.LoginTTLSeconds) * time.Second,
		ResetTTL: time.Duration(cfg.OTP.ResetTTLSeconds) * time.Second,
	})
	a.Services = Services{
		RAG: app.NewRAGService(a.Sessions, history, embedder, a.LLM,
			textsplit.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
			app.RAGOptions{
				ChatTopK:     cfg.RAG.ChatTopK,
				HistoryTurns: cfg.RAG.HistoryTurns,
				Author:       cfg.App.Author,
			}),
		Study: app.NewStudyService(a.Sessions, embedder, a.LLM),
		Account: app.NewAccountService(otp, provider, mail, renderer, app.AccountOptions{
			DebugCodes:     cfg.OTP.DebugMode,
			MFATokenSecret: cfg.Auth.MFATokenSecret,
			MFATokenTTL:    time.Duration(cfg.Auth.MFATokenTTLMinute) * time.Minute,
		}),
	}
	return nil
}

func (a *App) newEmbedder() (app.Embedder, error) {
	cfg := a.Config.Embedding
	switch cfg.Provider {
	case "openai":
		return ai.NewOpenAIEmbedder(ai.EmbeddingConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BatchSize:   cfg.BatchSize,
			Concurrency: cfg.Concurrency,
		}), nil
	case "onnx":
		embedder := ai.NewONNXEmbedder(ai.ONNXConfig{
			ModelPath:     cfg.ONNXModelPath,
			TokenizerPath: cfg.ONNXTokenizerPath,
			SharedLibPath: cfg.ONNXSharedLibPath,
			MaxSeqLen:     cfg.MaxSeqLen,
		})
		a.closers = append(a.closers, embedder)
		if err := embedder.Init(); err != nil {
			return nil, fmt.Errorf("init onnx embedder: %w", err)
		}
		return embedder, nil
	}
	return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
}

func (a *App) newIndexFactory(ctx context.Context) (index.Factory, error) {
	cfg := a.Config.Index
	if cfg.Backend != "qdrant" {
		return index.MemoryFactory(), nil
	}
	cli, err := qdrantClient.New(ctx, cfg.QdrantHost, cfg.QdrantPort)
	if err != nil {
		return nil, err
	}
	a.Qdrant = cli
	store := index.NewQdrantStore(cli, cfg.QdrantCollection, cfg.VectorSize)
	if err := store.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	return store.Factory(), nil
}

// newMailer returns the Brevo client directly, or a queue front-end whose worker owns the
// Brevo client when mail.transport is rabbitmq.
func (a *App) newMailer(ctx context.Context) (mailer.Mailer, error) {
	cfg := a.Config
	a.Mail = mailer.NewBrevoClient(mailer.BrevoConfig{
		BaseURL:   cfg.Mail.BrevoBaseURL,
		APIKey:    cfg.Mail.BrevoAPIKey,
		FromEmail: cfg.Mail.FromEmail,
		FromName:  cfg.Mail.FromName,
	})
	if !a.Mail.Configured() {
		slog.Warn("brevo api key not configured; one-time codes will only be logged")
	}
	if cfg.Mail.Transport != "rabbitmq" {
		return a.Mail, nil
	}

	conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}
	a.MQConn = conn
	a.MailWorker = worker.NewMailDeliveryWorker(conn, a.Mail, cfg.RabbitMQ.MailQueue)
	if err := a.MailWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start mail worker failed: %w", err)
	}
	a.Publisher = rabbitmqClient.NewPublisher(conn, cfg.RabbitMQ.MailQueue)
	return mailer.NewQueueMailer(a.Publisher), nil
}

func (a *App) newIdentityProvider(ctx context.Context) (identity.Provider, error) {
	cfg := a.Config.Identity
	if cfg.Provider != "sql" {
		return identity.Passthrough{}, nil
	}
	db, err := sqldb.Open(ctx, cfg.Dialect, cfg.DSN)
	if err != nil {
		return nil, err
	}
	a.SQL = db
	provider := identity.NewSQLProvider(db)
	if err := provider.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return provider, nil
}

func (a *App) Close() error {
	var errs []error
	if a.MailWorker != nil {
		a.MailWorker.Close()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Qdrant != nil {
		if err := a.Qdrant.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.SQL != nil {
		if sqlDB, err := a.SQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

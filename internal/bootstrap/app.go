package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"childhood-friend/internal/ai"
	appsvc "childhood-friend/internal/app"
	"childhood-friend/internal/cache"
	"childhood-friend/internal/config"
	"childhood-friend/internal/media"
	"childhood-friend/internal/platform/database"
	"childhood-friend/internal/platform/logger"
	"childhood-friend/internal/platform/objectstore"
	rabbitmqClient "childhood-friend/internal/platform/rabbitmq"
	redisClient "childhood-friend/internal/platform/redis"
	"childhood-friend/internal/repository"
	"childhood-friend/internal/vision"
	"childhood-friend/internal/worker"
)

// Services are the use cases the transports call into.
type Services struct {
	Auth         *appsvc.AuthService
	Chat         *appsvc.ChatService
	Sessions     *appsvc.SessionService
	Conversation *appsvc.Conversation
	Uploads      *appsvc.UploadService
	Media        *appsvc.MediaService
}

type App struct {
	Config        *config.Config
	Log           *logger.Logger
	DB            *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	Objects       *objectstore.GCS
	Speech        *ai.GoogleTranscriber
	ProfileWorker *worker.ProfileEnrichWorker

	Services Services
	Pipeline *media.Pipeline

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	a := &App{Config: cfg, Log: log, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	db, err := database.New(ctx, cfg.Database.Driver, cfg.DSN())
	if err != nil {
		return err
	}
	a.DB = db
	if err := database.Migrate(db); err != nil {
		return err
	}

	if a.Redis, err = redisClient.New(ctx, cfg.Redis); err != nil {
		return err
	}
	if a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ); err != nil {
		return err
	}
	if a.Objects, err = objectstore.New(ctx, cfg.Storage, a.Log); err != nil {
		return err
	}

	llm := ai.NewClient(cfg.LLM)
	var transcriber ai.Transcriber = llm
	if cfg.Speech.Provider == "google" {
		if a.Speech, err = ai.NewGoogleTranscriber(ctx, cfg.Speech.CredentialsFile, cfg.Speech.LanguageCode); err != nil {
			return err
		}
		transcriber = a.Speech
	}

	userRepo := repository.NewUserRepository(db)
	personRepo := repository.NewPersonRepository(db)
	sessionRepo := repository.NewChatSessionRepository(db)
	messageRepo := repository.NewChatMessageRepository(db)
	mediaRepo := repository.NewMediaFileRepository(db)

	// interfaces stay nil when the backing service is disabled
	var historyCache appsvc.HistoryCache
	if a.Redis != nil {
		historyCache = cache.NewHistoryCache(
			a.Redis,
			time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
		)
	}

	extractor := appsvc.NewProfileExtractor(personRepo, llm, a.Log)
	var publisher appsvc.ProfileJobPublisher
	if a.MQConn != nil {
		publisher = rabbitmqClient.NewProfileJobPublisher(a.MQConn, cfg.RabbitMQ.ProfileExtractQueue)
		a.ProfileWorker = worker.NewProfileEnrichWorker(a.MQConn, extractor, cfg.RabbitMQ.ProfileExtractQueue, a.Log)
		if err := a.ProfileWorker.Start(ctx); err != nil {
			return fmt.Errorf("start profile worker failed: %w", err)
		}
	}
	enricher := appsvc.NewProfileEnricher(publisher, extractor, a.Log)

	sessions := appsvc.NewSessionService(sessionRepo, cfg.LLM.Model, cfg.Location(), a.Log)
	conversation := appsvc.NewConversation(messageRepo, mediaRepo, historyCache, a.Log)
	mediaService := appsvc.NewMediaService(
		sessions,
		conversation,
		llm,
		llm,
		transcriber,
		cfg.LLM.MaxContextMessage,
		cfg.LLM.MaxTokens,
		a.Log,
	)

	a.Services = Services{
		Auth: appsvc.NewAuthService(
			userRepo,
			personRepo,
			cfg.Auth.JWTSecret,
			time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
			a.Log,
		),
		Chat:         appsvc.NewChatService(sessions, conversation, userRepo, llm, enricher, cfg.LLM.MaxTokens, a.Log),
		Sessions:     sessions,
		Conversation: conversation,
		Uploads:      appsvc.NewUploadService(sessions, conversation, a.Objects, llm, a.Log),
		Media:        mediaService,
	}

	a.Pipeline = media.NewPipeline(
		mediaService,
		mediaService,
		a.Objects,
		vision.NewFrameExtractor(cfg.Media.FFmpegPath, cfg.Media.FrameMaxWidth),
		media.Options{
			TempDir:         cfg.Media.TempDir,
			AudioFlushBytes: cfg.Media.AudioFlushBytes,
			FrameInterval:   time.Duration(cfg.Media.FrameIntervalMS) * time.Millisecond,
		},
		a.Log,
	)

	a.Log.Info("application initialized",
		"db_driver", cfg.Database.Driver,
		"redis", a.Redis != nil,
		"rabbitmq", a.MQConn != nil,
		"speech", cfg.Speech.Provider,
	)
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.ProfileWorker != nil {
		a.ProfileWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Speech != nil {
		if err := a.Speech.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Objects != nil {
		if err := a.Objects.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
	return closeErr
}

package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/numera/numera/internal/api"
	v1 "github.com/numera/numera/internal/api/v1"
	"github.com/numera/numera/internal/cache"
	"github.com/numera/numera/internal/config"
	"github.com/numera/numera/internal/domain/document"
	"github.com/numera/numera/internal/domain/sequence"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/postgres"
	"github.com/numera/numera/internal/repository"
	"github.com/numera/numera/internal/sentry"
	"github.com/numera/numera/internal/service"
	"github.com/numera/numera/internal/types"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,

			// Cache
			provideCache,

			// Postgres
			postgres.NewDB,
			provideDBClient,

			// Repositories
			repository.NewSequenceRepository,
			repository.NewDocumentRepository,

			// Services
			service.NewAssembler,
			service.NewRetryPolicy,
			provideDocumentService,
		),
	)

	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideCache() cache.Cache {
	cache.Initialize()
	return cache.NewInMemoryCache()
}

func provideDBClient(db *postgres.DB) postgres.IClient {
	return db
}

func provideDocumentService(
	db postgres.IClient,
	docRepo document.Repository,
	seqRepo sequence.Repository,
	assembler service.Assembler,
	retry *service.RetryPolicy,
	c cache.Cache,
	sentryService *sentry.Service,
	log *logger.Logger,
) service.DocumentService {
	return service.NewDocumentService(service.DocumentServiceParams{
		DB:        db,
		DocRepo:   docRepo,
		SeqRepo:   seqRepo,
		Assembler: assembler,
		Retry:     retry,
		Cache:     c,
		Sentry:    sentryService,
		Logger:    log,
	})
}

func provideHandlers(
	log *logger.Logger,
	documentService service.DocumentService,
) api.Handlers {
	return api.Handlers{
		Health:   v1.NewHealthHandler(log),
		Document: v1.NewDocumentHandler(documentService, log),
	}
}

func provideRouter(handlers api.Handlers) *gin.Engine {
	return api.NewRouter(handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	db *postgres.DB,
	shutdowner fx.Shutdowner,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		if cfg.Postgres.AutoMigrate {
			runMigration(lc, db, log)
		}
		startAPIServer(lc, r, cfg, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeMigrate:
		runMigration(lc, db, log)
		stopAfterStart(lc, shutdowner)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting API server...")
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func runMigration(lc fx.Lifecycle, db *postgres.DB, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Running database migrations...")
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			log.Info("Migration completed successfully")
			return nil
		},
	})
}

func stopAfterStart(lc fx.Lifecycle, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return shutdowner.Shutdown()
		},
	})
}

// Package app wires the libraryhub components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"libraryhub/internal/backend"
	"libraryhub/internal/borrowing"
	"libraryhub/internal/bot"
	"libraryhub/internal/config"
	"libraryhub/internal/database"
	"libraryhub/internal/domain"
	"libraryhub/internal/events"
	"libraryhub/internal/google"
	"libraryhub/internal/logging"
	"libraryhub/internal/notify"
	"libraryhub/internal/repository"
	"libraryhub/internal/service"
	"libraryhub/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// App holds the wired services of one process.
type App struct {
	Config  *config.Config
	Logger  *zerolog.Logger
	DB      *database.DB
	Redis   *redis.Client
	Backend *backend.Client
	Cache   *repository.CachedRepository
	Deriver *borrowing.Deriver
	Events  *events.EventBus
	Worker  *worker.SyncWorker

	Borrowings *service.BorrowingService
	Catalog    *service.CatalogService
	// Views is a read-only borrowing service for reports and reminders.
	Views *service.BorrowingService

	Report   domain.ReportWriter
	Reminder *notify.Reminder
	Bot      *bot.Bot
}

// LoadConfig reads CONFIG_PATH (default configs/config.yaml) and builds the logger.
func LoadConfig(component string) (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	base, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.Component(base, component)
	return cfg, &logger, closer, nil
}

// New opens storage and wires services. Optional integrations that fail to start are logged and skipped.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	db, err := database.NewDB(cfg.Database, logger)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Database.Driver).Msg("init database")
		return nil, err
	}
	a.DB = db

	a.Redis = initRedis(ctx, cfg, logger)
	a.Backend = backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Token, time.Duration(cfg.Backend.Timeout)*time.Second, logger)
	a.Deriver = borrowing.NewDeriver(borrowing.Policy{
		DailyRate:     cfg.Fines.Rate(),
		DueSoonWithin: cfg.Fines.DueSoonWithin(),
	}, nil)

	var source domain.BorrowingRepository = a.Backend
	if cfg.Backend.Source == config.SourceMirror {
		source = db
	}
	repo := source
	if cfg.Cache.Enabled {
		a.Cache = repository.NewCachedRepository(source, newCacheStore(a.Redis, logger), time.Duration(cfg.Cache.TTL)*time.Second, logger)
		repo = a.Cache
	}

	a.Views = service.NewBorrowingService(repo, nil, a.Deriver, nil, nil, logger)
	a.Report = initReport(ctx, cfg, logger)

	a.Events = events.NewEventBus(logger)
	var queue domain.SyncQueue
	if cfg.Sync.Enabled {
		opts := worker.Options{
			Redis:  a.Redis,
			Views:  a.Views,
			Report: a.Report,
			Logger: logger,
		}
		if a.Cache != nil {
			opts.Invalidator = a.Cache
		}
		a.Worker = worker.NewSyncWorker(db, a.Backend, db, opts)
		queue = a.Worker
	}

	a.Borrowings = service.NewBorrowingService(repo, a.Backend, a.Deriver, a.Events, queue, logger)
	a.Catalog = service.NewCatalogService(repo, a.Backend, a.Events, queue, logger)
	if a.Cache != nil {
		SubscribeCacheInvalidation(ctx, a.Events, a.Cache, logger)
	}

	if cfg.Notify.Enabled {
		if err := a.initTelegram(); err != nil {
			logger.Warn().Err(err).Msg("telegram disabled")
		}
	}

	return a, nil
}

// Start runs the background jobs until ctx is done.
func (a *App) Start(ctx context.Context) {
	if a.Worker != nil {
		go a.Worker.Start(ctx)
		go a.Worker.StartScheduler(ctx, time.Duration(a.Config.Sync.Interval)*time.Second)
	}
	if a.Config.Backup.Enabled && a.DB.Driver() == config.DriverSQLite {
		backupService := database.NewBackupService(a.Config.Database.Path, a.Config.Backup, a.Logger)
		go backupService.Start(ctx)
	}
	if a.Reminder != nil {
		go a.Reminder.Start(ctx)
	}
	if a.Bot != nil {
		go a.Bot.Start(ctx)
	}
}

// Health checks the mirror database and, when configured, redis.
func (a *App) Health(ctx context.Context) error {
	if err := a.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.Redis != nil {
		if err := repository.Ping(ctx, a.Redis); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *App) Close() error {
	if a.Bot != nil {
		a.Bot.Stop()
	}
	var errs []error
	if a.Redis != nil {
		errs = append(errs, repository.Close(a.Redis))
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// newCacheStore prefers redis and degrades to memory.
func newCacheStore(client *redis.Client, logger *zerolog.Logger) domain.CacheStore {
	memory := repository.NewMemoryCacheStore()
	if client == nil {
		return memory
	}
	return repository.NewFailoverCacheStore(repository.NewRedisCacheStore(client, "libraryhub:cache"), memory, logger)
}

func initReport(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) domain.ReportWriter {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.ReportSpreadSheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile,
		cfg.Google.ReportSpreadSheetID, cfg.Google.ReportSheetName, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed, continuing without sheets")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func (a *App) initTelegram() error {
	cfg := a.Config.Notify
	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("create bot api: %w", err)
	}
	botAPI.Debug = cfg.Debug

	reminderLogger := logging.Component(a.Logger, "reminder")
	reminder, err := notify.NewReminder(a.Views, service.NewTelegramService(botAPI), cfg.ChatIDs, cfg.ReminderTime, &reminderLogger)
	if err != nil {
		return err
	}
	a.Reminder = reminder

	if cfg.Commands {
		botLogger := logging.Component(a.Logger, "bot")
		a.Bot = bot.NewBot(botAPI, a.Borrowings, cfg.LibrarianIDs, cfg.PageSize, &botLogger)
		a.Logger.Info().Str("username", botAPI.Self.UserName).Msg("Telegram bot authorized")
	}
	return nil
}

package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/bot"
	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/conversation"
	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/handler"
	"github.com/psds-microservice/helpdesk-service/internal/kafka"
	"github.com/psds-microservice/helpdesk-service/internal/lifecycle"
	"github.com/psds-microservice/helpdesk-service/internal/logging"
	"github.com/psds-microservice/helpdesk-service/internal/notify"
	"github.com/psds-microservice/helpdesk-service/internal/router"
	"github.com/psds-microservice/helpdesk-service/internal/service"
	"github.com/psds-microservice/helpdesk-service/internal/telegram"
	"github.com/psds-microservice/helpdesk-service/internal/workflow"
	"gorm.io/gorm"
)

// interactionTimeout bounds one interaction's work once it has been dequeued.
const interactionTimeout = 30 * time.Second

// App: бот поддержки: HTTP API + Telegram-поллер поверх общего диспетчера.
type App struct {
	cfg *config.Config
	log *slog.Logger

	sqlDB    *sql.DB
	redis    *conversation.RedisStore
	producer *kafka.Producer
	events   *kafka.Async

	tg         *telegram.Client
	dispatcher *bot.Dispatcher
	seq        *bot.Sequencer
	httpSrv    *http.Server
}

// New собирает зависимости. Для postgres накатываются миграции goose,
// для sqlite схема создаётся через AutoMigrate.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger = logging.OrDefault(logger)
	a := &App{cfg: cfg, log: logger.With("component", "app"), seq: bot.NewSequencer()}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	a.sqlDB, err = db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	store, err := a.conversationStore()
	if err != nil {
		a.closeAll()
		return nil, err
	}

	tickets := service.NewTicketService(db)
	blocked := service.NewBlockedService(db)
	a.producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket, logger)
	a.events = kafka.NewAsync(a.producer)

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	var profiles workflow.ProfileLookup
	if cfg.BotToken != "" {
		a.tg, err = telegram.NewClient(cfg.BotToken, logger)
		if err != nil {
			a.closeAll()
			return nil, err
		}
		notifier, profiles = a.tg, a.tg
	} else {
		a.log.Warn("BOT_TOKEN not set: messages go to the log and the poller is off")
	}

	engine := lifecycle.NewEngine(tickets, notifier, a.events, logger)
	set := workflow.New(workflow.Deps{
		Tracker:       conversation.NewTracker(store, conversation.Forms(cfg.StrictValidation)),
		Engine:        engine,
		Tickets:       tickets,
		Blocked:       blocked,
		Notifier:      notifier,
		Profiles:      profiles,
		Events:        a.events,
		IsAdmin:       cfg.IsAdmin,
		SupportChatID: cfg.SupportChatID,
		Log:           logger,
	})
	a.dispatcher = bot.NewDispatcher(set, logger)

	h := router.Handlers{
		Health:  handler.NewHealthHandler(a.sqlDB),
		Tickets: handler.NewTicketHandler(tickets, blocked),
	}
	if cfg.InteractionsToken != "" {
		h.Interactions = handler.NewInteractionHandler(cfg.InteractionsToken, a.runSync)
	}
	a.httpSrv = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      interactionTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DB.Driver == config.DriverPostgres {
		if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	db, err := database.Open(cfg.DB.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if cfg.DB.Driver == config.DriverSQLite {
		if err := database.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("database: automigrate: %w", err)
		}
	}
	return db, nil
}

func (a *App) conversationStore() (conversation.Store, error) {
	if a.cfg.ConversationStore != config.ConversationStoreRedis {
		return conversation.NewMemoryStore(), nil
	}
	rs, err := conversation.NewRedisStore(a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("conversation store: %w", err)
	}
	a.redis = rs
	return rs, nil
}

// enqueue hands an interaction to the user's queue; the poller never waits.
func (a *App) enqueue(ctx context.Context, in bot.Interaction) {
	base := context.WithoutCancel(ctx)
	a.seq.Go(in.UserID, func() {
		hctx, cancel := context.WithTimeout(base, interactionTimeout)
		defer cancel()
		_ = a.dispatcher.Handle(hctx, in)
	})
}

// runSync runs an HTTP-injected interaction in the user's queue and waits.
func (a *App) runSync(ctx context.Context, in bot.Interaction) error {
	base := context.WithoutCancel(ctx)
	var err error
	if derr := a.seq.Do(ctx, in.UserID, func() {
		hctx, cancel := context.WithTimeout(base, interactionTimeout)
		defer cancel()
		err = a.dispatcher.Handle(hctx, in)
	}); derr != nil {
		return derr
	}
	return err
}

// Run запускает HTTP-сервер и поллер, блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s", a.httpSrv.Addr)
	log.Printf("  Swagger UI:    %s/swagger", base)
	log.Printf("  Health:        %s/health", base)
	log.Printf("  Ready:         %s/ready", base)
	log.Printf("  API v1:        %s/api/v1/", base)
	if a.cfg.InteractionsToken != "" {
		log.Printf("  Interactions:  POST %s/api/v1/interactions", base)
	}
	if a.producer.Enabled() {
		log.Printf("kafka: publishing to %s", a.cfg.KafkaTopicTicket)
	}

	errCh := make(chan error, 2)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	pollCtx, stopPoll := context.WithCancel(ctx)
	defer stopPoll()
	pollDone := make(chan struct{})
	if a.tg != nil {
		go func() {
			defer close(pollDone)
			if err := a.tg.Run(pollCtx, a.cfg.PollTimeout, func(in bot.Interaction) { a.enqueue(pollCtx, in) }); err != nil {
				errCh <- fmt.Errorf("telegram: %w", err)
			}
		}()
	} else {
		close(pollDone)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		a.log.Error("component failed, shutting down", "error", runErr)
	}
	stopPoll()
	<-pollDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("http shutdown: %w", err)
	}
	a.seq.Wait()
	a.events.Wait()
	a.closeAll()
	return runErr
}

func (a *App) closeAll() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka close", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close", "error", err)
		}
	}
	if a.sqlDB != nil {
		if err := a.sqlDB.Close(); err != nil {
			a.log.Warn("database close", "error", err)
		}
	}
}

// Package app собирает сервис из конфигурации и управляет его жизненным циклом.
package app

import (
	"context"
	"eofficeTracker/internal/cache"
	"eofficeTracker/internal/config"
	"eofficeTracker/internal/handlers"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/middleware"
	"eofficeTracker/internal/models/actor"
	"eofficeTracker/internal/notify"
	"eofficeTracker/internal/repository/inmemory"
	"eofficeTracker/internal/repository/postgres"
	"eofficeTracker/internal/seed"
	"eofficeTracker/internal/service"
	"eofficeTracker/internal/worker"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ActorStore - хранилище пользователей, которое умеет и читать, и сохранять.
type ActorStore interface {
	Save(context.Context, *actor.Actor) error
	GetByID(context.Context, uuid.UUID) (*actor.Actor, error)
	GetByUsername(context.Context, string) (*actor.Actor, error)
}

type App struct {
	config *config.Config
	server *http.Server
	router *chi.Mux

	tasks     service.TaskRepository
	actors    service.ActorRepository
	reminders service.ReminderRepository

	taskService     *service.TaskService
	reminderService *service.ReminderService
	dispatcher      *notify.Dispatcher
	retry           *notify.RetryProcessor
	worker          *worker.DeadlineWorker

	shutdowns []func() // функции для graceful shutdown, выполняются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	store, err := a.initStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.initCache(ctx, store); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.seed(ctx, store); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.initServices(); err != nil {
		a.Close()
		return nil, err
	}

	a.initRouter()
	return a, nil
}

func (a *App) initStorage(ctx context.Context) (ActorStore, error) {
	switch a.config.Repository.Type {
	case "postgres":
		db := a.config.Database
		if db.AutoMigrate {
			if err := postgres.MigrateUp(db.URL); err != nil {
				return nil, fmt.Errorf("миграции: %w", err)
			}
		}

		storage, err := postgres.New(ctx, db.URL, postgres.PoolConfig{
			MaxConns:        int32(db.MaxConnections),
			MinConns:        int32(db.MinConnections),
			MaxConnIdleTime: db.IdleTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("подключение к PostgreSQL: %w", err)
		}
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("Закрытие пула PostgreSQL...")
			storage.Close()
		})

		a.tasks = storage.Tasks()
		a.reminders = storage.Reminders()
		a.actors = storage.Actors()
		logger.Info("Хранилище: PostgreSQL")
		return storage.Actors(), nil

	case "inmemory":
		actors := inmemory.NewActorStorage()
		a.tasks = inmemory.NewTaskStorage()
		a.reminders = inmemory.NewReminderStorage()
		a.actors = actors
		logger.Info("Хранилище: в памяти")
		return actors, nil
	}
	return nil, fmt.Errorf("неизвестный тип хранилища %q", a.config.Repository.Type)
}

func (a *App) initCache(ctx context.Context, store ActorStore) error {
	rc := a.config.Redis
	if !rc.Enabled {
		return nil
	}

	rdb, err := cache.NewClient(ctx, rc.URL, rc.Password, rc.DB)
	if err != nil {
		return fmt.Errorf("подключение к Redis: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Закрытие Redis...")
		if err := rdb.Close(); err != nil {
			logger.Warn("Cache: Ошибка закрытия Redis", zap.Error(err))
		}
	})

	a.actors = cache.NewActorCache(rdb, store, rc.TTL)
	logger.Info("Cache: Кэш пользователей включён", zap.Duration("ttl", rc.TTL))
	return nil
}

// seed загружает пользователей из файла; при включённом кэше сбрасывает их записи.
func (a *App) seed(ctx context.Context, store ActorStore) error {
	path := a.config.Seed.Path
	if path == "" {
		return nil
	}

	var saver seed.ActorSaver = store
	if c, ok := a.actors.(*cache.ActorCache); ok {
		saver = invalidatingSaver{store: store, cache: c}
	}

	n, err := seed.LoadFile(ctx, path, saver)
	if err != nil {
		return fmt.Errorf("загрузка пользователей: %w", err)
	}
	logger.Info("Seed: Пользователи загружены", zap.String("path", path), zap.Int("count", n))
	return nil
}

type invalidatingSaver struct {
	store ActorStore
	cache *cache.ActorCache
}

func (s invalidatingSaver) Save(ctx context.Context, a *actor.Actor) error {
	if err := s.store.Save(ctx, a); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, a); err != nil {
		logger.Warn("Cache: Не удалось сбросить пользователя", zap.String("actor_id", a.ID.String()), zap.Error(err))
	}
	return nil
}

func (a *App) initServices() error {
	nc := a.config.Notify

	outbox, err := notify.OpenOutbox(nc.OutboxPath)
	if err != nil {
		return err
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Закрытие outbox...")
		if err := outbox.Close(); err != nil {
			logger.Warn("Notify: Ошибка закрытия outbox", zap.Error(err))
		}
	})

	a.dispatcher = notify.NewDispatcher(a.tasks, a.actors, outbox, notify.Config{
		QueueSize:   nc.QueueSize,
		Workers:     nc.Workers,
		SendTimeout: nc.SendTimeout,
	}, a.senders()...)

	a.retry, err = notify.NewRetryProcessor(outbox, a.dispatcher, notify.RetryConfig{
		Schedule:   nc.RetrySchedule,
		BatchSize:  nc.RetryBatch,
		MaxRetries: nc.MaxRetries,
	})
	if err != nil {
		return err
	}

	a.reminderService = service.NewReminderService(a.tasks, a.actors, a.reminders)
	a.taskService = service.NewTaskService(a.tasks, a.actors, a.dispatcher, a.reminderService)

	if a.config.Worker.Enabled {
		interval := a.config.Worker.Interval
		window := a.config.Worker.Window
		a.worker = worker.NewDeadlineWorker(a.tasks, a.dispatcher, a.reminderService, &interval, &window)
	}
	return nil
}

// senders подбирает провайдера на каждый канал; без настроек сообщение пишется в лог.
func (a *App) senders() []notify.Sender {
	nc := a.config.Notify
	res := make([]notify.Sender, 0, 2)

	if nc.SMTP.Host != "" {
		res = append(res, notify.NewSMTPSender(notify.SMTPConfig{
			Host:     nc.SMTP.Host,
			Port:     nc.SMTP.Port,
			Username: nc.SMTP.Username,
			Password: nc.SMTP.Password,
			From:     nc.SMTP.From,
		}))
	} else {
		logger.Warn("Notify: SMTP не настроен, письма пишутся в лог")
		res = append(res, notify.NewLogSender(notify.ChannelEmail))
	}

	if nc.Twilio.AccountSID != "" {
		client := &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   nc.SendTimeout,
		}
		res = append(res, notify.NewTwilioSender(notify.TwilioConfig{
			AccountSID: nc.Twilio.AccountSID,
			AuthToken:  nc.Twilio.AuthToken,
			From:       nc.Twilio.From,
		}, client))
	} else {
		logger.Warn("Notify: Twilio не настроен, SMS пишутся в лог")
		res = append(res, notify.NewLogSender(notify.ChannelSMS))
	}
	return res
}

func (a *App) initRouter() {
	sc := a.config.Server

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.RateLimit(sc.RateLimit))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: sc.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	handlers.Routes(r,
		handlers.NewTaskHandler(a.taskService),
		handlers.NewReminderHandler(a.reminderService),
		middleware.Authenticate(a.config.Auth.JWTSecret, a.actors),
	)

	a.router = r
	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           otelhttp.NewHandler(r, "eoffice-tracker"),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Handler отдаёт собранный роутер без запуска сервера.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run блокируется до отмены ctx или ошибки сервера. Сначала останавливается HTTP,
// затем фоновые задачи, чтобы события последних запросов успели попасть в outbox.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	bg, bgCtx := errgroup.WithContext(bgCtx)
	bg.Go(func() error {
		return a.dispatcher.Run(bgCtx)
	})
	if a.worker != nil {
		bg.Go(func() error {
			a.worker.Start(bgCtx)
			return nil
		})
	}
	a.retry.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP сервер: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Остановка сервера...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("остановка HTTP сервера: %w", err)
		}
		return nil
	})
	serverErr := g.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()
	a.retry.Stop(stopCtx)

	stopBackground()
	if err := bg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Ошибка фоновых задач", err)
	}

	if dropped := a.dispatcher.Dropped(); dropped > 0 {
		logger.Warn("Notify: Потеряно событий", zap.Int64("count", dropped))
	}
	logger.Info("Сервер остановлен")
	return serverErr
}

// Close выполняет накопленные shutdown-функции. Повторный вызов ничего не делает.
func (a *App) Close() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}

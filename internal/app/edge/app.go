package edge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"agroedge/internal/app/edge/api"
	"agroedge/internal/app/fanout"
	"agroedge/internal/app/fanout/ws"
	"agroedge/internal/config"
	"agroedge/internal/domain/record"
	"agroedge/internal/domain/session"
	domainsync "agroedge/internal/domain/sync"
	"agroedge/internal/infrastructure/bus"
	"agroedge/internal/infrastructure/storage/sqlite"
	"agroedge/internal/utils/retry"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

const (
	// TokenIssuer - издатель токенов клиентов панели мониторинга
	TokenIssuer     = "agroedge-edgehub"
	telemetryBuffer = 256
	shutdownTimeout = 10 * time.Second
)

// App - edge-узел: локальное хранилище, синхронизация с облаком,
// рассылка событий клиентам и локальный API
type App struct {
	cfg       *config.Config
	log       *slog.Logger
	storage   *sqlite.Storage
	records   *sqlite.RecordRepository
	scheduler *Scheduler
	sessions  *session.Service
	hub       *fanout.Hub
	bus       *bus.Bus
	telemetry chan fanout.Update
	server    *http.Server
}

// New открывает локальную базу, восстанавливает статус синхронизации
// и собирает компоненты узла. Шина подключается, только если задан redis_url.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	storage, err := sqlite.New(cfg.DataPath, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		log:       log,
		storage:   storage,
		records:   sqlite.NewRecordRepository(storage, log),
		telemetry: make(chan fanout.Update, telemetryBuffer),
	}

	a.sessions, err = session.NewService(cfg.JWTSecret, TokenIssuer, log)
	if err != nil {
		storage.Close()
		return nil, err
	}

	var relay interface {
		fanout.CommandRelay
		DeltaSink
	} = NewLogRelay(log)
	if cfg.RedisURL != "" {
		a.bus, err = bus.New(ctx, cfg.RedisURL, log)
		if err != nil {
			storage.Close()
			return nil, fmt.Errorf("message bus: %w", err)
		}
		relay = NewBusRelay(a.bus, log)
	}

	cloud := NewCloudClient(cfg.CloudEndpoint, cfg.APIKey, cfg.NodeID, cfg.ConnectTimeout(), log)
	configs := sqlite.NewConfigRepository(storage)
	upload := NewUploadPipeline(a.records, cloud, UploadOptions{
		BatchSize:          cfg.BatchSize,
		MaxBatchesPerCycle: cfg.MaxBatchesPerCycle,
		Retry: retry.Policy{
			MaxAttempts: cfg.RetryAttempts,
			Delay:       cfg.RetryDelay(),
		},
		Source: domainsync.SourceEdgeHub,
	}, log)

	a.scheduler = NewScheduler(SchedulerDeps{
		Probe:    NewProbe(cloud, log),
		Upload:   upload,
		Download: NewReconciler(cloud, configs, relay, log),
		Statuses: sqlite.NewStatusRepository(storage),
		Pending:  a.records,
	}, cfg.SyncInterval(), log)

	if err := a.scheduler.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load sync status: %w", err)
	}

	a.hub = fanout.NewHub(a.sessions, a.records, relay, log)

	router := api.New(api.Deps{
		Syncer:   a.scheduler,
		Config:   configs,
		Ingester: a,
		Sessions: a.sessions,
		WS:       ws.NewHandler(a.hub, log),
		NodeID:   cfg.NodeID,
		Version:  Version,
	}, log)

	a.server = &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Ingest сохраняет запись для последующей выгрузки и публикует ее в поток
// телеметрии. Переполненный поток не мешает сохранению.
func (a *App) Ingest(ctx context.Context, p record.Payload) (record.Record, error) {
	rec, err := a.records.Insert(ctx, p)
	if err != nil {
		return record.Record{}, err
	}

	if u, ok := fanout.RecordUpdate(rec); ok {
		select {
		case a.telemetry <- u:
		default:
			a.log.Warn("Поток телеметрии переполнен, событие не разослано", "kind", rec.Kind.String(), "id", rec.ID)
		}
	}
	return rec, nil
}

// Run запускает синхронизацию, источники событий и HTTP-сервер.
// Возвращается после отмены ctx или первой фатальной ошибки.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// подписки оформляются до запуска фоновых задач: при ошибке запускать нечего
	var alerts, statuses <-chan []byte
	if a.bus != nil {
		var err error
		if alerts, err = a.bus.Subscribe(ctx, bus.ChannelAlerts); err != nil {
			return err
		}
		if statuses, err = a.bus.Subscribe(ctx, bus.ChannelDeviceStatus); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	a.scheduler.Start(gctx)
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return a.scheduler.Stop(stopCtx)
	})

	g.Go(func() error { return a.hub.RunTelemetry(gctx, a.telemetry) })
	g.Go(func() error { return a.hub.RunHealth(gctx, a.cfg.HealthInterval(), a.scheduler.Status) })
	if a.bus != nil {
		g.Go(func() error { return a.hub.RunAlerts(gctx, alerts) })
		g.Go(func() error { return a.hub.RunDeviceStatus(gctx, statuses) })
	}

	g.Go(func() error {
		a.log.Info("Локальный API запущен", "address", a.cfg.ListenAddress, "node_id", a.cfg.NodeID)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// SyncOnce выполняет один цикл синхронизации вне Run
func (a *App) SyncOnce(ctx context.Context) (domainsync.Status, error) {
	st, err := a.scheduler.ForceSync(ctx)
	if stopErr := a.scheduler.Stop(context.WithoutCancel(ctx)); stopErr != nil {
		a.log.Warn("Не удалось сохранить статус синхронизации", "error", stopErr)
	}
	return st, err
}

// Status возвращает сохраненный статус синхронизации
func (a *App) Status() domainsync.Status {
	return a.scheduler.Status()
}

// IssueToken выпускает токен клиента панели мониторинга
func (a *App) IssueToken(userID string, farms, permissions []string, ttl time.Duration) (string, error) {
	return a.sessions.Issue(userID, farms, permissions, ttl)
}

func (a *App) Close() error {
	var errs []error
	if a.bus != nil {
		errs = append(errs, a.bus.Close())
	}
	errs = append(errs, a.storage.Close())
	return errors.Join(errs...)
}

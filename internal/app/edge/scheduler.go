package edge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	domainsync "agroedge/internal/domain/sync"

	"golang.org/x/exp/slog"
)

// StatusStore хранит состояние синхронизации между перезапусками
type StatusStore interface {
	GetStatus(ctx context.Context) (domainsync.Status, error)
	SaveStatus(ctx context.Context, status domainsync.Status) error
}

type pendingCounter interface {
	CountUnsynced(ctx context.Context) (int, error)
}

type onlineChecker interface {
	CheckOnline(ctx context.Context) bool
}

type uploader interface {
	UploadPending(ctx context.Context) domainsync.UploadResult
}

type reconciler interface {
	Reconcile(ctx context.Context, since *time.Time) (domainsync.ReconcileResult, error)
}

// SchedulerDeps - зависимости планировщика
type SchedulerDeps struct {
	Probe    onlineChecker
	Upload   uploader
	Download reconciler
	Statuses StatusStore
	Pending  pendingCounter
}

// Scheduler запускает циклы синхронизации по таймеру и по запросу.
// Одновременно выполняется не больше одного цикла.
type Scheduler struct {
	deps     SchedulerDeps
	interval time.Duration
	log      *slog.Logger
	now      func() time.Time

	running atomic.Bool

	mu     sync.RWMutex
	status domainsync.Status

	life     context.Context
	stopLife context.CancelFunc
	loopDone chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
}

func NewScheduler(deps SchedulerDeps, interval time.Duration, log *slog.Logger) *Scheduler {
	life, stop := context.WithCancel(context.Background())
	return &Scheduler{
		deps:     deps,
		interval: interval,
		log:      log.With("component", "scheduler"),
		now:      time.Now,
		life:     life,
		stopLife: stop,
		loopDone: make(chan struct{}),
	}
}

// Load восстанавливает сохраненный статус и пересчитывает очередь
func (s *Scheduler) Load(ctx context.Context) error {
	st, err := s.deps.Statuses.GetStatus(ctx)
	if err != nil {
		return err
	}
	// цикл, прерванный падением процесса, не считается активным
	st.IsSyncing = false
	if n, err := s.deps.Pending.CountUnsynced(ctx); err == nil {
		st.PendingItems = n
	} else {
		s.log.Warn("Не удалось пересчитать очередь", "error", err)
	}

	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
	return nil
}

// Start запускает цикл по таймеру. Первый цикл выполняется сразу.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}

	s.log.Info("Запуск автоматической синхронизации", "interval", s.interval.String())

	go func() {
		defer close(s.loopDone)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.life.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.runCycle(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domainsync.ErrSyncInProgress), errors.Is(err, domainsync.ErrOffline):
	case errors.Is(err, context.Canceled):
	default:
		s.log.Error("Ошибка синхронизации", "error", err)
	}
}

// ForceSync выполняет один цикл синхронно.
// Возвращает sync.ErrSyncInProgress, если цикл уже идет, и sync.ErrOffline без связи.
// Ошибки выгрузки и загрузки не возвращаются, они попадают в статус.
// Отмена ctx вызывающим цикл не прерывает, прервать его может только Stop.
func (s *Scheduler) ForceSync(ctx context.Context) (domainsync.Status, error) {
	s.log.Info("Запуск принудительной синхронизации")
	return s.runCycle(context.WithoutCancel(ctx))
}

// Stop останавливает таймер и сохраняет статус последний раз.
// Идущий цикл прерывается, уже выгруженные записи попадают в статус.
func (s *Scheduler) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.stopLife()
		if s.started.Load() {
			select {
			case <-s.loopDone:
			case <-ctx.Done():
			}
		}

		s.mu.Lock()
		s.status.IsSyncing = false
		snapshot := s.status.Clone()
		s.mu.Unlock()

		err = s.deps.Statuses.SaveStatus(ctx, snapshot)
		s.log.Info("Синхронизация остановлена")
	})
	return err
}

// Status возвращает копию статуса последнего завершенного цикла
func (s *Scheduler) Status() domainsync.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status.Clone()
}

// IsSyncing сообщает, идет ли сейчас цикл
func (s *Scheduler) IsSyncing() bool {
	return s.running.Load()
}

func (s *Scheduler) runCycle(parent context.Context) (domainsync.Status, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Info("Синхронизация уже выполняется, цикл пропущен")
		return s.Status(), domainsync.ErrSyncInProgress
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	stopAfter := context.AfterFunc(s.life, cancel)
	defer stopAfter()

	if ctx.Err() != nil {
		return s.Status(), ctx.Err()
	}

	online := s.deps.Probe.CheckOnline(ctx)
	s.mu.Lock()
	s.status.Online = online
	prevSync := s.status.LastSync
	if online {
		s.status.IsSyncing = true
	}
	s.mu.Unlock()

	if !online {
		s.log.Debug("Облако недоступно, цикл пропущен")
		return s.Status(), domainsync.ErrOffline
	}

	started := s.now()
	up := s.deps.Upload.UploadPending(ctx)

	var recErr error
	if ctx.Err() == nil {
		_, recErr = s.deps.Download.Reconcile(ctx, prevSync)
		if recErr != nil && ctx.Err() == nil {
			s.log.Warn("Ошибка загрузки из облака", "error", recErr)
		}
	}

	return s.finishCycle(ctx, started, up, recErr)
}

// finishCycle учитывает результат выгрузки даже в прерванном цикле:
// помеченные записи уже синхронизированы, счетчики должны с ними совпадать.
// Прерванный цикл не сдвигает lastSync, загрузка из облака в нем не завершилась.
func (s *Scheduler) finishCycle(ctx context.Context, started time.Time, up domainsync.UploadResult, recErr error) (domainsync.Status, error) {
	aborted := ctx.Err()
	persistCtx := context.WithoutCancel(ctx)

	pending, pendErr := s.deps.Pending.CountUnsynced(persistCtx)

	s.mu.Lock()
	s.status.IsSyncing = false
	s.status.TotalSynced += up.Synced
	s.status.FailedItems = up.Failed
	s.status.LastError = nil
	if aborted == nil {
		// курсор - начало цикла: дельты, созданные во время цикла, придут в следующем
		cursor := started
		s.status.LastSync = &cursor
	} else {
		recErr = nil
	}
	if cycleErr := errors.Join(up.LastErr, recErr); cycleErr != nil {
		msg := cycleErr.Error()
		s.status.LastError = &msg
	}
	if pendErr == nil {
		s.status.PendingItems = pending
	}
	snapshot := s.status.Clone()
	s.mu.Unlock()

	if pendErr != nil {
		s.log.Warn("Не удалось пересчитать очередь", "error", pendErr)
	}
	if err := s.deps.Statuses.SaveStatus(persistCtx, snapshot); err != nil {
		s.log.Error("Ошибка сохранения статуса синхронизации", "error", err)
	}

	if aborted != nil {
		s.log.Info("Цикл прерван остановкой синхронизации",
			"synced", up.Synced,
			"failed", up.Failed,
		)
		return snapshot, aborted
	}

	s.log.Info("Синхронизация завершена",
		"synced", up.Synced,
		"failed", up.Failed,
		"pending", snapshot.PendingItems,
		"duration", s.now().Sub(started).String(),
	)
	return snapshot, nil
}

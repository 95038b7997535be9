package edge

import (
	"context"
	"fmt"
	"time"

	"agroedge/internal/domain/record"
	domainsync "agroedge/internal/domain/sync"
	"agroedge/internal/utils/retry"

	"golang.org/x/exp/slog"
)

// RecordStore - локальное хранилище записей, из которого идет выгрузка
type RecordStore interface {
	GetUnsynced(ctx context.Context, kind record.Kind, limit int) ([]record.Record, error)
	MarkSynced(ctx context.Context, kind record.Kind, ids []int64) error
}

type batchUploader interface {
	UploadBatch(ctx context.Context, kind record.Kind, env domainsync.Envelope) (*domainsync.BatchResponse, error)
}

type UploadOptions struct {
	BatchSize          int
	MaxBatchesPerCycle int
	Retry              retry.Policy
	// Source - идентификатор узла в поле source пакета
	Source string
}

// UploadPipeline выгружает несинхронизированные записи пакетами
type UploadPipeline struct {
	store RecordStore
	cloud batchUploader
	opts  UploadOptions
	log   *slog.Logger
	now   func() time.Time
}

func NewUploadPipeline(store RecordStore, cloud batchUploader, opts UploadOptions, log *slog.Logger) *UploadPipeline {
	return &UploadPipeline{
		store: store,
		cloud: cloud,
		opts:  opts,
		log:   log.With("component", "upload"),
		now:   time.Now,
	}
}

// UploadPending обрабатывает виды по порядку. Неудачный пакет остается
// несинхронизированным и не мешает остальным пакетам и видам.
// После отмены ctx уже отправленные запросы не прерываются, но их
// результат отбрасывается, а оставшиеся пакеты пропускаются.
func (p *UploadPipeline) UploadPending(ctx context.Context) domainsync.UploadResult {
	var res domainsync.UploadResult
	if p.opts.BatchSize <= 0 || p.opts.MaxBatchesPerCycle <= 0 {
		return res
	}
	limit := p.opts.BatchSize * p.opts.MaxBatchesPerCycle

	for _, kind := range record.Kinds() {
		if ctx.Err() != nil {
			return res
		}

		records, err := p.store.GetUnsynced(ctx, kind, limit)
		if err != nil {
			p.log.Error("Ошибка получения несинхронизированных записей", "kind", kind.String(), "error", err)
			res.LastErr = fmt.Errorf("get unsynced %s: %w", kind, err)
			continue
		}

		for _, batch := range domainsync.Partition(kind, records, p.opts.BatchSize, p.now()) {
			if ctx.Err() != nil {
				return res
			}
			p.uploadBatch(ctx, batch, &res)
		}
	}

	return res
}

func (p *UploadPipeline) uploadBatch(ctx context.Context, batch domainsync.Batch, res *domainsync.UploadResult) {
	env := batch.Envelope(p.opts.Source)
	size := len(batch.Records)

	r := retry.Do(ctx, p.opts.Retry, func(ctx context.Context) error {
		resp, err := p.cloud.UploadBatch(context.WithoutCancel(ctx), batch.Kind, env)
		if err != nil {
			return err
		}
		if !resp.Success {
			return fmt.Errorf("%w: %s", domainsync.ErrRejected, resp.Error)
		}
		return nil
	})

	if ctx.Err() != nil {
		p.log.Info("Результат выгрузки отброшен: узел останавливается", "kind", batch.Kind.String(), "records", size)
		return
	}

	if r.LastErr != nil {
		res.Failed += size
		res.LastErr = &domainsync.UploadError{Kind: batch.Kind, Size: size, Attempts: r.Attempts, Err: r.LastErr}
		p.log.Warn("Пакет не выгружен",
			"kind", batch.Kind.String(),
			"records", size,
			"attempts", r.Attempts,
			"error", r.LastErr,
		)
		return
	}

	if err := p.store.MarkSynced(ctx, batch.Kind, record.IDs(batch.Records)); err != nil {
		// облако приняло пакет, он будет выгружен повторно и перезапишется
		res.Failed += size
		res.LastErr = fmt.Errorf("mark %s synced: %w", batch.Kind, err)
		p.log.Error("Ошибка отметки синхронизации", "kind", batch.Kind.String(), "error", err)
		return
	}

	res.Synced += size
	p.log.Debug("Пакет выгружен", "kind", batch.Kind.String(), "records", size, "attempts", r.Attempts)
}

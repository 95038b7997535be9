package edge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainsync "agroedge/internal/domain/sync"

	"golang.org/x/exp/slog"
)

// ConfigStore - локальная конфигурация узла
type ConfigStore interface {
	UpsertConfig(ctx context.Context, key string, value json.RawMessage) error
}

// DeltaSink получает обновления, которые узел сам не применяет
type DeltaSink interface {
	Firmware(ctx context.Context, delta domainsync.UpdateDelta) error
	DeviceCommand(ctx context.Context, delta domainsync.UpdateDelta) error
}

type deltaSource interface {
	Configurations(ctx context.Context, since *time.Time) ([]domainsync.ConfigEntry, error)
	Updates(ctx context.Context, since *time.Time) ([]domainsync.UpdateDelta, error)
}

// Reconciler загружает конфигурацию и обновления из облака
type Reconciler struct {
	cloud  deltaSource
	config ConfigStore
	sink   DeltaSink
	log    *slog.Logger
}

func NewReconciler(cloud deltaSource, config ConfigStore, sink DeltaSink, log *slog.Logger) *Reconciler {
	return &Reconciler{
		cloud:  cloud,
		config: config,
		sink:   sink,
		log:    log.With("component", "reconcile"),
	}
}

// Reconcile выполняет обе загрузки независимо друг от друга.
// Ошибки обеих собираются в *sync.ReconcileError.
func (r *Reconciler) Reconcile(ctx context.Context, since *time.Time) (domainsync.ReconcileResult, error) {
	var (
		res  domainsync.ReconcileResult
		errs []error
	)

	configs, err := r.cloud.Configurations(context.WithoutCancel(ctx), since)
	if err != nil {
		errs = append(errs, fmt.Errorf("configurations: %w", err))
	} else {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		for _, entry := range configs {
			if err := r.config.UpsertConfig(ctx, entry.Key, entry.Value); err != nil {
				errs = append(errs, fmt.Errorf("configuration %q: %w", entry.Key, err))
				continue
			}
			res.Configurations++
		}
	}

	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	updates, err := r.cloud.Updates(context.WithoutCancel(ctx), since)
	if err != nil {
		errs = append(errs, fmt.Errorf("updates: %w", err))
	} else {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		for _, delta := range updates {
			applied, err := r.apply(ctx, delta)
			if err != nil {
				errs = append(errs, fmt.Errorf("update %s %q: %w", delta.Kind, delta.Key, err))
				continue
			}
			if applied {
				res.Updates++
			} else {
				res.Ignored++
			}
		}
	}

	r.log.Debug("Загрузка из облака завершена",
		"configurations", res.Configurations,
		"updates", res.Updates,
		"ignored", res.Ignored,
	)

	if len(errs) > 0 {
		return res, &domainsync.ReconcileError{Errs: errs}
	}
	return res, nil
}

func (r *Reconciler) apply(ctx context.Context, delta domainsync.UpdateDelta) (bool, error) {
	switch delta.Kind {
	case domainsync.DeltaFirmware:
		return true, r.sink.Firmware(ctx, delta)
	case domainsync.DeltaConfiguration:
		if delta.Key == "" {
			r.log.Warn("Обновление конфигурации без ключа пропущено")
			return false, nil
		}
		return true, r.config.UpsertConfig(ctx, delta.Key, delta.Value)
	case domainsync.DeltaDeviceCommand:
		return true, r.sink.DeviceCommand(ctx, delta)
	default:
		r.log.Warn("Неизвестный тип обновления пропущен", "type", string(delta.Kind), "key", delta.Key)
		return false, nil
	}
}

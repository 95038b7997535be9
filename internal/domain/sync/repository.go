package sync

import (
	"context"
	"time"

	"agroedge/internal/domain/record"
)

// Repository - хранилище облачной стороны синхронизации
type Repository interface {
	// UpsertRecords сохраняет записи по ключу (kind, source, id), повтор перезаписывает
	UpsertRecords(ctx context.Context, source string, kind record.Kind, records []record.Record) (int, error)

	ConfigurationsSince(ctx context.Context, since *time.Time) ([]ConfigEntry, error)
	SaveConfiguration(ctx context.Context, entry ConfigEntry) error

	UpdatesSince(ctx context.Context, since *time.Time) ([]UpdateDelta, error)
	SaveUpdate(ctx context.Context, delta UpdateDelta) error
}

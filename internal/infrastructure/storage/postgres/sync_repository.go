package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agroedge/internal/domain/record"
	domainsync "agroedge/internal/domain/sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

// SyncRepository реализация репозитория синхронизации для PostgreSQL
type SyncRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewSyncRepository создает новый репозиторий синхронизации
func NewSyncRepository(pool *pgxpool.Pool, log *slog.Logger) *SyncRepository {
	return &SyncRepository{
		pool: pool,
		log:  log.With("component", "sync_repository"),
	}
}

const upsertRecordSQL = `
	INSERT INTO synced_records (kind, source, record_id, farm_id, sensor_id, payload, created_at, received_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	ON CONFLICT (kind, source, record_id) DO UPDATE SET
		farm_id = EXCLUDED.farm_id,
		sensor_id = EXCLUDED.sensor_id,
		payload = EXCLUDED.payload,
		created_at = EXCLUDED.created_at,
		received_at = EXCLUDED.received_at
`

// UpsertRecords сохраняет пакет в одной транзакции
func (r *SyncRepository) UpsertRecords(ctx context.Context, source string, kind record.Kind, records []record.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, rec := range records {
		payload, err := json.Marshal(rec.Payload)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal record %d: %w", rec.ID, err)
		}
		batch.Queue(upsertRecordSQL,
			kind.String(), source, rec.ID,
			rec.Payload.FarmRef(), rec.Payload.SensorRef(),
			payload, rec.CreatedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	processed := 0
	for i := range records {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("failed to upsert record %d: %w", records[i].ID, err)
		}
		processed += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return processed, nil
}

// ConfigurationsSince возвращает параметры, измененные строго после since.
// since == nil означает все параметры.
func (r *SyncRepository) ConfigurationsSince(ctx context.Context, since *time.Time) ([]domainsync.ConfigEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT key, value, updated_at FROM configurations
		WHERE $1::timestamptz IS NULL OR updated_at > $1
		ORDER BY updated_at, key
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query configurations: %w", err)
	}
	defer rows.Close()

	var out []domainsync.ConfigEntry
	for rows.Next() {
		var (
			entry domainsync.ConfigEntry
			value []byte
		)
		if err := rows.Scan(&entry.Key, &value, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan configuration: %w", err)
		}
		entry.Value = json.RawMessage(value)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (r *SyncRepository) SaveConfiguration(ctx context.Context, entry domainsync.ConfigEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO configurations (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, entry.Key, []byte(entry.Value))
	if err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// UpdatesSince возвращает обновления, созданные строго после since
func (r *SyncRepository) UpdatesSince(ctx context.Context, since *time.Time) ([]domainsync.UpdateDelta, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT type, key, value, extra FROM updates
		WHERE $1::timestamptz IS NULL OR created_at > $1
		ORDER BY id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query updates: %w", err)
	}
	defer rows.Close()

	var out []domainsync.UpdateDelta
	for rows.Next() {
		var (
			delta        domainsync.UpdateDelta
			kind         string
			value, extra []byte
		)
		if err := rows.Scan(&kind, &delta.Key, &value, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan update: %w", err)
		}
		delta.Kind = domainsync.DeltaKind(kind)
		if len(value) > 0 {
			delta.Value = json.RawMessage(value)
		}
		if len(extra) > 0 {
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(extra, &fields); err != nil {
				r.log.Warn("Failed to decode update extra fields", "key", delta.Key, "error", err)
			} else if len(fields) > 0 {
				delta.Extra = fields
			}
		}
		out = append(out, delta)
	}
	return out, rows.Err()
}

func (r *SyncRepository) SaveUpdate(ctx context.Context, delta domainsync.UpdateDelta) error {
	extra := []byte("{}")
	if len(delta.Extra) > 0 {
		var err error
		if extra, err = json.Marshal(delta.Extra); err != nil {
			return fmt.Errorf("failed to marshal update extra: %w", err)
		}
	}
	var value []byte
	if len(delta.Value) > 0 {
		value = delta.Value
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO updates (type, key, value, extra) VALUES ($1, $2, $3, $4)`,
		string(delta.Kind), delta.Key, value, extra,
	)
	if err != nil {
		return fmt.Errorf("failed to save update: %w", err)
	}
	return nil
}

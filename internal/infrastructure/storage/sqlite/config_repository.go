package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainsync "agroedge/internal/domain/sync"
)

var ErrConfigNotFound = errors.New("config key not found")

// ConfigRepository - локальная конфигурация, получаемая из облака
type ConfigRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewConfigRepository(s *Storage) *ConfigRepository {
	return &ConfigRepository{db: s.db, now: time.Now}
}

// UpsertConfig записывает значение по ключу. Повтор с тем же значением ничего не меняет.
func (r *ConfigRepository) UpsertConfig(ctx context.Context, key string, value json.RawMessage) error {
	if key == "" {
		return fmt.Errorf("пустой ключ конфигурации")
	}
	if len(value) == 0 {
		value = json.RawMessage("null")
	}
	if !json.Valid(value) {
		return fmt.Errorf("значение %q не является JSON", key)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO local_config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
		WHERE local_config.value <> excluded.value
	`, key, string(value), r.now().UTC())
	if err != nil {
		return fmt.Errorf("ошибка сохранения конфигурации %q: %w", key, err)
	}
	return nil
}

func (r *ConfigRepository) GetConfig(ctx context.Context, key string) (domainsync.ConfigEntry, error) {
	var (
		entry domainsync.ConfigEntry
		value string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM local_config WHERE key = ?`, key,
	).Scan(&entry.Key, &value, &entry.UpdatedAt)
	if err == sql.ErrNoRows {
		return domainsync.ConfigEntry{}, fmt.Errorf("%w: %s", ErrConfigNotFound, key)
	}
	if err != nil {
		return domainsync.ConfigEntry{}, fmt.Errorf("ошибка чтения конфигурации %q: %w", key, err)
	}
	entry.Value = json.RawMessage(value)
	return entry, nil
}

func (r *ConfigRepository) ListConfig(ctx context.Context) ([]domainsync.ConfigEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, updated_at FROM local_config ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}
	defer rows.Close()

	out := []domainsync.ConfigEntry{}
	for rows.Next() {
		var (
			entry domainsync.ConfigEntry
			value string
		)
		if err := rows.Scan(&entry.Key, &value, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
		}
		entry.Value = json.RawMessage(value)
		out = append(out, entry)
	}
	return out, rows.Err()
}

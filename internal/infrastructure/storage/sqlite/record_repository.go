package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"agroedge/internal/domain/record"

	"golang.org/x/exp/slog"
)

// markChunk ограничивает число параметров одного UPDATE
const markChunk = 500

// RecordRepository хранит записи трех видов в отдельных таблицах
type RecordRepository struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

func NewRecordRepository(s *Storage, log *slog.Logger) *RecordRepository {
	return &RecordRepository{
		db:  s.db,
		log: log.With("component", "record_repository"),
		now: time.Now,
	}
}

// Insert сохраняет новую несинхронизированную запись
func (r *RecordRepository) Insert(ctx context.Context, p record.Payload) (record.Record, error) {
	if p == nil {
		return record.Record{}, fmt.Errorf("%w: пустые данные", record.ErrInvalidData)
	}
	if err := p.Validate(); err != nil {
		return record.Record{}, err
	}
	kind := p.Kind()

	payload, err := json.Marshal(p)
	if err != nil {
		return record.Record{}, fmt.Errorf("ошибка сериализации записи: %w", err)
	}

	createdAt := r.now().UTC()
	query := fmt.Sprintf(
		`INSERT INTO %s (farm_id, sensor_id, payload, synced, created_at) VALUES (?, ?, ?, 0, ?)`,
		kind.Table(),
	)
	res, err := r.db.ExecContext(ctx, query, p.FarmRef(), p.SensorRef(), string(payload), createdAt)
	if err != nil {
		return record.Record{}, fmt.Errorf("ошибка сохранения записи: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return record.Record{}, fmt.Errorf("ошибка получения id записи: %w", err)
	}

	return record.Record{
		ID:        id,
		Kind:      kind,
		Payload:   p,
		CreatedAt: createdAt,
	}, nil
}

// GetUnsynced возвращает до limit несинхронизированных записей, старые первыми
func (r *RecordRepository) GetUnsynced(ctx context.Context, kind record.Kind, limit int) ([]record.Record, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		`SELECT id, payload, synced, created_at FROM %s WHERE synced = 0 ORDER BY id LIMIT ?`,
		kind.Table(),
	)
	return r.query(ctx, kind, query, limit)
}

// MarkSynced помечает записи синхронизированными. Уже помеченные id не меняются.
func (r *RecordRepository) MarkSynced(ctx context.Context, kind record.Kind, ids []int64) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var marked int64
	for start := 0; start < len(ids); start += markChunk {
		chunk := ids[start:min(start+markChunk, len(ids))]
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		query := fmt.Sprintf(
			`UPDATE %s SET synced = 1 WHERE synced = 0 AND id IN (%s)`,
			kind.Table(), placeholders(len(chunk)),
		)
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("ошибка отметки синхронизации: %w", err)
		}
		n, _ := res.RowsAffected()
		marked += n
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	r.log.Debug("records marked synced", "kind", kind.String(), "requested", len(ids), "marked", marked)
	return nil
}

// CountUnsynced возвращает число несинхронизированных записей всех видов
func (r *RecordRepository) CountUnsynced(ctx context.Context) (int, error) {
	total := 0
	for _, kind := range record.Kinds() {
		var n int
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE synced = 0`, kind.Table())
		if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return 0, fmt.Errorf("ошибка подсчета записей %s: %w", kind, err)
		}
		total += n
	}
	return total, nil
}

// LatestReadings возвращает последние показания фермы, новые первыми.
// Пустой sensorID означает все датчики фермы.
func (r *RecordRepository) LatestReadings(ctx context.Context, farmID, sensorID string, limit int) ([]record.Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := `SELECT id, payload, synced, created_at FROM sensor_data WHERE farm_id = ?`
	args := []any{farmID}
	if sensorID != "" {
		query += ` AND sensor_id = ?`
		args = append(args, sensorID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	return r.query(ctx, record.KindSensorData, query, args...)
}

// Alerts возвращает последние тревоги фермы, новые первыми
func (r *RecordRepository) Alerts(ctx context.Context, farmID string, limit int) ([]record.Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	return r.query(ctx, record.KindAlert,
		`SELECT id, payload, synced, created_at FROM alerts WHERE farm_id = ? ORDER BY id DESC LIMIT ?`,
		farmID, limit,
	)
}

// Farm возвращает последнюю версию метаданных фермы
func (r *RecordRepository) Farm(ctx context.Context, farmID string) (record.Record, error) {
	recs, err := r.query(ctx, record.KindFarm,
		`SELECT id, payload, synced, created_at FROM farms WHERE farm_id = ? ORDER BY id DESC LIMIT 1`,
		farmID,
	)
	if err != nil {
		return record.Record{}, err
	}
	if len(recs) == 0 {
		return record.Record{}, fmt.Errorf("%w: farm %s", record.ErrNotFound, farmID)
	}
	return recs[0], nil
}

func (r *RecordRepository) query(ctx context.Context, kind record.Kind, query string, args ...any) ([]record.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записей %s: %w", kind, err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		var (
			rec     record.Record
			payload string
		)
		if err := rows.Scan(&rec.ID, &payload, &rec.Synced, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения записи %s: %w", kind, err)
		}
		p, err := record.DecodePayload(kind, []byte(payload))
		if err != nil {
			// битая запись не должна блокировать остальные
			r.log.Warn("skipping unreadable record", "kind", kind.String(), "id", rec.ID, "error", err)
			continue
		}
		rec.Kind = kind
		rec.Payload = p
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения записей %s: %w", kind, err)
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	domainsync "agroedge/internal/domain/sync"
)

// StatusRepository хранит единственную строку sync_status
type StatusRepository struct {
	db *sql.DB
}

func NewStatusRepository(s *Storage) *StatusRepository {
	return &StatusRepository{db: s.db}
}

func (r *StatusRepository) GetStatus(ctx context.Context) (domainsync.Status, error) {
	var (
		st        domainsync.Status
		lastSync  sql.NullTime
		lastError sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT last_sync, is_sync, pending_items, failed_items, total_synced, last_error
		FROM sync_status WHERE id = 1
	`).Scan(&lastSync, &st.IsSyncing, &st.PendingItems, &st.FailedItems, &st.TotalSynced, &lastError)
	if err == sql.ErrNoRows {
		return domainsync.Status{}, nil
	}
	if err != nil {
		return domainsync.Status{}, fmt.Errorf("ошибка чтения статуса синхронизации: %w", err)
	}

	if lastSync.Valid {
		t := lastSync.Time
		st.LastSync = &t
	}
	if lastError.Valid {
		e := lastError.String
		st.LastError = &e
	}
	return st, nil
}

func (r *StatusRepository) SaveStatus(ctx context.Context, st domainsync.Status) error {
	var (
		lastSync  sql.NullTime
		lastError sql.NullString
	)
	if st.LastSync != nil {
		lastSync = sql.NullTime{Time: st.LastSync.UTC(), Valid: true}
	}
	if st.LastError != nil {
		lastError = sql.NullString{String: *st.LastError, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_status (id, last_sync, is_sync, pending_items, failed_items, total_synced, last_error)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			last_sync = excluded.last_sync,
			is_sync = excluded.is_sync,
			pending_items = excluded.pending_items,
			failed_items = excluded.failed_items,
			total_synced = excluded.total_synced,
			last_error = excluded.last_error
	`, lastSync, st.IsSyncing, st.PendingItems, st.FailedItems, st.TotalSynced, lastError)
	if err != nil {
		return fmt.Errorf("ошибка сохранения статуса синхронизации: %w", err)
	}
	return nil
}

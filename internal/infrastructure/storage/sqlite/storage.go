package sqlite

import (
	"database/sql"
	"fmt"

	"agroedge/internal/infrastructure/migration"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"
)

const dsnParams = "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"

// Storage - локальное хранилище узла
type Storage struct {
	db  *sql.DB
	log *slog.Logger
}

// New применяет миграции и открывает базу по пути path
func New(path string, log *slog.Logger) (*Storage, error) {
	if err := migration.ForSQLite(path).Up(); err != nil {
		return nil, fmt.Errorf("ошибка миграции локальной базы: %w", err)
	}

	db, err := sql.Open("sqlite3", path+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	log.Debug("local storage opened", "path", path)

	return &Storage{db: db, log: log}, nil
}

func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) Close() error {
	return s.db.Close()
}

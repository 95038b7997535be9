package postgres

import (
	"context"
	"fmt"
	"time"

	"agroedge/internal/infrastructure/migration"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxConns        = 10
	minConns        = 2
	maxConnLifetime = 10 * time.Minute
)

type Storage struct {
	pool *pgxpool.Pool
}

// New применяет миграции и открывает пул соединений
func New(ctx context.Context, databaseURI, migrationsPath string) (*Storage, error) {
	if err := migration.ForPostgres(migrationsPath, databaseURI).Up(); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(databaseURI)
	if err != nil {
		return nil, fmt.Errorf("parse database uri: %w", err)
	}
	cfg.MaxConns = maxConns
	cfg.MinConns = minConns
	cfg.MaxConnLifetime = maxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"agroedge/internal/domain/node"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

// uniqueViolation - код ошибки PostgreSQL при нарушении уникальности
const uniqueViolation = "23505"

type NodeRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewNodeRepository(pool *pgxpool.Pool, log *slog.Logger) *NodeRepository {
	return &NodeRepository{
		pool: pool,
		log:  log.With("component", "node_repository"),
	}
}

func (r *NodeRepository) Create(ctx context.Context, id, keyHash string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO nodes (id, key_hash) VALUES ($1, $2)`, id, keyHash)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", node.ErrExists, id)
	}
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}
	return nil
}

func (r *NodeRepository) FindByID(ctx context.Context, id string) (node.Node, error) {
	var n node.Node
	err := r.pool.QueryRow(ctx,
		`SELECT id, key_hash, created_at FROM nodes WHERE id = $1`, id,
	).Scan(&n.ID, &n.KeyHash, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return node.Node{}, node.ErrNotFound
	}
	if err != nil {
		return node.Node{}, fmt.Errorf("failed to find node: %w", err)
	}
	return n, nil
}

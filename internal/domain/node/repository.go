package node

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, id, keyHash string) error
	FindByID(ctx context.Context, id string) (Node, error)
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"agroedge/internal/app/server/api"
	"agroedge/internal/app/server/config"
	"agroedge/internal/domain/node"
	"agroedge/internal/domain/session"
	"agroedge/internal/domain/sync"
	"agroedge/internal/infrastructure/storage/postgres"

	"golang.org/x/exp/slog"
)

const shutdownTimeout = 10 * time.Second

// TokenIssuer - издатель административных токенов
const TokenIssuer = "agroedge-cloud"

// App - облачный сервис синхронизации
type App struct {
	cfg     *config.Config
	storage *postgres.Storage
	nodes   *node.Service
	tokens  *session.Service
	server  *http.Server
	log     *slog.Logger
}

// New подключается к базе, применяет миграции и собирает API
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	storage, err := postgres.New(ctx, cfg.DatabaseURI, cfg.MigrationsPath)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	tokens, err := session.NewService(cfg.JWTSecret, TokenIssuer, log)
	if err != nil {
		storage.Close()
		return nil, err
	}

	pool := storage.Pool()
	nodes := node.NewService(postgres.NewNodeRepository(pool, log), cfg.APIKeyHash, log)
	syncService := sync.NewService(postgres.NewSyncRepository(pool, log), log)

	router := api.New(api.Deps{
		DB:       pool,
		Sync:     syncService,
		Nodes:    nodes,
		Sessions: tokens,
	}, log)

	return &App{
		cfg:     cfg,
		storage: storage,
		nodes:   nodes,
		tokens:  tokens,
		server: &http.Server{
			Addr:              cfg.RunAddress,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}, nil
}

// Run обслуживает запросы до отмены ctx
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("cloud API listening", "address", a.cfg.RunAddress)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	a.log.Info("shutting down cloud API")
	return a.server.Shutdown(shutdownCtx)
}

// RegisterNode выдает ключ новому узлу
func (a *App) RegisterNode(ctx context.Context, id string) (string, error) {
	return a.nodes.Register(ctx, id)
}

// IssueAdminToken выпускает токен для административных операций
func (a *App) IssueAdminToken(user string, ttl time.Duration) (string, error) {
	return a.tokens.Issue(user, nil, []string{api.PermAdmin}, ttl)
}

func (a *App) Close() error {
	return a.storage.Close()
}

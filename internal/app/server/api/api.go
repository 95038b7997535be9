// Облачный API синхронизации edge-узлов.
//
//	GET  /health                       # Проверка доступности (публичный)
//	POST /sync/{type}                  # Пакет записей узла (ключ узла)
//	GET  /configurations               # Измененные параметры (ключ узла)
//	GET  /updates                      # Новые обновления (ключ узла)
//	PUT  /admin/configurations/{key}   # Изменить параметр (токен admin)
//	POST /admin/updates                # Опубликовать обновление (токен admin)
package api

import (
	healthAPI "agroedge/internal/app/server/api/http/health"
	syncAPI "agroedge/internal/app/server/api/http/sync"
	"agroedge/internal/domain/node"
	"agroedge/internal/domain/session"
	"agroedge/internal/domain/sync"
	"agroedge/internal/handler/middleware"
	"agroedge/internal/handler/middleware/auth"
	"agroedge/internal/handler/middleware/logger"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

// PermAdmin - разрешение токена для административных операций
const PermAdmin = "admin"

type Handlers struct {
	Health *healthAPI.Handler
	Sync   *syncAPI.Handler
}

// Deps - сервисы, которые обслуживает API
type Deps struct {
	DB       healthAPI.Pinger
	Sync     sync.Servicer
	Nodes    node.Servicer
	Sessions session.Servicer
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(deps Deps, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("AgroEdge Cloud API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h := handlers(deps, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	return mux
}

func handlers(deps Deps, log *slog.Logger) *Handlers {
	authMW := auth.New(deps.Sessions, deps.Nodes, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	healthHandler := healthAPI.NewHandler(deps.DB, log, middlewares.Add(loggerMW.Middleware()).GetAllAndClear())

	nodeMws := middlewares.Add(loggerMW.Middleware(), authMW.NodeMiddleware()).GetAllAndClear()
	adminMws := middlewares.Add(loggerMW.Middleware(), authMW.Middleware(PermAdmin)).GetAllAndClear()
	syncHandler := syncAPI.NewHandler(deps.Sync, log, nodeMws, adminMws)

	return &Handlers{
		Health: healthHandler,
		Sync:   syncHandler,
	}
}

// Локальный API edge-узла.
//
//	GET  /api/v1/health        # Состояние узла
//	GET  /api/v1/sync/status   # Статус синхронизации
//	POST /api/v1/sync/force    # Принудительный цикл (токен admin)
//	POST /api/v1/readings      # Показание датчика
//	POST /api/v1/alerts        # Тревога
//	POST /api/v1/farms         # Метаданные фермы
//	GET  /api/v1/config        # Конфигурация, полученная из облака
//	GET  /ws                   # WebSocket клиентов панели мониторинга
package api

import (
	"net/http"

	recordsAPI "agroedge/internal/app/edge/api/http/records"
	syncAPI "agroedge/internal/app/edge/api/http/sync"
	"agroedge/internal/domain/session"
	"agroedge/internal/handler/middleware"
	"agroedge/internal/handler/middleware/auth"
	"agroedge/internal/handler/middleware/logger"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

// PermAdmin - разрешение токена для принудительной синхронизации
const PermAdmin = "admin"

type Handlers struct {
	Sync    *syncAPI.Handler
	Records *recordsAPI.Handler
}

type Deps struct {
	Syncer   syncAPI.Syncer
	Config   syncAPI.ConfigLister
	Ingester recordsAPI.Ingester
	Sessions session.Servicer
	// WS обслуживает /ws; nil отключает WebSocket
	WS      http.Handler
	NodeID  string
	Version string
}

func New(deps Deps, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("AgroEdge Hub API", deps.Version)
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h := handlers(deps, log)
	h.Sync.SetupRoutes(API)
	h.Records.SetupRoutes(API)

	if deps.WS != nil {
		mux.Handle("/ws", deps.WS)
	}

	return mux
}

func handlers(deps Deps, log *slog.Logger) *Handlers {
	authMW := auth.New(deps.Sessions, nil, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	mws := middlewares.Add(loggerMW.Middleware()).GetAllAndClear()
	adminMws := middlewares.Add(loggerMW.Middleware(), authMW.Middleware(PermAdmin)).GetAllAndClear()

	return &Handlers{
		Sync:    syncAPI.NewHandler(deps.Syncer, deps.Config, deps.NodeID, deps.Version, log, mws, adminMws),
		Records: recordsAPI.NewHandler(deps.Ingester, log, mws),
	}
}

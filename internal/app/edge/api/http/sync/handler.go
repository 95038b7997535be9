package sync

import (
	"context"
	"errors"

	domainsync "agroedge/internal/domain/sync"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Syncer - планировщик синхронизации узла
type Syncer interface {
	Status() domainsync.Status
	IsSyncing() bool
	ForceSync(ctx context.Context) (domainsync.Status, error)
}

// ConfigLister - локальная конфигурация, полученная из облака
type ConfigLister interface {
	ListConfig(ctx context.Context) ([]domainsync.ConfigEntry, error)
}

type Handler struct {
	syncer          Syncer
	config          ConfigLister
	nodeID          string
	version         string
	log             *slog.Logger
	middleware      huma.Middlewares
	adminMiddleware huma.Middlewares
}

func NewHandler(syncer Syncer, config ConfigLister, nodeID, version string, log *slog.Logger, mws, adminMws huma.Middlewares) *Handler {
	return &Handler{
		syncer:          syncer,
		config:          config,
		nodeID:          nodeID,
		version:         version,
		log:             log,
		middleware:      mws,
		adminMiddleware: adminMws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthOp(), h.health)
	huma.Register(api, h.statusOp(), h.status)
	huma.Register(api, h.forceSyncOp(), h.forceSync)
	huma.Register(api, h.configOp(), h.listConfig)
}

func (h *Handler) health(_ context.Context, _ *struct{}) (*healthOutput, error) {
	st := h.syncer.Status()
	return &healthOutput{Body: healthResponse{
		Status:  "OK",
		Online:  st.Online,
		Syncing: h.syncer.IsSyncing(),
		NodeID:  h.nodeID,
		Version: h.version,
	}}, nil
}

func (h *Handler) status(_ context.Context, _ *struct{}) (*statusOutput, error) {
	st := h.syncer.Status()
	st.IsSyncing = h.syncer.IsSyncing()
	return &statusOutput{Body: st}, nil
}

func (h *Handler) forceSync(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	st, err := h.syncer.ForceSync(ctx)
	switch {
	case err == nil:
		return &statusOutput{Body: st}, nil
	case errors.Is(err, domainsync.ErrSyncInProgress):
		return nil, huma.Error409Conflict(err.Error())
	case errors.Is(err, domainsync.ErrOffline):
		return nil, huma.Error503ServiceUnavailable(err.Error())
	default:
		h.log.Error("force sync failed", "error", err)
		return nil, huma.Error500InternalServerError("sync cycle aborted")
	}
}

func (h *Handler) listConfig(ctx context.Context, _ *struct{}) (*configOutput, error) {
	entries, err := h.config.ListConfig(ctx)
	if err != nil {
		h.log.Error("list config failed", "error", err)
		return nil, huma.Error500InternalServerError("failed to load configuration")
	}
	if entries == nil {
		entries = []domainsync.ConfigEntry{}
	}
	return &configOutput{Body: configResponse{Configurations: entries}}, nil
}

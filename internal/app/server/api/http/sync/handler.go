package sync

import (
	"context"
	"encoding/json"
	"errors"

	"agroedge/internal/domain/node"
	"agroedge/internal/domain/record"
	"agroedge/internal/domain/sync"
	"agroedge/internal/handler/middleware/auth"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	service         sync.Servicer
	log             *slog.Logger
	nodeMiddleware  huma.Middlewares
	adminMiddleware huma.Middlewares
}

// NewHandler принимает отдельные наборы мидлварей для операций узлов и администратора
func NewHandler(service sync.Servicer, log *slog.Logger, nodeMws, adminMws huma.Middlewares) *Handler {
	return &Handler{
		service:         service,
		log:             log,
		nodeMiddleware:  nodeMws,
		adminMiddleware: adminMws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.ingestOp(), h.ingest)
	huma.Register(api, h.configurationsOp(), h.configurations)
	huma.Register(api, h.updatesOp(), h.updates)
	huma.Register(api, h.putConfigurationOp(), h.putConfiguration)
	huma.Register(api, h.publishUpdateOp(), h.publishUpdate)
}

func (h *Handler) ingest(ctx context.Context, input *ingestInput) (*ingestOutput, error) {
	kind, err := record.KindFromEnvelope(input.Type)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}

	// узел с собственным ключом пишет под своим идентификатором,
	// иначе записи разных узлов с одинаковыми id перезаписывали бы друг друга
	if n, ok := auth.GetNode(ctx); ok && n.ID != node.SharedNodeID {
		input.Body.Source = n.ID
	}

	resp, err := h.service.IngestBatch(ctx, kind, input.Body)
	if err != nil {
		if isClientError(err) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		h.log.Error("ingest failed", "kind", kind.String(), "error", err)
		return nil, huma.Error500InternalServerError("failed to store batch")
	}

	return &ingestOutput{Body: *resp}, nil
}

func (h *Handler) configurations(ctx context.Context, input *deltaInput) (*configurationsOutput, error) {
	resp, err := h.service.Configurations(ctx, query(input))
	if err != nil {
		h.log.Error("configurations failed", "error", err)
		return nil, huma.Error500InternalServerError("failed to load configurations")
	}
	return &configurationsOutput{Body: *resp}, nil
}

func (h *Handler) updates(ctx context.Context, input *deltaInput) (*updatesOutput, error) {
	resp, err := h.service.Updates(ctx, query(input))
	if err != nil {
		h.log.Error("updates failed", "error", err)
		return nil, huma.Error500InternalServerError("failed to load updates")
	}
	return &updatesOutput{Body: *resp}, nil
}

func (h *Handler) putConfiguration(ctx context.Context, input *putConfigurationInput) (*statusOutput, error) {
	value, err := json.Marshal(input.Body.Value)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	if err := h.service.PutConfiguration(ctx, sync.ConfigEntry{Key: input.Key, Value: value}); err != nil {
		return nil, h.adminError("put configuration", err)
	}
	return &statusOutput{Body: statusResponse{Status: "Ok"}}, nil
}

func (h *Handler) publishUpdate(ctx context.Context, input *publishUpdateInput) (*statusOutput, error) {
	delta := sync.UpdateDelta{
		Kind: sync.DeltaKind(input.Body.Type),
		Key:  input.Body.Key,
	}
	if input.Body.Value != nil {
		value, err := json.Marshal(input.Body.Value)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		delta.Value = value
	}
	if len(input.Body.Extra) > 0 {
		delta.Extra = make(map[string]json.RawMessage, len(input.Body.Extra))
		for k, v := range input.Body.Extra {
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, huma.Error400BadRequest(err.Error())
			}
			delta.Extra[k] = raw
		}
	}

	if err := h.service.PublishUpdate(ctx, delta); err != nil {
		return nil, h.adminError("publish update", err)
	}
	return &statusOutput{Body: statusResponse{Status: "Ok"}}, nil
}

func (h *Handler) adminError(op string, err error) error {
	if errors.Is(err, sync.ErrInvalidInput) {
		return huma.Error400BadRequest(err.Error())
	}
	h.log.Error(op+" failed", "error", err)
	return huma.Error500InternalServerError(op + " failed")
}

func query(input *deltaInput) sync.DeltaQuery {
	q := sync.DeltaQuery{Source: input.Source}
	if !input.LastSync.IsZero() {
		since := input.LastSync
		q.Since = &since
	}
	return q
}

func isClientError(err error) bool {
	return errors.Is(err, record.ErrKindMismatch) ||
		errors.Is(err, record.ErrUnknownKind) ||
		errors.Is(err, record.ErrInvalidData) ||
		errors.Is(err, sync.ErrEmptySource)
}

package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"agroedge/internal/domain/record"

	"golang.org/x/exp/slog"
)

// Servicer интерфейс облачного сервиса синхронизации
type Servicer interface {
	// IngestBatch принимает пакет записей узла
	IngestBatch(ctx context.Context, kind record.Kind, env Envelope) (*BatchResponse, error)

	// Configurations возвращает параметры, измененные после q.Since
	Configurations(ctx context.Context, q DeltaQuery) (*ConfigurationsResponse, error)

	// Updates возвращает обновления, созданные после q.Since
	Updates(ctx context.Context, q DeltaQuery) (*UpdatesResponse, error)

	// PutConfiguration создает или изменяет параметр конфигурации
	PutConfiguration(ctx context.Context, entry ConfigEntry) error

	// PublishUpdate ставит обновление в очередь для узлов
	PublishUpdate(ctx context.Context, delta UpdateDelta) error
}

// Service реализация облачного сервиса синхронизации
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService создает новый сервис синхронизации
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// IngestBatch проверяет пакет и сохраняет записи. Повторная выгрузка того же
// пакета перезаписывает записи: побеждает последний выгруженный пакет.
func (s *Service) IngestBatch(ctx context.Context, kind record.Kind, env Envelope) (*BatchResponse, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if env.Type != kind.EnvelopeType() {
		return nil, fmt.Errorf("%w: envelope type %q on %s endpoint", record.ErrKindMismatch, env.Type, kind)
	}
	source := strings.TrimSpace(env.Source)
	if source == "" {
		return nil, ErrEmptySource
	}

	for _, r := range env.Data {
		if r.Kind != kind {
			return nil, fmt.Errorf("%w: record %d is %s", record.ErrKindMismatch, r.ID, r.Kind)
		}
		if err := r.Payload.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", r.ID, err)
		}
	}

	if len(env.Data) == 0 {
		return &BatchResponse{Success: true}, nil
	}

	n, err := s.repo.UpsertRecords(ctx, source, kind, env.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert records: %w", err)
	}

	s.log.Info("batch ingested",
		"kind", kind.String(),
		"source", source,
		"records", len(env.Data),
		"processed", n,
	)

	return &BatchResponse{Success: true, Processed: n}, nil
}

// Configurations возвращает параметры, измененные после q.Since
func (s *Service) Configurations(ctx context.Context, q DeltaQuery) (*ConfigurationsResponse, error) {
	entries, err := s.repo.ConfigurationsSince(ctx, q.Since)
	if err != nil {
		return nil, fmt.Errorf("failed to get configurations: %w", err)
	}
	if entries == nil {
		entries = []ConfigEntry{}
	}
	s.log.Debug("configurations requested", "source", q.Source, "count", len(entries))
	return &ConfigurationsResponse{Configurations: entries}, nil
}

// Updates возвращает обновления, созданные после q.Since
func (s *Service) Updates(ctx context.Context, q DeltaQuery) (*UpdatesResponse, error) {
	updates, err := s.repo.UpdatesSince(ctx, q.Since)
	if err != nil {
		return nil, fmt.Errorf("failed to get updates: %w", err)
	}
	if updates == nil {
		updates = []UpdateDelta{}
	}
	s.log.Debug("updates requested", "source", q.Source, "count", len(updates))
	return &UpdatesResponse{Updates: updates}, nil
}

func (s *Service) PutConfiguration(ctx context.Context, entry ConfigEntry) error {
	if strings.TrimSpace(entry.Key) == "" {
		return fmt.Errorf("%w: configuration key is required", ErrInvalidInput)
	}
	if len(entry.Value) == 0 || !json.Valid(entry.Value) {
		return fmt.Errorf("%w: configuration %q: value must be valid JSON", ErrInvalidInput, entry.Key)
	}
	if err := s.repo.SaveConfiguration(ctx, entry); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

func (s *Service) PublishUpdate(ctx context.Context, delta UpdateDelta) error {
	if strings.TrimSpace(string(delta.Kind)) == "" {
		return fmt.Errorf("%w: update type is required", ErrInvalidInput)
	}
	if len(delta.Value) > 0 && !json.Valid(delta.Value) {
		return fmt.Errorf("%w: update %q: value must be valid JSON", ErrInvalidInput, delta.Key)
	}
	if err := s.repo.SaveUpdate(ctx, delta); err != nil {
		return fmt.Errorf("failed to save update: %w", err)
	}
	return nil
}

package edge

import (
	"context"
	"sync/atomic"

	"golang.org/x/exp/slog"
)

type healthChecker interface {
	Health(ctx context.Context) error
}

// Probe проверяет доступность облака и запоминает последний результат
type Probe struct {
	cloud  healthChecker
	log    *slog.Logger
	online atomic.Bool
}

func NewProbe(cloud healthChecker, log *slog.Logger) *Probe {
	return &Probe{
		cloud: cloud,
		log:   log.With("component", "probe"),
	}
}

// CheckOnline никогда не возвращает ошибку: любая неудача означает offline
func (p *Probe) CheckOnline(ctx context.Context) bool {
	err := p.cloud.Health(ctx)
	online := err == nil

	if prev := p.online.Swap(online); prev != online {
		p.log.Info("Изменилось состояние связи с облаком", "online", online)
	}
	if err != nil {
		p.log.Debug("Облако недоступно", "error", err)
	}
	return online
}

// Online возвращает результат последней проверки
func (p *Probe) Online() bool {
	return p.online.Load()
}

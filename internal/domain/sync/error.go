package sync

import (
	"errors"
	"fmt"
	"strings"

	"agroedge/internal/domain/record"
)

var (
	// ErrOffline - облако недоступно, цикл пропускается без записи ошибки
	ErrOffline        = errors.New("cloud endpoint is unreachable")
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrRejected       = errors.New("batch rejected by cloud")
	ErrEmptySource    = errors.New("batch source is required")
	ErrInvalidInput   = errors.New("invalid input")
)

// UploadError - пакет не выгружен после всех попыток
type UploadError struct {
	Kind     record.Kind
	Size     int
	Attempts int
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s batch of %d records failed after %d attempts: %v", e.Kind, e.Size, e.Attempts, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// ReconcileError объединяет ошибки обеих загрузок цикла
type ReconcileError struct {
	Errs []error
}

func (e *ReconcileError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return "reconcile: " + strings.Join(msgs, "; ")
}

func (e *ReconcileError) Unwrap() []error {
	return e.Errs
}

// ConfigurationError - недопустимая конфигурация, узел не стартует
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

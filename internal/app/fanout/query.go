package fanout

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"agroedge/internal/domain/record"
)

// QueryKind - вид запроса клиента
type QueryKind string

const (
	QuerySensorData QueryKind = "sensor-data"
	QueryAlerts     QueryKind = "alerts"
	QueryFarm       QueryKind = "farm"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 500
)

// QueryStore - локальные данные, доступные клиентам
type QueryStore interface {
	LatestReadings(ctx context.Context, farmID, sensorID string, limit int) ([]record.Record, error)
	Alerts(ctx context.Context, farmID string, limit int) ([]record.Record, error)
	Farm(ctx context.Context, farmID string) (record.Record, error)
}

// QueryResult - результат запроса. Err заполнен при отказе, Data тогда пустой.
type QueryResult struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`
}

func failed(err error) QueryResult {
	return QueryResult{Error: err.Error(), Err: err}
}

// Query выполняет запрос клиента. Требуется farmId в params и доступ к ферме.
func (h *Hub) Query(ctx context.Context, connID string, kind QueryKind, params map[string]string) QueryResult {
	client, err := h.client(connID)
	if err != nil {
		return failed(err)
	}

	farmID := params["farmId"]
	if farmID == "" || !client.CanAccessFarm(farmID) {
		h.log.Info("Запрос отклонен", "conn_id", connID, "user_id", client.UserID, "farm_id", farmID)
		return failed(fmt.Errorf("%w: farm %q", ErrAccessDenied, farmID))
	}

	limit, err := queryLimit(params["limit"])
	if err != nil {
		return failed(err)
	}

	switch kind {
	case QuerySensorData:
		recs, err := h.store.LatestReadings(ctx, farmID, params["sensorId"], limit)
		if err != nil {
			return failed(fmt.Errorf("query sensor data: %w", err))
		}
		return QueryResult{Data: nonNil(recs)}
	case QueryAlerts:
		recs, err := h.store.Alerts(ctx, farmID, limit)
		if err != nil {
			return failed(fmt.Errorf("query alerts: %w", err))
		}
		return QueryResult{Data: nonNil(recs)}
	case QueryFarm:
		rec, err := h.store.Farm(ctx, farmID)
		if errors.Is(err, record.ErrNotFound) {
			return failed(err)
		}
		if err != nil {
			return failed(fmt.Errorf("query farm: %w", err))
		}
		return QueryResult{Data: rec}
	default:
		return failed(fmt.Errorf("%w: %q", ErrUnknownQuery, kind))
	}
}

func queryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultQueryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return min(n, maxQueryLimit), nil
}

func nonNil(recs []record.Record) []record.Record {
	if recs == nil {
		return []record.Record{}
	}
	return recs
}

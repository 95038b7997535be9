package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"agroedge/internal/domain/record"
	domainsync "agroedge/internal/domain/sync"

	"golang.org/x/exp/slog"
)

// Version - версия узла, подставляется при сборке через -ldflags
var Version = "dev"

// StatusError - облако ответило кодом вне 2xx
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ошибка сервера: статус %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("ошибка сервера: статус %d", e.Code)
}

// CloudClient - HTTP клиент облачного API синхронизации
type CloudClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	apiKey    string
	userAgent string
}

// NewCloudClient создает клиент. timeout ограничивает каждый запрос целиком.
func NewCloudClient(baseURL, apiKey, nodeID string, timeout time.Duration, log *slog.Logger) *CloudClient {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &CloudClient{
		client:    client,
		log:       log.With("component", "cloud_client"),
		baseURL:   baseURL,
		apiKey:    apiKey,
		userAgent: fmt.Sprintf("agroedge-edgehub/%s (%s)", Version, nodeID),
	}
}

// Health проверяет доступность облака
func (c *CloudClient) Health(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return err
	}
	return c.parseResponse(resp, nil)
}

// UploadBatch отправляет пакет записей
func (c *CloudClient) UploadBatch(ctx context.Context, kind record.Kind, env domainsync.Envelope) (*domainsync.BatchResponse, error) {
	path := kind.SyncPath()
	if path == "" {
		return nil, fmt.Errorf("%w: %q", record.ErrUnknownKind, kind)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, path, nil, env)
	if err != nil {
		return nil, err
	}

	var out domainsync.BatchResponse
	if err := c.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Configurations получает параметры, измененные после since
func (c *CloudClient) Configurations(ctx context.Context, since *time.Time) ([]domainsync.ConfigEntry, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/configurations", deltaQuery(since), nil)
	if err != nil {
		return nil, err
	}

	var out domainsync.ConfigurationsResponse
	if err := c.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return out.Configurations, nil
}

// Updates получает обновления, созданные после since
func (c *CloudClient) Updates(ctx context.Context, since *time.Time) ([]domainsync.UpdateDelta, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/updates", deltaQuery(since), nil)
	if err != nil {
		return nil, err
	}

	var out domainsync.UpdatesResponse
	if err := c.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return out.Updates, nil
}

func deltaQuery(since *time.Time) url.Values {
	q := url.Values{}
	q.Set("source", domainsync.SourceEdgeHub)
	if since != nil {
		q.Set("lastSync", since.UTC().Format(time.RFC3339))
	}
	return q
}

func (c *CloudClient) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.log.Debug("Отправка запроса",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	return resp, nil
}

func (c *CloudClient) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	c.log.Debug("Получен ответ",
		"status", resp.StatusCode,
		"bytes", len(body),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		msg := ""
		if err := json.Unmarshal(body, &errResp); err == nil {
			msg = errResp.Error
			if msg == "" {
				msg = errResp.Detail
			}
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}
	return nil
}

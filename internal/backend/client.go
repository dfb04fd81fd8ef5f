// internal/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"memoriza-service/internal/config"
	"memoriza-service/internal/domain/auth"
	"memoriza-service/internal/domain/carousel"
	"memoriza-service/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Endpoint labels used in logs and metrics.
const (
	EndpointLogin           = "auth_login"
	EndpointRegister        = "auth_register"
	EndpointGroup           = "admin_group"
	EndpointCarouselList    = "carousel_list"
	EndpointCarouselCreate  = "carousel_create"
	EndpointCarouselUpdate  = "carousel_update"
	EndpointCarouselDelete  = "carousel_delete"
	EndpointCarouselReorder = "carousel_reorder"
)

const maxErrorBody = 64 << 10

// Client talks to the Memoriza REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    metrics.Recorder
	logger     *zap.Logger
}

func NewClient(cfg config.BackendConfig, recorder metrics.Recorder, logger *zap.Logger) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		metrics:    recorder,
		logger:     logger,
	}
}

// BaseURL returns the API root the client is configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ========== Auth ==========

func (c *Client) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	var out auth.AuthResponse
	if err := c.do(ctx, EndpointLogin, http.MethodPost, "/api/Auth/login", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register forwards the registration form unchanged.
func (c *Client) Register(ctx context.Context, payload map[string]any) (*auth.AuthResponse, error) {
	var out auth.AuthResponse
	if err := c.do(ctx, EndpointRegister, http.MethodPost, "/api/Auth/register", "", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ========== Groups ==========

type groupResponse struct {
	ID          any               `json:"id"`
	Name        string            `json:"name"`
	Permissions []json.RawMessage `json:"permissions"`
}

// GetGroup fetches a permission group. Entries without a string module are
// dropped, and non-object action maps become empty.
func (c *Client) GetGroup(ctx context.Context, token, groupID string) (*auth.PermissionGroup, error) {
	var raw groupResponse
	path := "/api/admin/groups/" + url.PathEscape(groupID)
	if err := c.do(ctx, EndpointGroup, http.MethodGet, path, token, nil, &raw); err != nil {
		return nil, err
	}

	group := &auth.PermissionGroup{Name: raw.Name, Permissions: []auth.ModulePermission{}}
	if id, ok := auth.IDString(raw.ID); ok {
		group.ID = id
	} else {
		group.ID = groupID
	}

	for _, entry := range raw.Permissions {
		var fields map[string]any
		if err := json.Unmarshal(entry, &fields); err != nil {
			continue
		}
		module, ok := fields["module"].(string)
		if !ok {
			continue
		}
		actions, _ := fields["actions"].(map[string]any)
		if actions == nil {
			actions = map[string]any{}
		}
		group.Permissions = append(group.Permissions, auth.ModulePermission{Module: module, Actions: actions})
	}

	return group, nil
}

// ========== Carousel ==========

func (c *Client) ListCarouselItems(ctx context.Context, token string) ([]carousel.Item, error) {
	var items []carousel.Item
	if err := c.do(ctx, EndpointCarouselList, http.MethodGet, "/api/carousel-items", token, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) CreateCarouselItem(ctx context.Context, token string, item carousel.Item) (*carousel.Item, error) {
	out := item
	if err := c.do(ctx, EndpointCarouselCreate, http.MethodPost, "/api/carousel-items", token, item, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCarouselItem returns the stored item, or the sent one when the
// backend answers without a body.
func (c *Client) UpdateCarouselItem(ctx context.Context, token string, item carousel.Item) (*carousel.Item, error) {
	out := item
	path := fmt.Sprintf("/api/carousel-items/%d", item.ID)
	if err := c.do(ctx, EndpointCarouselUpdate, http.MethodPut, path, token, item, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCarouselItem(ctx context.Context, token string, id int64) error {
	path := fmt.Sprintf("/api/carousel-items/%d", id)
	return c.do(ctx, EndpointCarouselDelete, http.MethodDelete, path, token, nil, nil)
}

func (c *Client) ReorderCarouselItems(ctx context.Context, token string, entries []carousel.ReorderEntry) error {
	return c.do(ctx, EndpointCarouselReorder, http.MethodPost, "/api/carousel-items/reorder", token, entries, nil)
}

// ========== Transport ==========

func (c *Client) do(ctx context.Context, endpoint, method, path, token string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Endpoint: endpoint, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordBackendRequest(endpoint, 0, time.Since(start))
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()
	c.metrics.RecordBackendRequest(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		se := &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    messageFromBody(raw),
			Body:       string(raw),
		}
		c.logger.Debug("backend rejected request",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("body", se.Body),
		)
		return se
	}

	if out == nil {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Endpoint: endpoint, Err: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}

// messageFromBody pulls a human readable message out of an error body. The
// API answers with {"message": ...}; framework errors use ProblemDetails.
func messageFromBody(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	for _, key := range []string{"message", "Message", "title", "detail"} {
		if s, ok := body[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// Package gateway is the pipeline's client for the audit backend. Record
// creation is retried on transport failures and 5xx with capped exponential
// backoff; 4xx responses are permanent and never retried.
package gateway

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

	"github.com/Johnhpure/product-audit/internal/domain"
	"go.uber.org/zap"
)

type Config struct {
	BaseURL        string
	AuthToken      string
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

type Client struct {
	baseURL        string
	authToken      string
	maxRetries     int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	httpClient     *http.Client
	logger         *zap.SugaredLogger
}

func NewClient(cfg Config, logger *zap.SugaredLogger) *Client {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	maxDelay := cfg.RetryMaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	return &Client{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		authToken:      cfg.AuthToken,
		maxRetries:     maxRetries,
		retryBaseDelay: baseDelay,
		retryMaxDelay:  maxDelay,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		logger:         logger,
	}
}

type listResponse struct {
	Records []domain.AuditRecord `json:"records"`
	Total   int64                `json:"total"`
}

// createRecordRequest is the backend's accepted create shape. AuditRecord
// itself carries server-assigned fields (id, manualStatus, createdAt) that
// the backend rejects on input, so the wire body is built from this subset.
type createRecordRequest struct {
	ProductID        string `json:"productId"`
	ProductTitle     string `json:"productTitle"`
	ProductImage     string `json:"productImage,omitempty"`
	SubmitTime       string `json:"submitTime,omitempty"`
	AIProcessingTime int64  `json:"aiProcessingTime"`
	AuditStage       string `json:"auditStage"`
	Verdict          string `json:"verdict,omitempty"`
	RejectionReason  string `json:"rejectionReason,omitempty"`
	APIError         string `json:"apiError,omitempty"`
	TextRequest      string `json:"textRequest,omitempty"`
	TextResponse     string `json:"textResponse,omitempty"`
	ImageRequest     string `json:"imageRequest,omitempty"`
	ImageResponse    string `json:"imageResponse,omitempty"`
	ScopeRequest     string `json:"scopeRequest,omitempty"`
	ScopeResponse    string `json:"scopeResponse,omitempty"`
	UserID           string `json:"userId,omitempty"`
	Username         string `json:"username,omitempty"`
}

func newCreateRecordRequest(record domain.AuditRecord) createRecordRequest {
	submitTime := ""
	if !record.SubmitTime.IsZero() {
		submitTime = record.SubmitTime.Format(time.RFC3339)
	}

	return createRecordRequest{
		ProductID:        record.ProductID,
		ProductTitle:     record.ProductTitle,
		ProductImage:     record.ProductImage,
		SubmitTime:       submitTime,
		AIProcessingTime: record.AIProcessingTime,
		AuditStage:       string(record.AuditStage),
		Verdict:          string(record.Verdict),
		RejectionReason:  record.RejectionReason,
		APIError:         record.APIError,
		TextRequest:      record.TextRequest,
		TextResponse:     record.TextResponse,
		ImageRequest:     record.ImageRequest,
		ImageResponse:    record.ImageResponse,
		ScopeRequest:     record.ScopeRequest,
		ScopeResponse:    record.ScopeResponse,
		UserID:           record.UserID,
		Username:         record.Username,
	}
}

// CheckProductExists reports whether an audit record already exists for the
// product id. Queries with limit 1; existence is a non-empty result set.
func (c *Client) CheckProductExists(ctx context.Context, productID string) (bool, error) {
	query := url.Values{}
	query.Set("productId", productID)
	query.Set("limit", "1")

	endpoint := c.baseURL + "/api/v1/audit-records?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("new request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return false, fmt.Errorf("dedup check: %s", resp.Status)
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return false, fmt.Errorf("decode dedup response: %w", err)
	}

	return len(list.Records) > 0, nil
}

// CreateRecord persists one audit outcome. The record is a durable log, not
// a transaction boundary: callers continue on failure.
func (c *Client) CreateRecord(ctx context.Context, record domain.AuditRecord) error {
	payload, err := json.Marshal(newCreateRecordRequest(record))
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/audit-records"

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryBaseDelay << (attempt - 1)
			if delay > c.retryMaxDelay {
				delay = c.retryMaxDelay
			}
			c.logger.Infow("retrying audit record create", "product_id", record.ProductID, "attempt", attempt, "delay", delay)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("create audit record: %w", err)
			continue
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if resp.StatusCode < http.StatusBadRequest {
			return nil
		}

		lastErr = fmt.Errorf("create audit record: %s: %s", resp.Status, strings.TrimSpace(string(body)))

		// 4xx means the request shape was rejected; retrying cannot help.
		if resp.StatusCode < http.StatusInternalServerError {
			return lastErr
		}
	}

	return lastErr
}

// GetStatistics is a pass-through read of the backend aggregates.
func (c *Client) GetStatistics(ctx context.Context) (domain.Statistics, error) {
	endpoint := c.baseURL + "/api/v1/audit-records/statistics"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("new request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("get statistics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.Statistics{}, fmt.Errorf("get statistics: %s", resp.Status)
	}

	var stats domain.Statistics
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return domain.Statistics{}, fmt.Errorf("decode statistics: %w", err)
	}

	return stats, nil
}

// GetSetting reads one backend setting; absent keys come back as "".
func (c *Client) GetSetting(ctx context.Context, key string) (string, error) {
	endpoint := c.baseURL + "/api/v1/settings/" + url.PathEscape(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("get setting %s: %s", key, resp.Status)
	}

	var setting struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&setting); err != nil {
		return "", fmt.Errorf("decode setting: %w", err)
	}

	return setting.Value, nil
}

// PutSetting writes one backend setting.
func (c *Client) PutSetting(ctx context.Context, key, value string) error {
	payload, err := json.Marshal(map[string]string{"value": value})
	if err != nil {
		return fmt.Errorf("marshal setting: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/settings/" + url.PathEscape(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("put setting %s: %s", key, resp.Status)
	}

	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

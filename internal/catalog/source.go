// Package catalog reads pending listings from the admin platform and pushes
// approvals back. The platform is authoritative; products are never cached.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Johnhpure/product-audit/internal/domain"
	"go.uber.org/zap"
)

type Config struct {
	BaseURL  string
	PageSize int
}

type Source struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

func NewSource(cfg Config, logger *zap.SugaredLogger) *Source {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}

	return &Source{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type listEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    *struct {
		Content       []domain.Product `json:"content"`
		TotalElements int64            `json:"totalElements"`
	} `json:"data,omitempty"`
}

type shopEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    *struct {
		LicensePic string `json:"licensePic"`
	} `json:"data,omitempty"`
}

// FetchPending returns one page of pending products in the platform's queue
// order (oldest pending first).
func (s *Source) FetchPending(ctx context.Context, page int) ([]domain.Product, error) {
	query := url.Values{}
	query.Set("pageNumber", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(s.pageSize))
	query.Set("status", "pending")
	query.Set("sortField", "pendingTime")
	query.Set("sortOrder", "asc")

	endpoint := s.baseURL + "/gateway/mall/listAllProducts?" + query.Encode()

	var envelope listEnvelope
	if err := s.getJSON(ctx, endpoint, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return nil, nil
	}

	return envelope.Data.Content, nil
}

// Approve moves a product out of the pending queue.
func (s *Source) Approve(ctx context.Context, productID int64) error {
	payload, err := json.Marshal(map[string]any{
		"id":     productID,
		"status": "approved",
	})
	if err != nil {
		return fmt.Errorf("marshal approve payload: %w", err)
	}

	endpoint := s.baseURL + "/gateway/mall/updateProductStatus"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("approve product %d: %w", productID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("approve product %d: %s: %s", productID, resp.Status, strings.TrimSpace(string(raw)))
	}

	return nil
}

// ShopLicense returns the shop's business-license image URL, or "" when the
// shop has none on file.
func (s *Source) ShopLicense(ctx context.Context, shopID int64) (string, error) {
	endpoint := fmt.Sprintf("%s/gateway/mall/getAdminShopDetail?shopId=%d", s.baseURL, shopID)

	var envelope shopEnvelope
	if err := s.getJSON(ctx, endpoint, &envelope); err != nil {
		return "", err
	}
	if envelope.Data == nil {
		return "", nil
	}

	return envelope.Data.LicensePic, nil
}

func (s *Source) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read catalog response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("catalog error %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}

	return nil
}

// Package ocr extracts the licensed business scope from a merchant's
// business-license image: temporary credentials, a re-hosting upload, then
// the signed recognition call.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Johnhpure/product-audit/internal/signer"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrScopeNotExtracted means the license was processed but no business scope
// could be read from it. The pipeline treats this as a per-product rejection;
// every other failure from this package is an unclassified OCR error.
var ErrScopeNotExtracted = errors.New("failed to recognize business scope")

const (
	actionRecognizeLicense = "RecognizeBusinessLicense"
	actionTempToken        = "GetOssStsToken"

	recognizeVersion = "2019-12-30"
	tokenVersion     = "2020-04-01"
)

type Config struct {
	Endpoint        string
	TokenEndpoint   string
	AccessKeyID     string
	AccessKeySecret string
}

type Client struct {
	endpoint      string
	tokenEndpoint string
	signer        signer.Signer
	uploader      Uploader
	httpClient    *http.Client
	logger        *zap.SugaredLogger
}

func NewClient(cfg Config, uploader Uploader, logger *zap.SugaredLogger) *Client {
	return &Client{
		endpoint:      strings.TrimSuffix(cfg.Endpoint, "/") + "/",
		tokenEndpoint: strings.TrimSuffix(cfg.TokenEndpoint, "/") + "/",
		signer:        signer.New(cfg.AccessKeyID, cfg.AccessKeySecret),
		uploader:      uploader,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		logger:        logger,
	}
}

// Recognition is a successful license read.
type Recognition struct {
	BusinessScope string
	Raw           string
}

type recognizeResponse struct {
	Message string `json:"Message,omitempty"`
	Data    *struct {
		Business      string `json:"Business,omitempty"`
		BusinessScope string `json:"BusinessScope,omitempty"`
	} `json:"Data,omitempty"`
}

type tokenResponse struct {
	Message string           `json:"Message,omitempty"`
	Data    *TempCredentials `json:"Data,omitempty"`
}

// RecognizeBusinessLicense runs the full three-step flow against the source
// image URL. ErrScopeNotExtracted identifies the one recoverable failure.
func (c *Client) RecognizeBusinessLicense(ctx context.Context, imageURL string) (Recognition, error) {
	creds, err := c.tempCredentials(ctx)
	if err != nil {
		return Recognition{}, fmt.Errorf("get temp credentials: %w", err)
	}

	hostedURL, err := c.rehost(ctx, creds, imageURL)
	if err != nil {
		return Recognition{}, fmt.Errorf("rehost license image: %w", err)
	}

	c.logger.Debugw("license image rehosted", "url", hostedURL)

	params := c.signer.CommonParams(actionRecognizeLicense, recognizeVersion)
	params["ImageURL"] = hostedURL

	raw, err := c.post(ctx, c.endpoint, params)
	if err != nil {
		return Recognition{}, err
	}

	var envelope recognizeResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Recognition{Raw: string(raw)}, fmt.Errorf("decode recognition response: %w", err)
	}

	if envelope.Data != nil {
		if scope := firstNonEmpty(envelope.Data.Business, envelope.Data.BusinessScope); scope != "" {
			return Recognition{BusinessScope: scope, Raw: string(raw)}, nil
		}
	}
	if envelope.Message != "" {
		return Recognition{Raw: string(raw)}, fmt.Errorf("recognition rejected: %s", envelope.Message)
	}

	return Recognition{Raw: string(raw)}, ErrScopeNotExtracted
}

func (c *Client) tempCredentials(ctx context.Context) (TempCredentials, error) {
	params := c.signer.CommonParams(actionTempToken, tokenVersion)

	raw, err := c.post(ctx, c.tokenEndpoint, params)
	if err != nil {
		return TempCredentials{}, err
	}

	var envelope tokenResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return TempCredentials{}, fmt.Errorf("decode token response: %w", err)
	}
	if envelope.Data == nil || envelope.Data.AccessKeyID == "" {
		return TempCredentials{}, fmt.Errorf("token broker returned no credentials: %s", envelope.Message)
	}

	return *envelope.Data, nil
}

func (c *Client) rehost(ctx context.Context, creds TempCredentials, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch source image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("fetch source image: %s", resp.Status)
	}

	img, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return "", fmt.Errorf("read source image: %w", err)
	}

	key := fmt.Sprintf("%s/%s/%s.jpg", c.signer.AccessKeyID, uuid.NewString(), uuid.NewString())

	return c.uploader.Upload(ctx, creds, key, bytes.NewReader(img))
}

func (c *Client) post(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	body := c.signer.SignedBody(http.MethodPost, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read ocr response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("ocr error %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	return raw, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

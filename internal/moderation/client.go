// Package moderation wraps the content-safety vendor: signed form POSTs for
// text and image checks, with typed response envelopes.
package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Johnhpure/product-audit/internal/signer"
	"go.uber.org/zap"
)

const (
	actionTextModeration  = "TextModerationPlus"
	actionImageModeration = "ImageModeration"
	apiVersion            = "2022-03-02"

	textService  = "ad_compliance_detection_pro"
	imageService = "advertisingCheck"
)

// Labels inside this set never count as a violation.
var allowedLabels = map[string]struct{}{
	"normal":   {},
	"nonLabel": {},
}

type Config struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
}

type Client struct {
	endpoint   string
	signer     signer.Signer
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

func NewClient(cfg Config, logger *zap.SugaredLogger) *Client {
	return &Client{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/") + "/",
		signer:     signer.New(cfg.AccessKeyID, cfg.AccessKeySecret),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Response is the vendor's envelope for both text and image checks.
type Response struct {
	Code    int           `json:"Code"`
	Message string        `json:"Message,omitempty"`
	Data    *ResponseData `json:"Data,omitempty"`
}

type ResponseData struct {
	Reason string       `json:"Reason,omitempty"`
	Result []RiskResult `json:"Result,omitempty"`
}

type RiskResult struct {
	Label      string  `json:"Label"`
	Confidence float64 `json:"Confidence,omitempty"`
}

// Verdict is the outcome of one moderation call. Raw carries the untouched
// response body for audit snapshots.
type Verdict struct {
	IsSafe   bool
	Response Response
	Raw      string
}

// FirstRiskLabel returns the first label outside the allow-set, or "".
func (v Verdict) FirstRiskLabel() string {
	if v.Response.Data == nil {
		return ""
	}
	for _, r := range v.Response.Data.Result {
		if r.Label == "" {
			continue
		}
		if _, ok := allowedLabels[r.Label]; !ok {
			return r.Label
		}
	}
	return ""
}

// TextModeration checks a text payload. The verdict is unsafe whenever the
// vendor reports any detected issue; transport failures are returned as
// errors and must be treated as failed verdicts by the caller.
func (c *Client) TextModeration(ctx context.Context, content string) (Verdict, error) {
	serviceParams, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal service parameters: %w", err)
	}

	params := c.signer.CommonParams(actionTextModeration, apiVersion)
	params["Service"] = textService
	params["ServiceParameters"] = string(serviceParams)

	verdict, err := c.call(ctx, params)
	if err != nil {
		return verdict, err
	}

	verdict.IsSafe = verdict.Response.Code == http.StatusOK &&
		(verdict.Response.Data == nil || verdict.Response.Data.Reason == "")

	return verdict, nil
}

// ImageModeration checks a single image URL. The verdict is unsafe if any
// result label falls outside the allow-set.
func (c *Client) ImageModeration(ctx context.Context, imageURL string) (Verdict, error) {
	serviceParams, err := json.Marshal(map[string]string{"imageUrl": imageURL})
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal service parameters: %w", err)
	}

	params := c.signer.CommonParams(actionImageModeration, apiVersion)
	params["Service"] = imageService
	params["ServiceParameters"] = string(serviceParams)

	verdict, err := c.call(ctx, params)
	if err != nil {
		return verdict, err
	}

	verdict.IsSafe = verdict.Response.Code == http.StatusOK && verdict.FirstRiskLabel() == ""

	return verdict, nil
}

func (c *Client) call(ctx context.Context, params map[string]string) (Verdict, error) {
	body := c.signer.SignedBody(http.MethodPost, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return Verdict{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("moderation request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Verdict{}, fmt.Errorf("read moderation response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return Verdict{Raw: string(raw)}, fmt.Errorf("moderation error %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var envelope Response
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Verdict{Raw: string(raw)}, fmt.Errorf("decode moderation response: %w", err)
	}

	return Verdict{Response: envelope, Raw: string(raw)}, nil
}

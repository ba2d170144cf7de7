// Package scope asks an OpenAI-compatible reasoning endpoint whether a
// merchant's licensed business scope covers a product category.
package scope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	Endpoint string
	Model    string
	APIKey   string
}

type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

func NewClient(cfg Config, logger *zap.SugaredLogger) *Client {
	return &Client{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// Analysis is the compliance judgment for one category/scope pair.
type Analysis struct {
	Allowed bool
	Reason  string
	Raw     string
}

const promptTemplate = `
You are a strict business compliance auditor for a Chinese e-commerce platform.
Task: Determine if the merchant's business scope allows selling the specified product category.

Product Category: %q
Merchant Business Scope: %q

Instructions:
1. Analyze if the business scope contains keywords or categories that cover the product category.
2. STRICTLY follow Chinese laws and regulations regarding business scope.
3. The match must be explicit or logically included. For example:
   - "Clothing" covers "T-shirts".
   - "General Merchandise" (日用百货) covers many daily items but NOT specialized items like "Medical Devices" or "Food".
   - "Food" does NOT cover "Electronics".
4. If the scope allows, return "success".
5. If the scope does NOT allow, return "failed" and provide a short reason (max 20 words) in Chinese.

Output Format (JSON only):
{
    "result": "success" | "failed",
    "reason": "Reason if failed, otherwise empty string"
}
`

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type scopeVerdict struct {
	Result string `json:"result"`
	Reason string `json:"reason"`
}

// AnalyzeBusinessScope returns whether the scope covers the category. The
// model is constrained to a fixed JSON shape; output that fails to parse is
// reported as a failed verdict with a generic reason, not an error.
func (c *Client) AnalyzeBusinessScope(ctx context.Context, category, businessScope string) (Analysis, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return Analysis{}, fmt.Errorf("scope client misconfigured")
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful assistant that outputs JSON."},
			{Role: "user", Content: fmt.Sprintf(promptTemplate, category, businessScope)},
		},
		Temperature: 0.1,
	}
	payload.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(payload)
	if err != nil {
		return Analysis{}, fmt.Errorf("marshal scope payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Analysis{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Analysis{}, fmt.Errorf("scope analysis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Analysis{}, fmt.Errorf("read scope response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return Analysis{Raw: string(raw)}, fmt.Errorf("scope analysis error %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return Analysis{Raw: string(raw)}, fmt.Errorf("decode scope response: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return Analysis{Raw: string(raw)}, fmt.Errorf("scope analysis returned empty response")
	}

	content := chat.Choices[0].Message.Content

	var verdict scopeVerdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		c.logger.Warnw("scope analysis output did not parse", "content", content, "error", err)
		return Analysis{Allowed: false, Reason: "AI response parsing failed", Raw: content}, nil
	}

	if verdict.Result == "success" {
		return Analysis{Allowed: true, Raw: content}, nil
	}

	reason := verdict.Reason
	if reason == "" {
		reason = "Business scope mismatch"
	}

	return Analysis{Allowed: false, Reason: reason, Raw: content}, nil
}

package scope

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		Endpoint: srv.URL,
		Model:    "deepseek-chat",
		APIKey:   "test-key",
	}, zap.NewNop().Sugar())
}

func chatReply(content string) string {
	reply := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
	raw, _ := json.Marshal(reply)
	return string(raw)
}

func TestAnalyzeBusinessScopeAllowed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "deepseek-chat", req.Model)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)
		assert.InDelta(t, 0.1, req.Temperature, 0.001)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "服装")
		assert.Contains(t, req.Messages[1].Content, "服装批发零售")

		fmt.Fprint(w, chatReply(`{"result":"success","reason":""}`))
	})

	analysis, err := client.AnalyzeBusinessScope(context.Background(), "服装", "服装批发零售")
	require.NoError(t, err)
	assert.True(t, analysis.Allowed)
}

func TestAnalyzeBusinessScopeMismatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatReply(`{"result":"failed","reason":"经营范围不含电子产品"}`))
	})

	analysis, err := client.AnalyzeBusinessScope(context.Background(), "电子产品", "食品,日用百货")
	require.NoError(t, err)
	assert.False(t, analysis.Allowed)
	assert.Equal(t, "经营范围不含电子产品", analysis.Reason)
}

func TestAnalyzeBusinessScopeMismatchWithoutReason(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatReply(`{"result":"failed"}`))
	})

	analysis, err := client.AnalyzeBusinessScope(context.Background(), "电子产品", "食品")
	require.NoError(t, err)
	assert.False(t, analysis.Allowed)
	assert.Equal(t, "Business scope mismatch", analysis.Reason)
}

func TestAnalyzeBusinessScopeUnparseableOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatReply("I think the scope probably covers it."))
	})

	// Non-JSON model output is a failed verdict, not a transport error.
	analysis, err := client.AnalyzeBusinessScope(context.Background(), "服装", "服装零售")
	require.NoError(t, err)
	assert.False(t, analysis.Allowed)
	assert.Equal(t, "AI response parsing failed", analysis.Reason)
}

func TestAnalyzeBusinessScopeAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	})

	_, err := client.AnalyzeBusinessScope(context.Background(), "服装", "服装零售")
	assert.Error(t, err)
}

func TestAnalyzeBusinessScopeMisconfigured(t *testing.T) {
	client := NewClient(Config{}, zap.NewNop().Sugar())

	_, err := client.AnalyzeBusinessScope(context.Background(), "服装", "服装零售")
	assert.Error(t, err)
}

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Johnhpure/product-audit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGateway(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL:        srv.URL,
		AuthToken:      "secret-token",
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
	}, zap.NewNop().Sugar())
}

func TestCheckProductExists(t *testing.T) {
	client := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/audit-records", r.URL.Path)
		assert.Equal(t, "101", r.URL.Query().Get("productId"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		fmt.Fprint(w, `{"records":[{"productId":"101"}],"total":1}`)
	}))

	exists, err := client.CheckProductExists(context.Background(), "101")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCheckProductExistsNotFound(t *testing.T) {
	client := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"records":[],"total":0}`)
	}))

	exists, err := client.CheckProductExists(context.Background(), "999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateRecord(t *testing.T) {
	var calls atomic.Int32

	client := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/audit-records", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	}))

	record := domain.AuditRecord{
		ProductID:       "101",
		ProductTitle:    "牛皮钱包",
		AuditStage:      domain.StageText,
		Verdict:         domain.VerdictRejected,
		RejectionReason: "文本违规",
	}

	require.NoError(t, client.CreateRecord(context.Background(), record))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateRecordOmitsServerAssignedFields(t *testing.T) {
	var body map[string]any

	client := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusAccepted)
	}))

	record := domain.AuditRecord{
		ProductID:    "101",
		ProductTitle: "牛皮钱包",
		SubmitTime:   time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		AuditStage:   domain.StageImage,
		Verdict:      domain.VerdictRejected,
		ManualStatus: domain.ManualPending,
		CreatedAt:    time.Now(),
	}

	require.NoError(t, client.CreateRecord(context.Background(), record))

	// id, manualStatus and createdAt are assigned server-side; sending them
	// would be rejected by the backend's strict decoder.
	assert.NotContains(t, body, "id")
	assert.NotContains(t, body, "manualStatus")
	assert.NotContains(t, body, "createdAt")
	assert.Equal(t, "101", body["productId"])
	assert.Equal(t, "2026-08-30T12:00:00Z", body["submitTime"])
}

func TestCreateRecordRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32

	client := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))

	err := client.CreateRecord(context.Background(), domain.AuditRecord{ProductID: "101"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreateRecordDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32

	client := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))

	err := client.CreateRecord(context.Background(), domain.AuditRecord{ProductID: "101"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateRecordExhaustsRetries(t *testing.T) {
	var calls atomic.Int32

	client := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))

	err := client.CreateRecord(context.Background(), domain.AuditRecord{ProductID: "101"})
	require.Error(t, err)
	// initial attempt plus MaxRetries
	assert.Equal(t, int32(4), calls.Load())
}

func TestSettingsRoundTrip(t *testing.T) {
	var putBody map[string]string

	client := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/settings/pipeline_running", r.URL.Path)

		switch r.Method {
		case http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&putBody))
			fmt.Fprint(w, `{"key":"pipeline_running","value":"true"}`)
		case http.MethodGet:
			fmt.Fprint(w, `{"key":"pipeline_running","value":"true"}`)
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	}))

	require.NoError(t, client.PutSetting(context.Background(), "pipeline_running", "true"))
	assert.Equal(t, "true", putBody["value"])

	value, err := client.GetSetting(context.Background(), "pipeline_running")
	require.NoError(t, err)
	assert.Equal(t, "true", value)
}

func TestGetStatistics(t *testing.T) {
	client := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/audit-records/statistics", r.URL.Path)
		fmt.Fprint(w, `{"total":10,"rejected":4,"passed":6,"byStage":{"text":3,"image":1}}`)
	}))

	stats, err := client.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Total)
	assert.Equal(t, int64(4), stats.Rejected)
	assert.Equal(t, int64(3), stats.ByStage["text"])
}

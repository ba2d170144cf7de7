package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Johnhpure/product-audit/internal/domain"
	"github.com/Johnhpure/product-audit/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// The create DTO must accept exactly what the pipeline's gateway client puts
// on the wire; strict decoding turns any drift into a permanent 400.
func TestCreateRequestAcceptsGatewayBody(t *testing.T) {
	var decoded CreateAuditRecordRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req CreateAuditRecordRequest
		if err := readJSON(w, r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := Validate.Struct(req); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		decoded = req
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	client := gateway.NewClient(gateway.Config{BaseURL: srv.URL}, zap.NewNop().Sugar())

	record := domain.AuditRecord{
		ID:               primitive.NewObjectID(),
		ProductID:        "101",
		ProductTitle:     "牛皮钱包",
		ProductImage:     "https://img.example.com/101-main.jpg",
		SubmitTime:       time.Now(),
		AIProcessingTime: 420,
		AuditStage:       domain.StageText,
		Verdict:          domain.VerdictRejected,
		RejectionReason:  "文本违规",
		TextRequest:      "商品名称：牛皮钱包",
		TextResponse:     `{"Code":200,"Data":{"Reason":"违规"}}`,
		UserID:           "u-1",
		Username:         "auditor",
		ManualStatus:     domain.ManualPending,
		CreatedAt:        time.Now(),
	}

	require.NoError(t, client.CreateRecord(context.Background(), record))

	assert.Equal(t, "101", decoded.ProductID)
	assert.Equal(t, "牛皮钱包", decoded.ProductTitle)
	assert.Equal(t, "text", decoded.AuditStage)
	assert.Equal(t, "rejected", decoded.Verdict)
	assert.Equal(t, "文本违规", decoded.RejectionReason)
	assert.Equal(t, int64(420), decoded.AIProcessingTime)
	assert.NotEmpty(t, decoded.SubmitTime)
	assert.Equal(t, "auditor", decoded.Username)
}

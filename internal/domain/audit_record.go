package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ManualStatus tracks the downstream human-review decision on a record.
type ManualStatus string

const (
	ManualPending  ManualStatus = "pending"
	ManualApproved ManualStatus = "approved"
	ManualRejected ManualStatus = "rejected"
)

// AuditRecord is the persisted outcome of one pipeline decision. Records are
// immutable after creation except for the manual-review fields.
type AuditRecord struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID        string             `bson:"product_id" json:"productId"`
	ProductTitle     string             `bson:"product_title" json:"productTitle"`
	ProductImage     string             `bson:"product_image" json:"productImage"`
	SubmitTime       time.Time          `bson:"submit_time" json:"submitTime"`
	AIProcessingTime int64              `bson:"ai_processing_time" json:"aiProcessingTime"`
	AuditStage       AuditStage         `bson:"audit_stage" json:"auditStage"`
	Verdict          Verdict            `bson:"verdict" json:"verdict"`
	RejectionReason  string             `bson:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`
	APIError         string             `bson:"api_error,omitempty" json:"apiError,omitempty"`
	TextRequest      string             `bson:"text_request,omitempty" json:"textRequest,omitempty"`
	TextResponse     string             `bson:"text_response,omitempty" json:"textResponse,omitempty"`
	ImageRequest     string             `bson:"image_request,omitempty" json:"imageRequest,omitempty"`
	ImageResponse    string             `bson:"image_response,omitempty" json:"imageResponse,omitempty"`
	ScopeRequest     string             `bson:"scope_request,omitempty" json:"scopeRequest,omitempty"`
	ScopeResponse    string             `bson:"scope_response,omitempty" json:"scopeResponse,omitempty"`
	UserID           string             `bson:"user_id,omitempty" json:"userId,omitempty"`
	Username         string             `bson:"username,omitempty" json:"username,omitempty"`
	ManualStatus     ManualStatus       `bson:"manual_status" json:"manualStatus"`
	ManualPrice      string             `bson:"manual_price,omitempty" json:"manualPrice,omitempty"`
	ManualShop       string             `bson:"manual_shop,omitempty" json:"manualShop,omitempty"`
	ManualCategory   string             `bson:"manual_category,omitempty" json:"manualCategory,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"createdAt"`
}

// Statistics are the aggregates served by the backend for the dashboard.
type Statistics struct {
	Total           int64            `bson:"total" json:"total"`
	Rejected        int64            `bson:"rejected" json:"rejected"`
	Passed          int64            `bson:"passed" json:"passed"`
	ByStage         map[string]int64 `bson:"by_stage" json:"byStage"`
	AvgProcessingMs float64          `bson:"avg_processing_ms" json:"avgProcessingMs"`
}

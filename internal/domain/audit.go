package domain

import "time"

// AuditStage identifies one moderation gate within the pipeline.
type AuditStage string

const (
	StageText          AuditStage = "text"
	StageImage         AuditStage = "image"
	StageBusinessScope AuditStage = "business_scope"
)

// Terminal pipeline verdicts for a single product.
type Verdict string

const (
	VerdictPassed       Verdict = "passed"
	VerdictRejected     Verdict = "rejected"
	VerdictManualReview Verdict = "needs_manual_review"
)

// RunStatus is the user-visible state of the pipeline run loop.
type RunStatus string

const (
	RunIdle    RunStatus = "idle"
	RunRunning RunStatus = "running"
	RunStopped RunStatus = "stopped"
	RunError   RunStatus = "error"
)

// AuditState is the live snapshot of the product currently being processed.
// It is owned and mutated exclusively by the pipeline and reset at the start
// of every product; readers treat it as read-only.
type AuditState struct {
	ProductID     string   `json:"product_id"`
	ProductTitle  string   `json:"product_title"`
	ProductImage  string   `json:"product_image"`
	TextRequest   string   `json:"text_request"`
	TextResponse  string   `json:"text_response"`
	ImageRequest  string   `json:"image_request"`
	ImageResponse string   `json:"image_response"`
	ScopeRequest  string   `json:"scope_request"`
	ScopeResponse string   `json:"scope_response"`
	AIAnalysis    string   `json:"ai_analysis"`
	Verdict       Verdict  `json:"verdict,omitempty"`
	Stats         RunStats `json:"stats"`
}

// RunStats are the running counters for the current session.
type RunStats struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Passed    int `json:"passed"`
	Rejected  int `json:"rejected"`
}

// HistoryEntry is one terminal outcome. Entries are append-only, newest
// first, and the list is bounded; the in-session rejected set doubles as a
// fast-path dedup check.
type HistoryEntry struct {
	ProductID    string    `json:"product_id"`
	ProductTitle string    `json:"product_title"`
	ProductImage string    `json:"product_image"`
	Status       Verdict   `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

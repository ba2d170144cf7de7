package pipeline

import (
	"context"

	"github.com/Johnhpure/product-audit/internal/domain"
	"github.com/Johnhpure/product-audit/internal/moderation"
	"github.com/Johnhpure/product-audit/internal/ocr"
	"github.com/Johnhpure/product-audit/internal/scope"
)

// CatalogSource feeds the pipeline and receives approvals.
type CatalogSource interface {
	FetchPending(ctx context.Context, page int) ([]domain.Product, error)
	Approve(ctx context.Context, productID int64) error
	ShopLicense(ctx context.Context, shopID int64) (string, error)
}

// Moderator runs the text and image safety checks.
type Moderator interface {
	TextModeration(ctx context.Context, content string) (moderation.Verdict, error)
	ImageModeration(ctx context.Context, imageURL string) (moderation.Verdict, error)
}

// LicenseReader extracts the business scope from a license image.
type LicenseReader interface {
	RecognizeBusinessLicense(ctx context.Context, imageURL string) (ocr.Recognition, error)
}

// ScopeAnalyzer judges whether a scope covers a category.
type ScopeAnalyzer interface {
	AnalyzeBusinessScope(ctx context.Context, category, businessScope string) (scope.Analysis, error)
}

// RecordGateway is the audit backend surface the pipeline needs.
type RecordGateway interface {
	CheckProductExists(ctx context.Context, productID string) (bool, error)
	CreateRecord(ctx context.Context, record domain.AuditRecord) error
}

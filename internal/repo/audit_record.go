package repo

import (
	"context"

	"github.com/Johnhpure/product-audit/internal/domain"
)

type AuditRecordFilter struct {
	ProductID string
	Stage     domain.AuditStage
	Verdict   domain.Verdict
	Limit     int
	Offset    int
}

type AuditRecordRepository interface {
	Create(ctx context.Context, record *domain.AuditRecord) error
	ExistsByProductID(ctx context.Context, productID string) (bool, error)
	List(ctx context.Context, filter AuditRecordFilter) ([]domain.AuditRecord, int64, error)
	UpdateManualStatus(ctx context.Context, id string, status domain.ManualStatus) error
	Statistics(ctx context.Context) (domain.Statistics, error)
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Johnhpure/product-audit/internal/domain"
	"github.com/Johnhpure/product-audit/internal/queue"
	"github.com/Johnhpure/product-audit/internal/repo"
	"go.uber.org/zap"
)

type AuditRecordService struct {
	recordRepo repo.AuditRecordRepository
	broker     queue.Broker
	logger     *zap.SugaredLogger
}

func NewAuditRecordService(
	recordRepo repo.AuditRecordRepository,
	broker queue.Broker,
	logger *zap.SugaredLogger,
) *AuditRecordService {
	return &AuditRecordService{
		recordRepo: recordRepo,
		broker:     broker,
		logger:     logger,
	}
}

// Submit queues a record for persistence; the worker writes it to the store.
func (s *AuditRecordService) Submit(ctx context.Context, record domain.AuditRecord) error {
	event := domain.AuditRecordEvent{
		EventType: domain.EventAuditRecordCreated,
		Record:    record,
		Timestamp: time.Now(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := s.broker.Publish(ctx, queue.QueueAuditRecords, eventBytes); err != nil {
		s.logger.Errorw("failed to publish audit record event", "product_id", record.ProductID, "error", err)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	s.logger.Infow("audit record queued", "product_id", record.ProductID, "stage", record.AuditStage)

	return nil
}

// ProcessAuditRecordEvent persists one queued record.
func (s *AuditRecordService) ProcessAuditRecordEvent(ctx context.Context, event domain.AuditRecordEvent) error {
	record := event.Record

	if err := s.recordRepo.Create(ctx, &record); err != nil {
		s.logger.Errorw("failed to create audit record", "product_id", record.ProductID, "error", err)
		return fmt.Errorf("failed to create audit record: %w", err)
	}

	s.logger.Infow("audit record persisted", "product_id", record.ProductID, "stage", record.AuditStage)

	return nil
}

func (s *AuditRecordService) Exists(ctx context.Context, productID string) (bool, error) {
	exists, err := s.recordRepo.ExistsByProductID(ctx, productID)
	if err != nil {
		return false, fmt.Errorf("failed to check audit record: %w", err)
	}

	return exists, nil
}

func (s *AuditRecordService) List(ctx context.Context, filter repo.AuditRecordFilter) ([]domain.AuditRecord, int64, error) {
	records, total, err := s.recordRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit records: %w", err)
	}

	return records, total, nil
}

func (s *AuditRecordService) UpdateManualStatus(ctx context.Context, id string, status domain.ManualStatus) error {
	if err := s.recordRepo.UpdateManualStatus(ctx, id, status); err != nil {
		return err
	}

	s.logger.Infow("manual review status updated", "record_id", id, "status", status)

	return nil
}

func (s *AuditRecordService) Statistics(ctx context.Context) (domain.Statistics, error) {
	stats, err := s.recordRepo.Statistics(ctx)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("failed to get statistics: %w", err)
	}

	return stats, nil
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Johnhpure/product-audit/internal/domain"
	"github.com/Johnhpure/product-audit/internal/queue"
	"github.com/Johnhpure/product-audit/internal/service"
	"go.uber.org/zap"
)

type AuditRecordWorker struct {
	recordService *service.AuditRecordService
	broker        queue.Broker
	logger        *zap.SugaredLogger
	ctx           context.Context
	cancel        context.CancelFunc
}

func NewAuditRecordWorker(
	recordService *service.AuditRecordService,
	broker queue.Broker,
	logger *zap.SugaredLogger,
) *AuditRecordWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &AuditRecordWorker{
		recordService: recordService,
		broker:        broker,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (w *AuditRecordWorker) Start() error {
	w.logger.Info("starting audit record worker")

	return w.broker.Subscribe(w.ctx, queue.QueueAuditRecords, w.handleMessage)
}

func (w *AuditRecordWorker) Stop() {
	w.logger.Info("stopping audit record worker")
	w.cancel()
}

func (w *AuditRecordWorker) handleMessage(ctx context.Context, message []byte) error {
	var event domain.AuditRecordEvent
	if err := json.Unmarshal(message, &event); err != nil {
		w.logger.Errorw("failed to unmarshal event", "error", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	w.logger.Infow("processing audit record event",
		"product_id", event.Record.ProductID, "event_type", event.EventType)

	if err := w.recordService.ProcessAuditRecordEvent(ctx, event); err != nil {
		w.logger.Errorw("failed to process audit record event",
			"product_id", event.Record.ProductID, "error", err)
		return err
	}

	return nil
}

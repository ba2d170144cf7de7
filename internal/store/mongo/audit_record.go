package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/Johnhpure/product-audit/internal/domain"
	"github.com/Johnhpure/product-audit/internal/repo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AuditRecordRepository struct {
	collection *mongo.Collection
}

func NewAuditRecordRepository(db *mongo.Database) *AuditRecordRepository {
	return &AuditRecordRepository{
		collection: db.Collection("audit_records"),
	}
}

func (r *AuditRecordRepository) Create(ctx context.Context, record *domain.AuditRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if record.ManualStatus == "" {
		record.ManualStatus = domain.ManualPending
	}

	_, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to create audit record: %w", err)
	}

	return nil
}

func (r *AuditRecordRepository) ExistsByProductID(ctx context.Context, productID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"product_id": productID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check audit record existence: %w", err)
	}

	return count > 0, nil
}

func (r *AuditRecordRepository) List(ctx context.Context, filter repo.AuditRecordFilter) ([]domain.AuditRecord, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := bson.M{}
	if filter.ProductID != "" {
		query["product_id"] = filter.ProductID
	}
	if filter.Stage != "" {
		query["audit_stage"] = filter.Stage
	}
	if filter.Verdict != "" {
		query["verdict"] = filter.Verdict
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit records: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []domain.AuditRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, 0, fmt.Errorf("failed to decode audit records: %w", err)
	}

	return records, total, nil
}

func (r *AuditRecordRepository) UpdateManualStatus(ctx context.Context, id string, status domain.ManualStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid record id: %w", err)
	}

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"manual_status": status}},
	)
	if err != nil {
		return fmt.Errorf("failed to update manual status: %w", err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

func (r *AuditRecordRepository) Statistics(ctx context.Context) (domain.Statistics, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"totals": mongo.Pipeline{
				{{Key: "$group", Value: bson.M{
					"_id":    nil,
					"total":  bson.M{"$sum": 1},
					"avg_ms": bson.M{"$avg": "$ai_processing_time"},
					"rejected": bson.M{"$sum": bson.M{
						"$cond": bson.A{bson.M{"$eq": bson.A{"$verdict", domain.VerdictRejected}}, 1, 0},
					}},
					"passed": bson.M{"$sum": bson.M{
						"$cond": bson.A{bson.M{"$eq": bson.A{"$verdict", domain.VerdictPassed}}, 1, 0},
					}},
				}}},
			},
			"stages": mongo.Pipeline{
				{{Key: "$group", Value: bson.M{
					"_id":   "$audit_stage",
					"count": bson.M{"$sum": 1},
				}}},
			},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("failed to aggregate statistics: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Totals []struct {
			Total    int64   `bson:"total"`
			Rejected int64   `bson:"rejected"`
			Passed   int64   `bson:"passed"`
			AvgMs    float64 `bson:"avg_ms"`
		} `bson:"totals"`
		Stages []struct {
			Stage string `bson:"_id"`
			Count int64  `bson:"count"`
		} `bson:"stages"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return domain.Statistics{}, fmt.Errorf("failed to decode statistics: %w", err)
	}

	stats := domain.Statistics{ByStage: map[string]int64{}}
	if len(results) == 0 {
		return stats, nil
	}

	if len(results[0].Totals) > 0 {
		totals := results[0].Totals[0]
		stats.Total = totals.Total
		stats.Rejected = totals.Rejected
		stats.Passed = totals.Passed
		stats.AvgProcessingMs = totals.AvgMs
	}
	for _, stage := range results[0].Stages {
		if stage.Stage != "" {
			stats.ByStage[stage.Stage] = stage.Count
		}
	}

	return stats, nil
}

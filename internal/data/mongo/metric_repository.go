// Package mongo provides the MongoDB implementation of the metric store.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mediaforge/generation-ledger/internal/domain/metric"
)

const (
	// MetricCollectionName is the name of the metrics collection in MongoDB
	MetricCollectionName = "service_metrics"
)

// MetricRepository implements the metric.Recorder interface for MongoDB.
// Records are insert-only; nothing in the system reads them back.
type MetricRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewMetricRepository creates a new MongoDB metric repository
func NewMetricRepository(logger *slog.Logger, db *mongo.Database) metric.Recorder {
	return &MetricRepository{
		db:     db,
		logger: logger,
	}
}

// Record inserts one metric document
func (r *MetricRepository) Record(ctx context.Context, m metric.Metric) error {
	collection := r.db.Collection(MetricCollectionName)

	if _, err := collection.InsertOne(ctx, m); err != nil {
		r.logger.Error("Failed to record metric",
			"name", m.Name,
			"error", err)
		return fmt.Errorf("failed to record metric: %w", err)
	}

	return nil
}

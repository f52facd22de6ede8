package metric

import (
	"context"
	"time"
)

// Metric is a write-only observability record. Core logic never reads these back;
// they exist for external analysis only.
type Metric struct {
	Name      string         `json:"name" bson:"name"`
	Value     float64        `json:"value" bson:"value"`
	Metadata  map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Service   string         `json:"service" bson:"service"`
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
}

// New builds a metric stamped with the current time
func New(name string, value float64, service string, metadata map[string]any) Metric {
	return Metric{
		Name:      name,
		Value:     value,
		Metadata:  metadata,
		Service:   service,
		Timestamp: time.Now().UTC(),
	}
}

// Recorder persists metrics. Implementations must be safe to call from hot paths:
// a recording failure is logged by the caller, never propagated into business flow.
type Recorder interface {
	Record(ctx context.Context, m Metric) error
}

// NopRecorder discards every metric; used when the metric store is unreachable
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Metric) error { return nil }

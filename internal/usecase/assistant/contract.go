package assistant

import (
	"context"

	"github.com/kailas-cloud/shopassist/internal/domain/record"
)

// RecordSource loads the full, ordered record set.
type RecordSource interface {
	Load(ctx context.Context) ([]record.Record, error)
}

// MatchObserver receives the number of records a query returned. Optional.
type MatchObserver interface {
	Observe(float64)
}

// Package assistant implements the shop assistant query flow: load every post, keep the ones
// matching the user's message.
package assistant

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/domain/query"
	"github.com/kailas-cloud/shopassist/internal/domain/record"
	logpkg "github.com/kailas-cloud/shopassist/internal/logger"
)

// Service answers shop assistant queries against a record source.
type Service struct {
	source  RecordSource
	matches MatchObserver
}

// New creates a Service.
func New(source RecordSource) *Service {
	return &Service{source: source}
}

// WithMatchObserver reports the result size of every successful query to o.
func (s *Service) WithMatchObserver(o MatchObserver) *Service {
	s.matches = o
	return s
}

// Search loads all records and returns those whose title or description contains
// userMessage, case-insensitively, in source order. An empty message returns every record.
func (s *Service) Search(ctx context.Context, userMessage string) ([]record.Record, error) {
	records, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	q := query.New(userMessage)
	matched := q.Filter(records)

	if s.matches != nil {
		s.matches.Observe(float64(len(matched)))
	}
	logpkg.FromContext(ctx).Debug("query evaluated",
		zap.Int("loaded", len(records)),
		zap.Int("matched", len(matched)),
		zap.Bool("filtered", !q.IsEmpty()),
	)
	return matched, nil
}

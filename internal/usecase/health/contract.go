package health

import "context"

// SourceChecker checks that the record source is available.
type SourceChecker interface {
	HealthCheck(ctx context.Context) error
}

// AssetsChecker checks that the static asset directory is available.
type AssetsChecker interface {
	HealthCheck(ctx context.Context) error
}

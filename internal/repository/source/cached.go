package source

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/domain/record"
)

// Loader loads the full record set of a source.
type Loader interface {
	Load(ctx context.Context) ([]record.Record, error)
}

type stamp struct {
	modTime time.Time
	size    int64
}

func (s stamp) equal(o stamp) bool {
	return s.size == o.size && s.modTime.Equal(o.modTime)
}

// CachedReader keeps the last loaded record set and reloads it when the
// file's modification time or size changes.
// Returned slices are shared between callers and must not be modified.
type CachedReader struct {
	inner      Loader
	path       string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger

	mu      sync.RWMutex
	stamp   stamp
	records []record.Record
	loaded  bool
}

// NewCached creates a caching decorator over inner for the file at path.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func NewCached(inner Loader, path string, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *CachedReader {
	return &CachedReader{
		inner:      inner,
		path:       path,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Load returns the cached records while the file is unchanged, otherwise reloads.
func (c *CachedReader) Load(ctx context.Context) ([]record.Record, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return nil, domain.NewSourceError(c.path, fmt.Errorf("stat: %w", err))
	}
	current := stamp{modTime: info.ModTime(), size: info.Size()}

	if records, ok := c.lookup(current); ok {
		c.incCache("hit")
		return records, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another request may have reloaded while we waited for the lock.
	if c.loaded && c.stamp.equal(current) {
		c.incCache("hit")
		return c.records, nil
	}
	c.incCache("miss")

	records, err := c.inner.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload source: %w", err)
	}

	c.stamp = current
	c.records = records
	c.loaded = true
	c.logger.Info("source cache refreshed",
		zap.String("path", c.path),
		zap.Int("records", len(records)),
		zap.Time("mod_time", current.modTime),
	)
	return records, nil
}

// Invalidate drops the cached record set.
func (c *CachedReader) Invalidate() {
	c.mu.Lock()
	c.records = nil
	c.loaded = false
	c.mu.Unlock()
}

func (c *CachedReader) lookup(current stamp) ([]record.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded || !c.stamp.equal(current) {
		return nil, false
	}
	return c.records, true
}

func (c *CachedReader) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// Package source reads marketplace post records from a Parquet file.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/domain/record"
	logpkg "github.com/kailas-cloud/shopassist/internal/logger"
)

// DefaultBatchSize is the number of rows pulled from a row group per read.
const DefaultBatchSize = 1000

// Metrics holds the collectors a Reader reports to. Nil fields are skipped.
type Metrics struct {
	LoadDuration  prometheus.Observer
	RecordsLoaded prometheus.Gauge
	ErrorsTotal   prometheus.Counter
}

// Reader loads every record of a Parquet file. Each Load opens its own read
// session, so concurrent calls do not share state.
type Reader struct {
	path      string
	batchSize int
	metrics   Metrics
}

// NewReader creates a Reader for the file at path.
func NewReader(path string) *Reader {
	return &Reader{path: filepath.Clean(path), batchSize: DefaultBatchSize}
}

// WithBatchSize sets the number of rows read per batch.
func (r *Reader) WithBatchSize(n int) *Reader {
	if n > 0 {
		r.batchSize = n
	}
	return r
}

// WithMetrics sets the collectors to report load results to.
func (r *Reader) WithMetrics(m Metrics) *Reader {
	r.metrics = m
	return r
}

// Path returns the cleaned source path.
func (r *Reader) Path() string { return r.path }

// Load opens the file, reads all row groups in order and closes it.
// Errors wrap domain.ErrSourceRead.
func (r *Reader) Load(ctx context.Context) ([]record.Record, error) {
	start := time.Now()
	ctx = logpkg.With(ctx, zap.String("source_path", r.path))
	log := logpkg.FromContext(ctx)

	records, err := r.load(ctx)
	if err != nil {
		if r.metrics.ErrorsTotal != nil {
			r.metrics.ErrorsTotal.Inc()
		}
		log.Error("source load failed", zap.Error(err))
		return nil, domain.NewSourceError(r.path, err)
	}

	elapsed := time.Since(start)
	if r.metrics.LoadDuration != nil {
		r.metrics.LoadDuration.Observe(elapsed.Seconds())
	}
	if r.metrics.RecordsLoaded != nil {
		r.metrics.RecordsLoaded.Set(float64(len(records)))
	}
	log.Debug("source loaded",
		zap.Int("records", len(records)),
		zap.Duration("duration", elapsed),
	)
	return records, nil
}

// HealthCheck reports whether the source file exists and is a regular file.
func (r *Reader) HealthCheck(_ context.Context) error {
	info, err := os.Stat(r.path)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("source %s is not a regular file", r.path)
	}
	return nil
}

func (r *Reader) load(ctx context.Context) ([]record.Record, error) {
	h, err := openParquet(r.path)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	rc, err := newReconstructor(h.pf.Schema())
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	records := make([]record.Record, 0, h.pf.NumRows())
	for i, rg := range h.pf.RowGroups() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("read cancelled: %w", err)
		}
		records, err = r.readRowGroup(rg, rc, records)
		if err != nil {
			return nil, fmt.Errorf("row group %d: %w", i, err)
		}
	}
	return records, nil
}

func (r *Reader) readRowGroup(
	rg parquet.RowGroup, rc *reconstructor, records []record.Record,
) ([]record.Record, error) {
	rows := parquet.NewRowGroupReader(rg)
	defer func() { _ = rows.Close() }()

	buf := make([]parquet.Row, r.batchSize)
	for {
		n, readErr := rows.ReadRows(buf)
		for i := 0; i < n; i++ {
			rec, err := rc.record(buf[i])
			if err != nil {
				return records, fmt.Errorf("row %d: %w", len(records), err)
			}
			records = append(records, rec)
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return records, nil
			}
			return records, fmt.Errorf("read rows: %w", readErr)
		}
		if n == 0 {
			return records, nil
		}
	}
}

// parquetHandle wraps parquet.File + underlying os.File for proper cleanup.
type parquetHandle struct {
	pf   *parquet.File
	file *os.File
}

func (h *parquetHandle) Close() {
	_ = h.file.Close()
}

func openParquet(path string) (*parquetHandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	return &parquetHandle{pf: pf, file: f}, nil
}

package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Fillereine/MathE/internal/clean"
	"github.com/Fillereine/MathE/internal/ingest"
	"github.com/Fillereine/MathE/internal/logging"
	"github.com/Fillereine/MathE/internal/metrics"
	"github.com/Fillereine/MathE/internal/table"
)

// DefaultJobTimeout is the maximum duration for one pipeline run.
const DefaultJobTimeout = 2 * time.Minute

// Options configures a Service. The zero value is usable.
type Options struct {
	// Cache, when set, memoizes parsed tables by file content.
	Cache ingest.Cache

	// MaxConcurrent and MaxWait configure the job limiter.
	MaxConcurrent int
	MaxWait       time.Duration

	// Timeout bounds one Process call, including the wait for a slot.
	Timeout time.Duration

	// Metrics may be nil.
	Metrics *metrics.Metrics

	// PreviewRows defaults to DefaultPreviewRows.
	PreviewRows int

	// Loader replaces ingest.Default. Tests use it to inject failures.
	Loader ingest.Loader
}

// Service runs the load and clean pipeline. It holds no per-file state, so
// one Service is shared by every request.
type Service struct {
	loader      ingest.Loader
	metrics     *metrics.Metrics
	limiter     *Limiter
	previewRows int
	timeout     time.Duration
}

// NewService creates a Service from opts.
func NewService(opts Options) *Service {
	loader := opts.Loader
	if loader == nil {
		loader = ingest.Default
	}
	if opts.Cache != nil {
		loader = ingest.NewCachedLoader(loader, opts.Cache, opts.Metrics.ObserveCache)
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultJobTimeout
	}
	return &Service{
		loader:      loader,
		metrics:     opts.Metrics,
		limiter:     NewLimiter(opts.MaxConcurrent, opts.MaxWait),
		previewRows: opts.PreviewRows,
		timeout:     opts.Timeout,
	}
}

// Limiter returns the job limiter so the server can drain it on shutdown.
func (s *Service) Limiter() *Limiter {
	return s.limiter
}

// LimiterStatus returns the current limiter state.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// Load parses f. A nil file yields a nil table, a nil report and no error.
func (s *Service) Load(ctx context.Context, f *ingest.RawFile) (*table.Table, *ingest.Report, error) {
	if f == nil {
		return nil, nil, nil
	}
	logger := logging.WithFields(ctx, "file", f.Name, "bytes", len(f.Data)).With(clientAttrs(ctx)...)
	start := time.Now()

	t, rep, err := s.loader.LoadWithReport(ctx, f)
	s.metrics.Since("load", start)
	if err != nil {
		s.metrics.ObserveLoad(formatLabel(f.Name), "error")
		logger.Warn("load failed", "error", err)
		return nil, nil, err
	}

	s.metrics.ObserveLoad(string(rep.Format), "ok")
	if !rep.Cached {
		s.metrics.ObserveReport(rep.SkippedRows, rep.Encoding == ingest.EncodingLatin1)
	}
	if rep.SkippedRows > 0 {
		logger.Warn("skipped malformed rows", "count", rep.SkippedRows)
	}
	logger.Info("file loaded",
		"format", rep.Format,
		"encoding", rep.Encoding,
		"rows", t.RowCount(),
		"columns", t.ColumnCount(),
		"cached", rep.Cached,
		"duration", time.Since(start),
	)
	return t, rep, nil
}

// Clean runs the cleaning steps on a copy of t. A nil table yields nil.
func (s *Service) Clean(ctx context.Context, t *table.Table, cfg clean.Config) *clean.Result {
	if t == nil {
		return nil
	}
	start := time.Now()
	res := clean.Clean(t, cfg)
	s.metrics.Since("clean", start)

	codes := make([]string, len(res.Warnings))
	for i, w := range res.Warnings {
		codes[i] = string(w.Code)
	}
	s.metrics.ObserveClean(len(res.Dropped), codes)

	logger := logging.FromContext(ctx)
	for _, w := range res.Warnings {
		logger.Warn("cleaning warning", "code", w.Code, "column", w.Column, "detail", w.Message)
	}
	logger.Info("table cleaned",
		"threshold", res.Threshold,
		"dropped", len(res.Dropped),
		"columns", res.Table.ColumnCount(),
	)
	return res
}

// Process loads f and cleans it while holding a limiter slot. Each run gets
// a job ID that is attached to its log entries. A nil file yields a nil
// outcome and no error.
func (s *Service) Process(ctx context.Context, f *ingest.RawFile, cfg clean.Config) (*Outcome, error) {
	if f == nil {
		return nil, nil
	}

	jobID := uuid.NewString()
	ctx = logging.WithJobID(ctx, jobID)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out *Outcome
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		s.metrics.JobStarted()
		defer s.metrics.JobFinished()

		start := time.Now()
		t, rep, err := s.Load(ctx, f)
		if err != nil {
			return err
		}
		res := s.Clean(ctx, t, cfg)
		out = &Outcome{
			JobID:    jobID,
			Original: t,
			Cleaned:  res.Table,
			Report:   rep,
			Result:   res,
			Summary:  summarize(t, rep, res, time.Since(start)),
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTooManyJobs) {
			logging.FromContext(ctx).Warn("job rejected", "file", f.Name, "limiter", s.limiter.Status())
		}
		return nil, fmt.Errorf("process %s: %w", f.Name, err)
	}
	return out, nil
}

// Profile describes t for display. rows <= 0 uses the configured preview size.
// A nil table yields nil.
func (s *Service) Profile(t *table.Table, rows int) *Profile {
	if t == nil {
		return nil
	}
	if rows <= 0 {
		rows = s.previewRows
	}
	missing := map[string]int{}
	for name, n := range t.MissingCounts() {
		if n > 0 {
			missing[name] = n
		}
	}
	return &Profile{
		Rows:    t.RowCount(),
		Columns: t.ColumnCount(),
		Preview: NewPreview(t, rows),
		Info:    t.Info(),
		Missing: missing,
	}
}

// Inspect loads f and profiles it without cleaning.
func (s *Service) Inspect(ctx context.Context, f *ingest.RawFile, rows int) (*Profile, error) {
	t, rep, err := s.Load(ctx, f)
	if err != nil {
		return nil, err
	}
	p := s.Profile(t, rows)
	if p != nil {
		p.Report = rep
	}
	return p, nil
}

// Filter returns the rows of t whose column contains value.
func (s *Service) Filter(ctx context.Context, t *table.Table, column, value string, opts table.FilterOptions) (*table.Table, error) {
	out, err := t.Filter(column, value, opts)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug("table filtered",
		slog.String("column", column),
		slog.Int("matched", out.RowCount()),
	)
	return out, nil
}

// Histogram bins the values of a numeric column.
func (s *Service) Histogram(t *table.Table, column string, bins int) ([]table.Bin, error) {
	return t.Histogram(column, bins)
}

func summarize(t *table.Table, rep *ingest.Report, res *clean.Result, d time.Duration) Summary {
	sum := Summary{
		RowsIn:     t.RowCount(),
		ColumnsIn:  t.ColumnCount(),
		RowsOut:    res.Table.RowCount(),
		ColumnsOut: res.Table.ColumnCount(),
		Threshold:  res.Threshold,
		MinValues:  res.MinValues,
		Dropped:    res.Dropped,
		Imputed:    res.Imputed,
		Warnings:   res.Warnings,
		Duration:   d,
	}
	if rep != nil {
		sum.SkippedRows = rep.SkippedRows
	}
	for name := range res.Encodings {
		sum.Encoded = append(sum.Encoded, name)
	}
	sort.Strings(sum.Encoded)
	for name := range res.Stats {
		sum.Normalized = append(sum.Normalized, name)
	}
	sort.Strings(sum.Normalized)
	return sum
}

func formatLabel(name string) string {
	f, err := ingest.DetectFormat(name)
	if err != nil {
		return "unknown"
	}
	return string(f)
}

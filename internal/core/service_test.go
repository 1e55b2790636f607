package core

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Fillereine/MathE/internal/clean"
	"github.com/Fillereine/MathE/internal/ingest"
	"github.com/Fillereine/MathE/internal/metrics"
	"github.com/Fillereine/MathE/internal/table"
)

const sampleCSV = "a,b,c\n1,x,\n2,y,\n3,x,\n4,,\n5,y,9\n"

func sampleFile() *ingest.RawFile {
	return &ingest.RawFile{Name: "sample.csv", Data: []byte(sampleCSV)}
}

func TestServiceProcess(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(Options{Metrics: m})

	out, err := svc.Process(context.Background(), sampleFile(), clean.DefaultConfig())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out.JobID == "" {
		t.Error("JobID is empty")
	}

	if got := out.Original.ColumnNames(); len(got) != 3 {
		t.Errorf("original columns = %v, want a, b, c", got)
	}
	if got := out.Cleaned.ColumnNames(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("cleaned columns = %v, want [a b]", got)
	}

	s := out.Summary
	if s.RowsIn != 5 || s.RowsOut != 5 || s.ColumnsIn != 3 || s.ColumnsOut != 2 {
		t.Errorf("summary shape = %+v", s)
	}
	if s.MinValues != 3 {
		t.Errorf("MinValues = %d, want 3", s.MinValues)
	}
	if len(s.Dropped) != 1 || s.Dropped[0] != "c" {
		t.Errorf("Dropped = %v, want [c]", s.Dropped)
	}
	if len(s.Encoded) != 1 || s.Encoded[0] != "b" {
		t.Errorf("Encoded = %v, want [b]", s.Encoded)
	}
	if len(s.Normalized) != 2 {
		t.Errorf("Normalized = %v, want [a b]", s.Normalized)
	}

	// The original keeps its missing cells.
	c, err := out.Original.Column("b")
	if err != nil {
		t.Fatal(err)
	}
	if c.MissingCount() != 1 {
		t.Errorf("original b missing = %d, want 1", c.MissingCount())
	}

	if got := testutil.ToFloat64(m.Loads.WithLabelValues("csv", "ok")); got != 1 {
		t.Errorf("loads{csv,ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ColumnsDropped); got != 1 {
		t.Errorf("columns dropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ActiveJobs); got != 0 {
		t.Errorf("active jobs = %v, want 0", got)
	}
}

func TestServiceProcessNil(t *testing.T) {
	svc := NewService(Options{})
	out, err := svc.Process(context.Background(), nil, clean.DefaultConfig())
	if out != nil || err != nil {
		t.Errorf("Process(nil) = %v, %v; want nil, nil", out, err)
	}
	tbl, rep, err := svc.Load(context.Background(), nil)
	if tbl != nil || rep != nil || err != nil {
		t.Errorf("Load(nil) = %v, %v, %v; want nil", tbl, rep, err)
	}
	if res := svc.Clean(context.Background(), nil, clean.DefaultConfig()); res != nil {
		t.Errorf("Clean(nil) = %v, want nil", res)
	}
	if p := svc.Profile(nil, 5); p != nil {
		t.Errorf("Profile(nil) = %v, want nil", p)
	}
}

func TestServiceProcessUnsupported(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(Options{Metrics: m})

	_, err := svc.Process(context.Background(), &ingest.RawFile{Name: "notes.txt"}, clean.DefaultConfig())
	if !errors.Is(err, ingest.ErrUnsupportedFormat) {
		t.Fatalf("Process() error = %v, want ErrUnsupportedFormat", err)
	}
	if MapError(err).Code != "FILE002" {
		t.Errorf("MapError().Code = %q, want FILE002", MapError(err).Code)
	}
	if got := testutil.ToFloat64(m.Loads.WithLabelValues("unknown", "error")); got != 1 {
		t.Errorf("loads{unknown,error} = %v, want 1", got)
	}
}

func TestServiceCacheHit(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	var calls int
	var mu sync.Mutex
	loader := ingest.Func(func(ctx context.Context, f *ingest.RawFile) (*table.Table, *ingest.Report, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return ingest.LoadWithReport(ctx, f)
	})
	svc := NewService(Options{Loader: loader, Cache: ingest.NewMemoryCache(4), Metrics: m})

	ctx := context.Background()
	if _, _, err := svc.Load(ctx, sampleFile()); err != nil {
		t.Fatal(err)
	}
	_, rep, err := svc.Load(ctx, sampleFile())
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Cached {
		t.Error("second load not served from cache")
	}
	if calls != 1 {
		t.Errorf("loader calls = %d, want 1", calls)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
}

func TestServiceBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	loader := ingest.Func(func(ctx context.Context, f *ingest.RawFile) (*table.Table, *ingest.Report, error) {
		close(started)
		<-release
		return ingest.LoadWithReport(ctx, f)
	})
	svc := NewService(Options{Loader: loader, MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Process(context.Background(), sampleFile(), clean.DefaultConfig())
		done <- err
	}()
	<-started

	_, err := svc.Process(context.Background(), sampleFile(), clean.DefaultConfig())
	if !errors.Is(err, ErrTooManyJobs) {
		t.Errorf("second Process() error = %v, want ErrTooManyJobs", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first Process() error = %v", err)
	}
	if st := svc.LimiterStatus(); st.Active != 0 || st.Available != 1 {
		t.Errorf("LimiterStatus() = %+v, want idle", st)
	}
}

func TestServiceInspect(t *testing.T) {
	svc := NewService(Options{PreviewRows: 2})

	p, err := svc.Inspect(context.Background(), sampleFile(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.Rows != 5 || p.Columns != 3 {
		t.Errorf("shape = %dx%d, want 5x3", p.Rows, p.Columns)
	}
	if len(p.Preview.Rows) != 2 {
		t.Errorf("preview rows = %d, want 2", len(p.Preview.Rows))
	}
	if p.Missing["b"] != 1 || p.Missing["c"] != 4 {
		t.Errorf("Missing = %v, want b:1 c:4", p.Missing)
	}
	if _, ok := p.Missing["a"]; ok {
		t.Error("Missing lists a complete column")
	}
	if p.Report == nil || p.Report.Format != ingest.FormatCSV {
		t.Errorf("Report = %+v, want csv", p.Report)
	}
}

func TestServiceFilterAndHistogram(t *testing.T) {
	svc := NewService(Options{})
	ctx := context.Background()
	tbl, _, err := svc.Load(ctx, sampleFile())
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.Filter(ctx, tbl, "b", "X", table.FilterOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got.RowCount() != 2 {
		t.Errorf("Filter rows = %d, want 2", got.RowCount())
	}

	bins, err := svc.Histogram(tbl, "a", 2)
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != 5 {
		t.Errorf("histogram total = %d, want 5", total)
	}
	if _, err := svc.Histogram(tbl, "b", 2); !errors.Is(err, table.ErrNotNumeric) {
		t.Errorf("Histogram(text) error = %v, want ErrNotNumeric", err)
	}
}

func TestServiceCleanedValuesStandardized(t *testing.T) {
	svc := NewService(Options{})
	out, err := svc.Process(context.Background(), sampleFile(), clean.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	c, err := out.Cleaned.Column("a")
	if err != nil {
		t.Fatal(err)
	}
	var sum, sq float64
	for i := 0; i < c.Len(); i++ {
		v, _ := c.FloatAt(i)
		sum += v
		sq += v * v
	}
	n := float64(c.Len())
	if math.Abs(sum/n) > 1e-9 || math.Abs(sq/n-1) > 1e-9 {
		t.Errorf("column a mean = %v, var = %v; want 0 and 1", sum/n, sq/n)
	}
}

func TestServiceProcessExtremeValues(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"near overflow", "a\n1e308\n1.5e308\n-1e308\n"},
		{"infinity", "a\n1\ninf\n3\n"},
	}
	svc := NewService(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &ingest.RawFile{Name: "extreme.csv", Data: []byte(tt.csv)}
			out, err := svc.Process(context.Background(), f, clean.DefaultConfig())
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			c, err := out.Cleaned.Column("a")
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < c.Len(); i++ {
				v, ok := c.FloatAt(i)
				if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
					t.Errorf("a[%d] = %v, %v; want a finite value", i, v, ok)
				}
			}
		})
	}
}

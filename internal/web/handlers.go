package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Fillereine/MathE/internal/clean"
	"github.com/Fillereine/MathE/internal/core"
	"github.com/Fillereine/MathE/internal/export"
	"github.com/Fillereine/MathE/internal/ingest"
	"github.com/Fillereine/MathE/internal/table"
)

// DefaultHistogramBins is used when a histogram request names no bin count.
const DefaultHistogramBins = 10

// DefaultMaxHistogramBins caps bins when the config sets no limit.
const DefaultMaxHistogramBins = 1000

// CleanResponse is the body of POST /api/clean.
type CleanResponse struct {
	JobID     string                        `json:"job_id"`
	Summary   core.Summary                  `json:"summary"`
	Report    *ingest.Report                `json:"report"`
	Encodings map[string]*clean.EncodingMap `json:"encodings"`
	Original  core.Preview                  `json:"original"`
	Cleaned   core.Preview                  `json:"cleaned"`
}

// FilterResponse is the body of POST /api/filter.
type FilterResponse struct {
	Column  string       `json:"column"`
	Value   string       `json:"value"`
	Matched int          `json:"matched"`
	Preview core.Preview `json:"preview"`
}

// HistogramResponse is the body of POST /api/histogram.
type HistogramResponse struct {
	Column string      `json:"column"`
	Bins   []table.Bin `json:"bins"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]any{
		"status":  "ok",
		"limiter": s.service.LimiterStatus(),
	})
}

// handleStatus returns the current state of the job limiter.
// Used for monitoring and to check if the system can accept more files.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.service.LimiterStatus())
}

// handleInspect loads a file and returns its preview, column info and
// missing counts without cleaning it.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	f, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	rows := parseIntParam(r, "rows", s.cfg.Upload.PreviewRows)
	profile, err := s.service.Inspect(WithRequestMetadata(r.Context(), r), f, rows)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, profile)
}

// handleClean runs the whole pipeline and returns what changed.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	out, ok := s.process(w, r)
	if !ok {
		return
	}

	rows := parseIntParam(r, "rows", s.cfg.Upload.PreviewRows)
	writeJSON(w, r, CleanResponse{
		JobID:     out.JobID,
		Summary:   out.Summary,
		Report:    out.Report,
		Encodings: out.Result.Encodings,
		Original:  core.NewPreview(out.Original, rows),
		Cleaned:   core.NewPreview(out.Cleaned, rows),
	})
}

// handleDownload runs the pipeline and returns the cleaned or original
// table as a CSV attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	which := r.URL.Query().Get("which")
	if which != "" && which != "cleaned" && which != "original" {
		s.respondError(w, r, fmt.Errorf("invalid parameter which=%q", which), http.StatusBadRequest)
		return
	}

	sep := r.URL.Query().Get("sep")
	if sep == "" {
		sep = s.cfg.Cleaning.Delimiter
	}
	delim, err := export.ParseDelimiter(sep)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	out, ok := s.process(w, r)
	if !ok {
		return
	}

	t, filename := out.Cleaned, export.CleanedFileName
	if which == "original" {
		t, filename = out.Original, export.OriginalFileName
	}

	bom, _ := strconv.ParseBool(r.URL.Query().Get("bom"))
	data, err := export.Bytes(t, export.Options{Delimiter: delim, BOM: bom})
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("X-Job-ID", out.JobID)
	w.Write(data)
}

// handleFilter returns the rows of the loaded table whose column contains value.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	f, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	column := r.FormValue("column")
	value := r.FormValue("value")
	caseSensitive, _ := strconv.ParseBool(r.FormValue("case_sensitive"))

	ctx := WithRequestMetadata(r.Context(), r)
	t, _, err := s.service.Load(ctx, f)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	matched, err := s.service.Filter(ctx, t, column, value, table.FilterOptions{CaseSensitive: caseSensitive})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	rows := parseIntParam(r, "rows", s.cfg.Upload.PreviewRows)
	writeJSON(w, r, FilterResponse{
		Column:  column,
		Value:   value,
		Matched: matched.RowCount(),
		Preview: core.NewPreview(matched, rows),
	})
}

// handleHistogram bins a numeric column of the loaded table.
func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	f, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	column := r.FormValue("column")
	bins := parseIntParam(r, "bins", DefaultHistogramBins)
	maxBins := s.cfg.Upload.MaxHistogramBins
	if maxBins <= 0 {
		maxBins = DefaultMaxHistogramBins
	}
	if bins > maxBins {
		s.respondError(w, r, fmt.Errorf("invalid parameter: bins %d exceeds the limit of %d", bins, maxBins), http.StatusBadRequest)
		return
	}

	t, _, err := s.service.Load(WithRequestMetadata(r.Context(), r), f)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	hist, err := s.service.Histogram(t, column, bins)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, HistogramResponse{Column: column, Bins: hist})
}

// process reads the upload and runs the pipeline. On failure it writes the
// error response and returns false.
func (s *Server) process(w http.ResponseWriter, r *http.Request) (*core.Outcome, bool) {
	f, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return nil, false
	}

	cfg, err := s.cleanConfig(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return nil, false
	}

	out, err := s.service.Process(WithRequestMetadata(r.Context(), r), f, cfg)
	if err != nil {
		s.respondError(w, r, err, 0)
		return nil, false
	}
	return out, true
}

// readUpload reads the multipart "file" field into memory.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*ingest.RawFile, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
			return nil, fmt.Errorf("file too large: %w", err)
		}
		return nil, fmt.Errorf("no file provided: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("no file provided: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", header.Filename, err)
	}
	return &ingest.RawFile{Name: header.Filename, Data: data}, nil
}

// cleanConfig builds the cleaning config from the "threshold" parameter,
// falling back to the configured default.
func (s *Server) cleanConfig(r *http.Request) (clean.Config, error) {
	cfg := clean.Config{MissingThreshold: s.cfg.Cleaning.MissingThreshold}
	v := strings.TrimSpace(r.FormValue("threshold"))
	if v == "" {
		return cfg, nil
	}
	t, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return cfg, fmt.Errorf("invalid threshold %q", v)
	}
	cfg.MissingThreshold = t
	return cfg, nil
}

// parseIntParam parses a positive integer form or query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.FormValue(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

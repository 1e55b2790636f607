package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Fillereine/MathE/internal/export"
)

// Load builds a Config from the environment. Every field is tagged with the
// variable it reads (`env`) and the value used when that variable is empty
// (`default`). All malformed values are reported together, followed by
// Validate.
func Load() (*Config, error) {
	cfg := &Config{}

	var bad []error
	fill(reflect.ValueOf(cfg).Elem(), &bad)
	if len(bad) > 0 {
		return nil, fmt.Errorf("config load: %w", errors.Join(bad...))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// fill walks the section structs and assigns each tagged field.
func fill(v reflect.Value, bad *[]error) {
	for i := 0; i < v.NumField(); i++ {
		sf := v.Type().Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			fill(fv, bad)
			continue
		}

		name, ok := sf.Tag.Lookup("env")
		if !ok {
			continue
		}
		raw := os.Getenv(name)
		if raw == "" {
			raw = sf.Tag.Get("default")
		}
		if raw == "" {
			continue
		}
		if err := assign(fv, raw); err != nil {
			*bad = append(*bad, fmt.Errorf("%s=%q: %w", name, raw, err))
		}
	}
}

// assign parses raw into fv according to the field's type.
func assign(fv reflect.Value, raw string) error {
	if fv.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return errors.New("not an integer")
		}
		fv.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return errors.New("not a number")
		}
		fv.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.New("not a boolean")
		}
		fv.SetBool(b)
	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("cannot load a slice of %s", fv.Type().Elem())
		}
		fv.Set(reflect.ValueOf(splitList(raw)))
	default:
		return fmt.Errorf("cannot load a %s", fv.Kind())
	}
	return nil
}

// splitList splits a comma-separated value, dropping blank items.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// problems collects validation messages across sections.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// Validate checks every section and returns all problems at once.
func (c *Config) Validate() error {
	var p problems
	c.Server.validate(&p)
	c.Upload.validate(&p)
	c.Cleaning.validate(&p)
	c.Cache.validate(&p)
	c.Rate.validate(&p)
	c.Security.validate(&p)
	c.Logging.validate(&p)

	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
}

func (s *ServerConfig) validate(p *problems) {
	if s.Port < 1 || s.Port > 65535 {
		p.addf("SERVER_PORT (%d) must be 1-65535", s.Port)
	}
	if s.ReadTimeout < 0 {
		p.addf("SERVER_READ_TIMEOUT must be non-negative")
	}
	if s.ShutdownTimeout <= 0 {
		p.addf("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
}

func (u *UploadConfig) validate(p *problems) {
	positive := []struct {
		env string
		v   int64
	}{
		{"UPLOAD_MAX_FILE_SIZE", u.MaxFileSize},
		{"UPLOAD_MAX_CONCURRENT", int64(u.MaxConcurrent)},
		{"UPLOAD_MAX_WAIT_TIME", int64(u.MaxWaitTime)},
		{"UPLOAD_TIMEOUT", int64(u.Timeout)},
		{"UPLOAD_PREVIEW_ROWS", int64(u.PreviewRows)},
		{"UPLOAD_MAX_HISTOGRAM_BINS", int64(u.MaxHistogramBins)},
	}
	for _, f := range positive {
		if f.v <= 0 {
			p.addf("%s must be positive", f.env)
		}
	}
}

func (c *CleaningConfig) validate(p *problems) {
	if t := c.MissingThreshold; math.IsNaN(t) || t < 0 || t > 1 {
		p.addf("CLEAN_MISSING_THRESHOLD (%v) must be between 0 and 1", t)
	}
	if _, err := export.ParseDelimiter(c.Delimiter); err != nil {
		p.addf("EXPORT_DELIMITER: %v", err)
	}
}

func (c *CacheConfig) validate(p *problems) {
	if c.Enabled && c.MaxEntries <= 0 {
		p.addf("CACHE_MAX_ENTRIES must be positive when the cache is enabled")
	}
}

func (r *RateLimitConfig) validate(p *problems) {
	if !r.Enabled {
		return
	}
	if r.RequestsPerMinute <= 0 {
		p.addf("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if r.UploadLimit <= 0 {
		p.addf("RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}
}

func (s *SecurityConfig) validate(p *problems) {
	if s.RequireAPIKey && len(s.APIKeys) == 0 {
		p.addf("REQUIRE_API_KEY is set but API_KEYS is empty")
	}
}

func (l *LoggingConfig) validate(p *problems) {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		p.addf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		p.addf("LOG_FORMAT (%q) must be one of: text, json", l.Format)
	}
}

// String renders the config for the startup log. API keys are replaced by
// their count.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: {Host: %q, Port: %d}, "+
		"Upload: {MaxFileSize: %d, MaxConcurrent: %d, MaxHistogramBins: %d}, "+
		"Cleaning: {MissingThreshold: %v, Delimiter: %q}, "+
		"Cache: {Enabled: %v, MaxEntries: %d}, "+
		"Rate: {Enabled: %v, RequestsPerMinute: %d, UploadLimit: %d}, "+
		"Security: {RequireAPIKey: %v, APIKeys: [MASKED x%d]}, "+
		"Logging: {Level: %q, Format: %q}}",
		c.Server.Host, c.Server.Port,
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Upload.MaxHistogramBins,
		c.Cleaning.MissingThreshold, c.Cleaning.Delimiter,
		c.Cache.Enabled, c.Cache.MaxEntries,
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.UploadLimit,
		c.Security.RequireAPIKey, len(c.Security.APIKeys),
		c.Logging.Level, c.Logging.Format,
	)
}

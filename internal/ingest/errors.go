package ingest

import (
	"errors"
	"fmt"
)

// Kind categorizes an ingestion failure.
type Kind int

const (
	KindUnsupportedFormat Kind = iota + 1
	KindParse
	KindEncodingFallbackExhausted
)

func (k Kind) String() string {
	switch k {
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	case KindParse:
		return "ParseError"
	case KindEncodingFallbackExhausted:
		return "EncodingFallbackExhausted"
	default:
		return "Unknown"
	}
}

// Sentinel errors for errors.Is checks.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrParse             = errors.New("parse error")
)

// IngestError is returned by Load for every failure. Its message is suitable
// for direct display to the user.
type IngestError struct {
	Kind  Kind
	File  string
	Cause error
}

func (e *IngestError) Error() string {
	switch e.Kind {
	case KindUnsupportedFormat:
		return fmt.Sprintf("unsupported format %q: use CSV, Excel (.xlsx) or JSON", e.File)
	case KindEncodingFallbackExhausted:
		return fmt.Sprintf("parse error in %q: could not decode as UTF-8 or Latin-1: %v", e.File, e.Cause)
	default:
		if e.Cause == nil {
			return fmt.Sprintf("parse error in %q", e.File)
		}
		return fmt.Sprintf("parse error in %q: %v", e.File, e.Cause)
	}
}

func (e *IngestError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's kind. An exhausted encoding
// fallback counts as a parse error.
func (e *IngestError) Is(target error) bool {
	switch target {
	case ErrUnsupportedFormat:
		return e.Kind == KindUnsupportedFormat
	case ErrParse:
		return e.Kind == KindParse || e.Kind == KindEncodingFallbackExhausted
	}
	return false
}

func unsupported(name string) error {
	return &IngestError{Kind: KindUnsupportedFormat, File: name}
}

func parseErr(name string, cause error) error {
	return &IngestError{Kind: KindParse, File: name, Cause: cause}
}

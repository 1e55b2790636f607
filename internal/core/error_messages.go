package core

// # Error Codes Reference
//
// User-facing messages carry a code that users can quote to support.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	          Action: Remove unused columns or rows and upload again
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Unsupported format: Only CSV, Excel (.xlsx) and JSON files are supported
//	          Action: Save the file as .csv, .xlsx or .json
//	          Match: ingest.ErrUnsupportedFormat, "unsupported format"
//
//	FILE003 - Encoding error: File could not be decoded as UTF-8 or Latin-1
//	          Action: Save the file with UTF-8 encoding
//	          Patterns: "could not decode"
//
//	FILE004 - No file: No file was selected
//	          Action: Choose a file to upload
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The file has no header row
//	          Action: Upload a file with a header row and data
//	          Patterns: "no columns to parse", "empty file"
//
// # Parse Errors (PARSE001-PARSE099)
//
//	PARSE001 - Parse error: The file content could not be read
//	           Action: Check that the file is not damaged and matches its extension
//	           Match: ingest.ErrParse, "parse error"
//
// # Cleaning (CLEAN001-CLEAN099)
//
//	CLEAN001 - No numeric columns: Nothing was left to normalize
//	           Action: Lower the missing-value threshold or add numeric data
//	           Patterns: "no numeric columns"
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Column not found
//	COL002 - Column is not numeric
//	COL003 - Invalid bin count
//
// # Job and Request Errors
//
//	JOB001 - System busy: Too many files are being processed
//	REQ001 - Request cancelled ("context canceled")
//	REQ002 - Request timed out ("context deadline exceeded", "timeout")
//	REQ003 - Invalid parameter ("invalid threshold", "invalid separator", "invalid parameter")
//	RATE001 - Too many requests ("rate limit")
//	AUTH001 - Missing or invalid API key ("unauthorized")
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// Sentinel errors are checked first with errors.Is. Otherwise patterns are
// matched case-insensitively using strings.Contains and the first match wins,
// so more specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Fillereine/MathE/internal/ingest"
	"github.com/Fillereine/MathE/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgUnsupported = UserMessage{
		Message: "Only CSV, Excel (.xlsx) and JSON files are supported",
		Action:  "Save the file as .csv, .xlsx or .json",
		Code:    "FILE002",
	}
	msgEncoding = UserMessage{
		Message: "File could not be decoded as UTF-8 or Latin-1",
		Action:  "Save the file with UTF-8 encoding",
		Code:    "FILE003",
	}
	msgEmpty = UserMessage{
		Message: "The file has no header row",
		Action:  "Upload a file with a header row and data",
		Code:    "FILE005",
	}
	msgParse = UserMessage{
		Message: "The file content could not be read",
		Action:  "Check that the file is not damaged and matches its extension",
		Code:    "PARSE001",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other files",
		Action:  "Please wait a moment and try again",
		Code:    "JOB001",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "REQ002",
	}
	msgColumnNotFound = UserMessage{
		Message: "Column not found",
		Action:  "Pick one of the columns shown in the preview",
		Code:    "COL001",
	}
	msgNotNumeric = UserMessage{
		Message: "Column is not numeric",
		Action:  "Pick a numeric column for the histogram",
		Code:    "COL002",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. Order matters: the first match wins.
var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Remove unused columns or rows and upload again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Remove unused columns or rows and upload again",
			Code:    "FILE001",
		},
	},
	{pattern: "unsupported format", msg: msgUnsupported},
	{pattern: "could not decode", msg: msgEncoding},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a file to upload",
			Code:    "FILE004",
		},
	},
	{pattern: "no columns to parse", msg: msgEmpty},
	{pattern: "empty file", msg: msgEmpty},
	{pattern: "parse error", msg: msgParse},

	// Cleaning
	{
		pattern: "no numeric columns",
		msg: UserMessage{
			Message: "No numeric columns were left to normalize",
			Action:  "Lower the missing-value threshold or add numeric data",
			Code:    "CLEAN001",
		},
	},

	// Columns
	{pattern: "column not found", msg: msgColumnNotFound},
	{pattern: "column is not numeric", msg: msgNotNumeric},
	{
		pattern: "bins must be positive",
		msg: UserMessage{
			Message: "Invalid number of histogram bins",
			Action:  "Use a positive number of bins",
			Code:    "COL003",
		},
	},

	// Jobs and requests
	{pattern: "too many concurrent jobs", msg: msgBusy},
	{pattern: "context canceled", msg: msgCancelled},
	{pattern: "context deadline exceeded", msg: msgTimeout},
	{pattern: "timeout", msg: msgTimeout},
	{
		pattern: "invalid threshold",
		msg: UserMessage{
			Message: "Invalid missing-value threshold",
			Action:  "Use a number between 0 and 1, such as 0.6",
			Code:    "REQ003",
		},
	},
	{
		pattern: "invalid separator",
		msg: UserMessage{
			Message: "Invalid CSV separator",
			Action:  "Use a single character such as ; or ,",
			Code:    "REQ003",
		},
	},
	{
		pattern: "invalid parameter",
		msg: UserMessage{
			Message: "Invalid request parameter",
			Action:  "Check the request parameters and try again",
			Code:    "REQ003",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "unauthorized",
		msg: UserMessage{
			Message: "Missing or invalid API key",
			Action:  "Send a valid key in the X-API-Key header",
			Code:    "AUTH001",
		},
	},
}

// sentinelMessages are checked with errors.Is before any pattern.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ingest.ErrUnsupportedFormat, msgUnsupported},
	{ErrTooManyJobs, msgBusy},
	{table.ErrColumnNotFound, msgColumnNotFound},
	{table.ErrNotNumeric, msgNotNumeric},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check the logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	err := ingest.Load(ctx, &ingest.RawFile{Name: "notes.txt"})
//	msg := MapError(err)
//	// msg.Code == "FILE002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return ue.User
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	var ie *ingest.IngestError
	if errors.As(err, &ie) && ie.Kind == ingest.KindEncodingFallbackExhausted {
		return msgEncoding
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if errors.Is(err, ingest.ErrParse) {
		return msgParse
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

// Package core ties loading and cleaning together for the web server and
// the command line tool.
//
// A [Service] owns the loader (optionally wrapped in a content cache), the
// job [Limiter] and the metrics. [Service.Process] runs one file through the
// whole pipeline:
//
//	svc := core.NewService(core.Options{Cache: ingest.NewMemoryCache(32)})
//	out, err := svc.Process(ctx, &ingest.RawFile{Name: "data.csv", Data: b}, clean.DefaultConfig())
//	if err != nil {
//	    msg := core.MapError(err) // user-facing message with a code
//	}
//	export.WriteCSV(w, out.Cleaned, export.DefaultOptions())
//
// The original table in an [Outcome] is never modified by cleaning, so both
// versions can be downloaded.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each message carries a code (FILE002, PARSE001, ...) listed in
// error_messages.go.
package core

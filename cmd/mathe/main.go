package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"text/tabwriter"

	gojson "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Fillereine/MathE/internal/clean"
	"github.com/Fillereine/MathE/internal/core"
	"github.com/Fillereine/MathE/internal/export"
	"github.com/Fillereine/MathE/internal/ingest"
	"github.com/Fillereine/MathE/internal/logging"
	"github.com/Fillereine/MathE/internal/table"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "mathe",
		Short: "MathE - load and clean tabular data for modelling",
		Long: `MathE loads CSV, Excel (.xlsx) and JSON files and cleans them for modelling:
sparse columns are dropped, missing numbers are filled with the column mean,
text columns are encoded as integers and numeric columns are standardized.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// stdout may carry CSV output, so logs go to stderr
			logging.SetupWriter(cmd.ErrOrStderr(), logLevel, "text")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "MathE v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
		},
	})
	root.AddCommand(newCleanCmd(), newInspectCmd())
	return root
}

type cleanFlags struct {
	threshold float64
	sep       string
	out       string
	original  string
	bom       bool
	asJSON    bool
}

func newCleanCmd() *cobra.Command {
	var f cleanFlags

	cmd := &cobra.Command{
		Use:   "clean FILE",
		Short: "Clean a data file and write it as CSV",
		Long: `Clean a data file and write the result as delimited text.

Example:
  mathe clean survey.xlsx --threshold 0.5 --out cleaned.csv
  mathe clean data.csv --sep , --out -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd.Context(), cmd.OutOrStdout(), args[0], f)
		},
	}

	cmd.Flags().Float64Var(&f.threshold, "threshold", clean.DefaultMissingThreshold, "Minimum fraction of values a column needs to be kept")
	cmd.Flags().StringVar(&f.sep, "sep", string(export.DefaultDelimiter), "Output separator (single character, or tab, comma, semicolon)")
	cmd.Flags().StringVarP(&f.out, "out", "o", export.CleanedFileName, `Output path for the cleaned table ("-" for stdout)`)
	cmd.Flags().StringVar(&f.original, "original", "", "Also write the table as loaded to this path")
	cmd.Flags().BoolVar(&f.bom, "bom", false, "Prefix output with a UTF-8 byte order mark")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func runClean(ctx context.Context, stdout io.Writer, path string, f cleanFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delim, err := export.ParseDelimiter(f.sep)
	if err != nil {
		return err
	}
	opts := export.Options{Delimiter: delim, BOM: f.bom}

	raw, err := ingest.ReadFile(path)
	if err != nil {
		return err
	}

	svc := core.NewService(core.Options{})
	out, err := svc.Process(ctx, raw, clean.Config{MissingThreshold: f.threshold})
	if err != nil {
		return err
	}

	if err := writeTable(stdout, f.out, out.Cleaned, opts); err != nil {
		return err
	}
	if f.original != "" {
		if err := writeTable(stdout, f.original, out.Original, opts); err != nil {
			return err
		}
	}

	// Keep stdout clean when a table went there.
	summaryOut := stdout
	if f.out == "-" || f.original == "-" {
		summaryOut = io.Discard
	}
	if f.asJSON {
		return gojson.NewEncoder(summaryOut).Encode(out.Summary)
	}
	printSummary(summaryOut, out.Summary, f.out)
	return nil
}

func writeTable(stdout io.Writer, path string, t *table.Table, opts export.Options) error {
	if path == "-" {
		return export.WriteCSV(stdout, t, opts)
	}
	data, err := export.Bytes(t, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printSummary(w io.Writer, s core.Summary, out string) {
	fmt.Fprintf(w, "rows: %d, columns: %d -> %d (threshold %v, at least %d values)\n",
		s.RowsIn, s.ColumnsIn, s.ColumnsOut, s.Threshold, s.MinValues)
	if s.SkippedRows > 0 {
		fmt.Fprintf(w, "skipped malformed rows: %d\n", s.SkippedRows)
	}
	if len(s.Dropped) > 0 {
		fmt.Fprintf(w, "dropped: %s\n", strings.Join(s.Dropped, ", "))
	}
	if len(s.Imputed) > 0 {
		names := make([]string, 0, len(s.Imputed))
		for name := range s.Imputed {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = fmt.Sprintf("%s (%d)", name, s.Imputed[name])
		}
		fmt.Fprintf(w, "imputed: %s\n", strings.Join(parts, ", "))
	}
	if len(s.Encoded) > 0 {
		fmt.Fprintf(w, "encoded: %s\n", strings.Join(s.Encoded, ", "))
	}
	for _, warn := range s.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn.Message)
	}
	fmt.Fprintf(w, "wrote %s\n", out)
}

func newInspectCmd() *cobra.Command {
	var rows int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show a preview, column info and missing counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			raw, err := ingest.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := core.NewService(core.Options{}).Inspect(ctx, raw, rows)
			if err != nil {
				return err
			}
			if asJSON {
				return gojson.NewEncoder(cmd.OutOrStdout()).Encode(p)
			}
			printProfile(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", core.DefaultPreviewRows, "Number of preview rows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the profile as JSON")
	return cmd
}

func printProfile(w io.Writer, p *core.Profile) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(p.Preview.Columns, "\t"))
	for _, row := range p.Preview.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d rows x %d columns", p.Rows, p.Columns)
	if p.Report != nil {
		fmt.Fprintf(w, " (%s", p.Report.Format)
		if p.Report.Encoding != "" {
			fmt.Fprintf(w, ", %s", p.Report.Encoding)
		}
		if p.Report.Sheet != "" {
			fmt.Fprintf(w, ", sheet %s", p.Report.Sheet)
		}
		fmt.Fprint(w, ")")
	}
	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tcolumn\ttype\tnon-null\tmissing")
	for _, c := range p.Info {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", c.Position, c.Name, c.Type, c.NonNull, c.Missing)
	}
	tw.Flush()

	if p.Report != nil && p.Report.SkippedRows > 0 {
		fmt.Fprintf(w, "\nskipped malformed rows: %d\n", p.Report.SkippedRows)
	}
}

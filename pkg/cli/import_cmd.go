package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"gps-report/internal/domain"
	"gps-report/internal/report"
	"gps-report/internal/store"
)

// Import modes.
const (
	modeInsert = "insert"
	modeUpsert = "upsert"
	modeUpdate = "update"
)

// csvOptions controls how CSV cells become row values.
type csvOptions struct {
	delimiter    string
	decimalComma bool
	raw          bool
}

// readCSV reads a header row and records into a RowBatch. Empty cells are
// NULL. Unless raw, integers become int64 and decimals float64.
func readCSV(r io.Reader, o csvOptions) (domain.RowBatch, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	if o.delimiter != "" {
		d, size := utf8.DecodeRuneInString(o.delimiter)
		if size != len(o.delimiter) {
			return domain.RowBatch{}, fmt.Errorf("delimiter must be a single character, got %q", o.delimiter)
		}
		cr.Comma = d
	}

	header, err := cr.Read()
	if err != nil {
		return domain.RowBatch{}, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	batch := domain.RowBatch{Columns: header}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.RowBatch{}, fmt.Errorf("read csv line %d: %w", line, err)
		}
		row := make([]any, len(rec))
		for i, cell := range rec {
			row[i] = parseCell(cell, o)
		}
		batch.Rows = append(batch.Rows, row)
	}
	return batch, nil
}

func parseCell(cell string, o csvOptions) any {
	if cell == "" {
		return nil
	}
	if o.raw {
		return cell
	}
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	if o.decimalComma && strings.Count(cell, ",") == 1 && !strings.Contains(cell, ".") {
		if f, err := report.ParseCommaFloat(cell); err == nil {
			return f
		}
	}
	return cell
}

func newImportCmd(g *globals) *cobra.Command {
	var (
		table     string
		mode      string
		chunkSize int
		columns   []string
		opts      csvOptions
	)

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Load a CSV file into a table",
		Long: `Load a CSV file with a header row into a table.

Modes:
  insert  chunked insert; each chunk commits on its own
  upsert  insert or replace each row by primary key
  update  set --columns on rows matched by primary key

Writes stop at the first failing chunk or row. Rows committed before it stay.`,
		Example: `  gpsr import export.csv --table stats --mode upsert --delimiter ';' --decimal-comma`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close() //nolint:errcheck

			batch, err := readCSV(f, opts)
			if err != nil {
				return err
			}

			st := g.store()
			ctx := cmd.Context()
			var n int
			switch mode {
			case modeInsert:
				n, err = st.InsertTable(ctx, table, batch,
					store.WithChunkSize(chunkSize),
					store.WithProgress(func(done, total int) {
						if !g.json() {
							_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "chunk %d/%d committed\n", done, total)
						}
					}))
			case modeUpsert:
				n, err = st.UpsertTable(ctx, table, batch)
			case modeUpdate:
				n, err = st.UpdateTable(ctx, table, batch, columns...)
			default:
				return fmt.Errorf("unsupported mode %q: use insert, upsert or update", mode)
			}

			result := map[string]any{"table": table, "mode": mode, "rows": batch.Len(), "applied": n}
			if err != nil {
				result["error"] = err.Error()
				_ = printStatus(cmd, g, result,
					fmt.Sprintf("%d of %d rows applied to %q before the failure\n", n, batch.Len(), table))
				return err
			}
			return printStatus(cmd, g, result, fmt.Sprintf("%d rows applied to %q (%s)\n", n, table, mode))
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Target table (required)")
	cmd.Flags().StringVar(&mode, "mode", modeInsert, "Write mode: insert, upsert or update")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", store.DefaultChunkSize, "Rows per committed chunk (insert)")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns to set (update; default every CSV column)")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", ",", "Field delimiter")
	cmd.Flags().BoolVar(&opts.decimalComma, "decimal-comma", false, `Read "5,4" as 5.4`)
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Keep every cell as text")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

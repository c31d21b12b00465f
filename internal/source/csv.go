package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"trade-analytics-lab/internal/domain"
)

// Columns required in a CSV export header. Extra columns are ignored; order
// does not matter.
var csvRequiredColumns = []string{
	"trade_id", "pair", "side", "entry_time", "entry_price", "quantity",
}

// CSVAdapter loads trade records from a CSV export.
//
// Expected header (additional columns are ignored):
//
//	trade_id,pair,strategy,side,entry_time,exit_time,entry_price,exit_price,quantity,fees
//
// strategy, exit_time, exit_price and fees may be empty; empty fees default
// to 0. Timestamps are RFC3339 or "2006-01-02 15:04:05" (UTC assumed).
type CSVAdapter struct {
	path string
	opts Options
}

// NewCSVAdapter creates a CSV adapter for the file at path.
func NewCSVAdapter(path string, opts Options) *CSVAdapter {
	return &CSVAdapter{path: path, opts: opts}
}

// Compile-time interface check.
var _ Adapter = (*CSVAdapter)(nil)

// Name returns the adapter kind.
func (a *CSVAdapter) Name() string {
	return "csv"
}

// Load reads the file and translates every data row. Unreadable files surface
// as UnavailableError; a header missing required columns is a configuration
// error; bad cells are recovered per row as TranslationErrors.
func (a *CSVAdapter) Load(ctx context.Context) (*Result, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, Unavailable(a.Name(), fmt.Errorf("open %s: %w", a.path, err))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows handled per cell
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, Unavailable(a.Name(), fmt.Errorf("read header of %s: %w", a.path, err))
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range csvRequiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, &domain.ConfigurationError{
				Param:  "csv_header",
				Value:  strings.Join(header, ","),
				Reason: fmt.Sprintf("missing required column %q", required),
			}
		}
	}

	result := &Result{}
	line := 1 // header consumed
	for {
		if err := ctx.Err(); err != nil {
			return nil, Unavailable(a.Name(), err)
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Unavailable(a.Name(), fmt.Errorf("read %s: %w", a.path, err))
		}
		line++

		record, terr := translateCSVRow(columns, row, line)
		if terr != nil {
			result.Translation = append(result.Translation, *terr)
			continue
		}
		if !matchesFilter(record, a.opts) {
			continue
		}
		result.Records = append(result.Records, record)
		if a.opts.Limit > 0 && len(result.Records) >= a.opts.Limit {
			break
		}
	}

	return result, nil
}

// translateCSVRow converts one data row, short-circuiting on the first bad
// cell so each row reports at most one translation error.
func translateCSVRow(columns map[string]int, row []string, line int) (*domain.TradeRecord, *TranslationError) {
	cell := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	side, terr := parseSide(cell("side"), line)
	if terr != nil {
		return nil, terr
	}
	entryTime, terr := parseTime("entry_time", cell("entry_time"), line)
	if terr != nil {
		return nil, terr
	}
	exitTime, terr := parseOptionalTime("exit_time", cell("exit_time"), line)
	if terr != nil {
		return nil, terr
	}
	entryPrice, terr := parseDecimal("entry_price", cell("entry_price"), line)
	if terr != nil {
		return nil, terr
	}
	exitPrice, terr := parseOptionalDecimal("exit_price", cell("exit_price"), line)
	if terr != nil {
		return nil, terr
	}
	quantity, terr := parseDecimal("quantity", cell("quantity"), line)
	if terr != nil {
		return nil, terr
	}
	fees, terr := parseFees(cell("fees"), line)
	if terr != nil {
		return nil, terr
	}

	return &domain.TradeRecord{
		TradeID:    cell("trade_id"),
		Pair:       cell("pair"),
		Strategy:   parseStrategy(cell("strategy")),
		Side:       side,
		EntryTime:  entryTime,
		ExitTime:   exitTime,
		EntryPrice: entryPrice,
		ExitPrice:  exitPrice,
		Quantity:   quantity,
		Fees:       fees,
	}, nil
}

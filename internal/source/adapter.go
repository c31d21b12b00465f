// Package source defines the adapters that load trade records from
// heterogeneous origins (database tables, CSV exports, synthetic samples)
// and translate them into canonical records.
//
// Every adapter satisfies the same column contract:
//
//	trade_id, pair, strategy, side, entry_time, exit_time,
//	entry_price, exit_price, quantity, fees
//
// Rows that cannot be translated are skipped and reported as
// TranslationErrors; they never abort the batch.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trade-analytics-lab/internal/domain"
)

// ErrUnavailable matches any UnavailableError via errors.Is.
var ErrUnavailable = errors.New("source unavailable")

// Adapter loads raw rows from one source kind and translates them into
// canonical trade records. Load must honor ctx cancellation: a caller-supplied
// timeout aborts the load and surfaces an UnavailableError instead of hanging.
type Adapter interface {
	// Name identifies the adapter kind ("csv", "postgres", ...), used in
	// logs, reports and observability labels.
	Name() string

	// Load reads and translates the full record set. Per-row translation
	// failures are collected in the Result; only source-level failures
	// (unreachable file/database, timeout) return an error.
	Load(ctx context.Context) (*Result, error)
}

// Result is the outcome of one adapter load: the translated records plus the
// rows that could not become records.
type Result struct {
	Records     []*domain.TradeRecord
	Translation []TranslationError
}

// Options narrows what the database adapters read. File and sample adapters
// apply Pair/Limit filtering in memory after translation.
type Options struct {
	Pair  string     // only this trading pair when non-empty
	Since *time.Time // entry_time >= Since
	Until *time.Time // entry_time < Until
	Limit int        // max rows, 0 = unlimited
}

// TranslationError describes one source row that could not be translated into
// a TradeRecord. It is recovered locally: the row is excluded and the error
// retained for the validation audit trail.
type TranslationError struct {
	Field    string
	RawValue string
	Reason   string
	Line     int // 1-based data row for file sources, 0 when not applicable
}

func (e TranslationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("translate row %d: field %s=%q: %s", e.Line, e.Field, e.RawValue, e.Reason)
	}
	return fmt.Sprintf("translate: field %s=%q: %s", e.Field, e.RawValue, e.Reason)
}

// UnavailableError reports an I/O failure or timeout reaching a source. The
// engine surfaces it to the caller; retrying is the caller's decision.
type UnavailableError struct {
	Source string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrUnavailable) match wrapped unavailability errors.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Unavailable wraps err as an UnavailableError for the named source.
func Unavailable(source string, err error) *UnavailableError {
	return &UnavailableError{Source: source, Err: err}
}

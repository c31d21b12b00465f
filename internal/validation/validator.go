// Package validation screens translated trade records before they reach the
// metrics engine. Each record runs through an ordered rule list and is either
// accepted or rejected with a machine-readable reason; rejected records are
// retained for audit and never aggregated.
package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/source"
)

// Rejection reasons, in rule order. A record is checked against each rule in
// turn and rejected on the first failure.
const (
	// ReasonTranslation marks entries that never became records because the
	// source row could not be translated.
	ReasonTranslation = "translation_error"
	// ReasonMissingField marks records lacking a required field.
	ReasonMissingField = "missing_field"
	// ReasonInvalidSide marks records whose side is neither buy nor sell.
	ReasonInvalidSide = "invalid_side"
	// ReasonInvalidQuantity marks records with quantity <= 0.
	ReasonInvalidQuantity = "invalid_quantity"
	// ReasonInvalidEntryPrice marks records with entry_price < 0.
	ReasonInvalidEntryPrice = "invalid_entry_price"
	// ReasonInvalidFees marks records with fees < 0.
	ReasonInvalidFees = "invalid_fees"
	// ReasonExitBeforeEntry marks records whose exit_time precedes entry_time.
	ReasonExitBeforeEntry = "exit_before_entry"
	// ReasonInvalidExitPrice marks records whose recorded exit lacks a valid
	// exit_price.
	ReasonInvalidExitPrice = "invalid_exit_price"
	// ReasonDuplicateID marks records reusing a trade_id already accepted
	// earlier in the batch.
	ReasonDuplicateID = "duplicate_id"
)

// Rejection records why a single input was excluded from the dataset.
type Rejection struct {
	Record *domain.TradeRecord // rejected record; nil for translation failures
	Field  string              // field that failed the rule
	Reason string              // machine-readable reason code
	Detail string              // human-readable explanation
	Line   int                 // source row number when known, 0 otherwise
}

// Result partitions a batch into accepted records and audited rejections.
type Result struct {
	Accepted []*domain.TradeRecord
	Rejected []Rejection
}

// Summary renders a one-line audit summary with per-reason counts.
func (r *Result) Summary() string {
	if len(r.Rejected) == 0 {
		return fmt.Sprintf("accepted %d, rejected 0", len(r.Accepted))
	}

	counts := make(map[string]int)
	for _, rej := range r.Rejected {
		counts[rej.Reason]++
	}
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	parts := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		parts = append(parts, fmt.Sprintf("%s:%d", reason, counts[reason]))
	}
	return fmt.Sprintf("accepted %d, rejected %d (%s)", len(r.Accepted), len(r.Rejected), strings.Join(parts, ", "))
}

// Validate screens records in input order. Translation failures from the
// source adapter enter the rejection list first; each record is then checked
// against the rules, short-circuiting on the first failure. Trade IDs are
// unique across the accepted set, first occurrence wins.
func Validate(records []*domain.TradeRecord, preRejected []source.TranslationError) *Result {
	result := &Result{}

	for _, terr := range preRejected {
		result.Rejected = append(result.Rejected, Rejection{
			Field:  terr.Field,
			Reason: ReasonTranslation,
			Detail: fmt.Sprintf("%s: %q", terr.Reason, terr.RawValue),
			Line:   terr.Line,
		})
	}

	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if rej := checkRecord(rec, seen); rej != nil {
			result.Rejected = append(result.Rejected, *rej)
			continue
		}
		seen[rec.TradeID] = true
		result.Accepted = append(result.Accepted, rec)
	}

	return result
}

// checkRecord runs the ordered rules against one record and returns the first
// failure, or nil if the record passes. Only records that pass every rule
// claim their trade_id in seen.
func checkRecord(rec *domain.TradeRecord, seen map[string]bool) *Rejection {
	reject := func(field, reason, detail string) *Rejection {
		return &Rejection{Record: rec, Field: field, Reason: reason, Detail: detail}
	}

	// Rule 1: required fields.
	if rec.TradeID == "" {
		return reject("trade_id", ReasonMissingField, "trade_id is empty")
	}
	if rec.Pair == "" {
		return reject("pair", ReasonMissingField, "pair is empty")
	}
	if rec.Side == "" {
		return reject("side", ReasonMissingField, "side is empty")
	}
	if !rec.Side.IsValid() {
		return reject("side", ReasonInvalidSide, fmt.Sprintf("unknown side %q", rec.Side))
	}
	if rec.EntryTime.IsZero() {
		return reject("entry_time", ReasonMissingField, "entry_time is unset")
	}

	// Rule 2: numeric bounds.
	if !rec.Quantity.IsPositive() {
		return reject("quantity", ReasonInvalidQuantity, fmt.Sprintf("quantity %s must be > 0", rec.Quantity))
	}
	if rec.EntryPrice.IsNegative() {
		return reject("entry_price", ReasonInvalidEntryPrice, fmt.Sprintf("entry_price %s must be >= 0", rec.EntryPrice))
	}
	if rec.Fees.IsNegative() {
		return reject("fees", ReasonInvalidFees, fmt.Sprintf("fees %s must be >= 0", rec.Fees))
	}

	// Rule 3: exit consistency. A recorded exit needs both a time at or after
	// entry and a non-negative price; a price without a time is an unset exit.
	if rec.ExitTime != nil {
		if rec.ExitTime.Before(rec.EntryTime) {
			return reject("exit_time", ReasonExitBeforeEntry,
				fmt.Sprintf("exit_time %s precedes entry_time %s",
					rec.ExitTime.Format(time.RFC3339), rec.EntryTime.Format(time.RFC3339)))
		}
		if rec.ExitPrice == nil {
			return reject("exit_price", ReasonInvalidExitPrice, "exit_time is set but exit_price is missing")
		}
		if rec.ExitPrice.IsNegative() {
			return reject("exit_price", ReasonInvalidExitPrice, fmt.Sprintf("exit_price %s must be >= 0", rec.ExitPrice))
		}
	} else if rec.ExitPrice != nil {
		return reject("exit_time", ReasonMissingField, "exit_price is set but exit_time is missing")
	}

	// Rule 4: trade_id uniqueness across the accepted set.
	if seen[rec.TradeID] {
		return reject("trade_id", ReasonDuplicateID, fmt.Sprintf("trade_id %q already accepted", rec.TradeID))
	}

	return nil
}

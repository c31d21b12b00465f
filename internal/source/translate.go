package source

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trade-analytics-lab/internal/domain"
)

// Accepted timestamp layouts, tried in order. Layouts without a zone are
// interpreted as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime translates a raw timestamp cell.
func parseTime(field, raw string, line int) (time.Time, *TranslationError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, &TranslationError{Field: field, RawValue: raw, Reason: "required value empty", Line: line}
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, &TranslationError{Field: field, RawValue: raw, Reason: "unrecognized timestamp format", Line: line}
}

// parseOptionalTime translates a nullable timestamp cell. Empty means nil.
func parseOptionalTime(field, raw string, line int) (*time.Time, *TranslationError) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	ts, terr := parseTime(field, raw, line)
	if terr != nil {
		return nil, terr
	}
	return &ts, nil
}

// parseDecimal translates a required numeric cell.
func parseDecimal(field, raw string, line int) (decimal.Decimal, *TranslationError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, &TranslationError{Field: field, RawValue: raw, Reason: "required value empty", Line: line}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, &TranslationError{Field: field, RawValue: raw, Reason: "not a decimal number", Line: line}
	}
	return d, nil
}

// parseOptionalDecimal translates a nullable numeric cell. Empty means nil.
func parseOptionalDecimal(field, raw string, line int) (*decimal.Decimal, *TranslationError) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, terr := parseDecimal(field, raw, line)
	if terr != nil {
		return nil, terr
	}
	return &d, nil
}

// parseFees translates the fees cell, defaulting to 0 when empty.
func parseFees(raw string, line int) (decimal.Decimal, *TranslationError) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return parseDecimal("fees", raw, line)
}

// parseStrategy translates the strategy cell. Empty means unlabeled (nil).
func parseStrategy(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	return &s
}

// parseSide translates the side cell, normalizing case.
func parseSide(raw string, line int) (domain.Side, *TranslationError) {
	if strings.TrimSpace(raw) == "" {
		return "", &TranslationError{Field: "side", RawValue: raw, Reason: "required value empty", Line: line}
	}
	side, ok := domain.ParseSide(raw)
	if !ok {
		return "", &TranslationError{Field: "side", RawValue: raw, Reason: "side must be buy or sell", Line: line}
	}
	return side, nil
}

// matchesFilter applies the in-memory Options filtering used by file and
// sample adapters.
func matchesFilter(t *domain.TradeRecord, opts Options) bool {
	if opts.Pair != "" && t.Pair != opts.Pair {
		return false
	}
	if opts.Since != nil && t.EntryTime.Before(*opts.Since) {
		return false
	}
	if opts.Until != nil && !t.EntryTime.Before(*opts.Until) {
		return false
	}
	return true
}

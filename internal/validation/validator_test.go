package validation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/source"
)

func ptr[T any](v T) *T {
	return &v
}

// validTrade builds a closed buy that passes every rule.
func validTrade(id string) *domain.TradeRecord {
	entry := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	exit := entry.Add(6 * time.Hour)
	return &domain.TradeRecord{
		TradeID:    id,
		Pair:       "BTC-USD",
		Strategy:   ptr("sma-cross"),
		Side:       domain.SideBuy,
		EntryTime:  entry,
		ExitTime:   &exit,
		EntryPrice: decimal.RequireFromString("100"),
		ExitPrice:  ptr(decimal.RequireFromString("110")),
		Quantity:   decimal.RequireFromString("1"),
		Fees:       decimal.Zero,
	}
}

func TestValidate_AcceptsCleanRecords(t *testing.T) {
	open := validTrade("t2")
	open.ExitTime = nil
	open.ExitPrice = nil

	result := Validate([]*domain.TradeRecord{validTrade("t1"), open}, nil)

	if len(result.Accepted) != 2 {
		t.Fatalf("expected 2 accepted, got %d (rejected: %+v)", len(result.Accepted), result.Rejected)
	}
	if len(result.Rejected) != 0 {
		t.Errorf("expected 0 rejected, got %d", len(result.Rejected))
	}
}

func TestValidate_SingleRejectionPerRecord(t *testing.T) {
	// Fails required-field and numeric rules at once; only the first rule
	// fires.
	rec := validTrade("t1")
	rec.Pair = ""
	rec.Quantity = decimal.RequireFromString("-5")

	result := Validate([]*domain.TradeRecord{rec}, nil)

	if len(result.Rejected) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(result.Rejected))
	}
	rej := result.Rejected[0]
	if rej.Reason != ReasonMissingField || rej.Field != "pair" {
		t.Errorf("expected missing_field on pair, got %s on %s", rej.Reason, rej.Field)
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*domain.TradeRecord)
		wantField string
	}{
		{"empty_trade_id", func(r *domain.TradeRecord) { r.TradeID = "" }, "trade_id"},
		{"empty_pair", func(r *domain.TradeRecord) { r.Pair = "" }, "pair"},
		{"empty_side", func(r *domain.TradeRecord) { r.Side = "" }, "side"},
		{"zero_entry_time", func(r *domain.TradeRecord) { r.EntryTime = time.Time{} }, "entry_time"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := validTrade("t1")
			tc.mutate(rec)

			result := Validate([]*domain.TradeRecord{rec}, nil)

			if len(result.Rejected) != 1 {
				t.Fatalf("expected 1 rejection, got %d", len(result.Rejected))
			}
			rej := result.Rejected[0]
			if rej.Reason != ReasonMissingField {
				t.Errorf("expected reason %s, got %s", ReasonMissingField, rej.Reason)
			}
			if rej.Field != tc.wantField {
				t.Errorf("expected field %s, got %s", tc.wantField, rej.Field)
			}
			if rej.Record == nil {
				t.Error("expected rejection to retain the record")
			}
		})
	}
}

func TestValidate_InvalidSide(t *testing.T) {
	rec := validTrade("t1")
	rec.Side = domain.Side("hold")

	result := Validate([]*domain.TradeRecord{rec}, nil)

	if len(result.Rejected) != 1 || result.Rejected[0].Reason != ReasonInvalidSide {
		t.Fatalf("expected invalid_side rejection, got %+v", result.Rejected)
	}
}

func TestValidate_NumericBounds(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*domain.TradeRecord)
		wantReason string
	}{
		{"negative_quantity", func(r *domain.TradeRecord) { r.Quantity = decimal.RequireFromString("-1") }, ReasonInvalidQuantity},
		{"zero_quantity", func(r *domain.TradeRecord) { r.Quantity = decimal.Zero }, ReasonInvalidQuantity},
		{"negative_entry_price", func(r *domain.TradeRecord) { r.EntryPrice = decimal.RequireFromString("-0.01") }, ReasonInvalidEntryPrice},
		{"negative_fees", func(r *domain.TradeRecord) { r.Fees = decimal.RequireFromString("-2") }, ReasonInvalidFees},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := validTrade("t1")
			tc.mutate(rec)

			result := Validate([]*domain.TradeRecord{rec}, nil)

			if len(result.Accepted) != 0 {
				t.Fatalf("expected rejection, record was accepted")
			}
			if got := result.Rejected[0].Reason; got != tc.wantReason {
				t.Errorf("expected reason %s, got %s", tc.wantReason, got)
			}
		})
	}
}

func TestValidate_ZeroEntryPriceAccepted(t *testing.T) {
	// Free acquisitions (airdrops) carry a legitimate zero entry price.
	rec := validTrade("t1")
	rec.EntryPrice = decimal.Zero

	result := Validate([]*domain.TradeRecord{rec}, nil)

	if len(result.Accepted) != 1 {
		t.Fatalf("expected zero entry_price to be accepted, got %+v", result.Rejected)
	}
}

func TestValidate_ExitConsistency(t *testing.T) {
	t.Run("exit_before_entry", func(t *testing.T) {
		rec := validTrade("t1")
		early := rec.EntryTime.Add(-time.Minute)
		rec.ExitTime = &early

		result := Validate([]*domain.TradeRecord{rec}, nil)

		if len(result.Rejected) != 1 || result.Rejected[0].Reason != ReasonExitBeforeEntry {
			t.Fatalf("expected exit_before_entry, got %+v", result.Rejected)
		}
	})

	t.Run("exit_at_entry_accepted", func(t *testing.T) {
		rec := validTrade("t1")
		same := rec.EntryTime
		rec.ExitTime = &same

		result := Validate([]*domain.TradeRecord{rec}, nil)

		if len(result.Accepted) != 1 {
			t.Fatalf("expected instant close to be accepted, got %+v", result.Rejected)
		}
	})

	t.Run("exit_time_without_price", func(t *testing.T) {
		rec := validTrade("t1")
		rec.ExitPrice = nil

		result := Validate([]*domain.TradeRecord{rec}, nil)

		if len(result.Rejected) != 1 || result.Rejected[0].Reason != ReasonInvalidExitPrice {
			t.Fatalf("expected invalid_exit_price, got %+v", result.Rejected)
		}
	})

	t.Run("negative_exit_price", func(t *testing.T) {
		rec := validTrade("t1")
		rec.ExitPrice = ptr(decimal.RequireFromString("-1"))

		result := Validate([]*domain.TradeRecord{rec}, nil)

		if len(result.Rejected) != 1 || result.Rejected[0].Reason != ReasonInvalidExitPrice {
			t.Fatalf("expected invalid_exit_price, got %+v", result.Rejected)
		}
	})

	t.Run("exit_price_without_time", func(t *testing.T) {
		rec := validTrade("t1")
		rec.ExitTime = nil

		result := Validate([]*domain.TradeRecord{rec}, nil)

		if len(result.Rejected) != 1 {
			t.Fatalf("expected 1 rejection, got %+v", result.Rejected)
		}
		rej := result.Rejected[0]
		if rej.Reason != ReasonMissingField || rej.Field != "exit_time" {
			t.Errorf("expected missing_field on exit_time, got %s on %s", rej.Reason, rej.Field)
		}
	})
}

func TestValidate_DuplicateFirstWins(t *testing.T) {
	first := validTrade("dup")
	second := validTrade("dup")
	second.Pair = "ETH-USD"
	other := validTrade("other")

	result := Validate([]*domain.TradeRecord{first, other, second}, nil)

	if len(result.Accepted) != 2 {
		t.Fatalf("expected 2 accepted, got %d", len(result.Accepted))
	}
	if result.Accepted[0].Pair != "BTC-USD" {
		t.Errorf("expected first occurrence to win, accepted pair %s", result.Accepted[0].Pair)
	}
	if len(result.Rejected) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(result.Rejected))
	}
	rej := result.Rejected[0]
	if rej.Reason != ReasonDuplicateID {
		t.Errorf("expected duplicate_id, got %s", rej.Reason)
	}
	if rej.Record == nil || rej.Record.Pair != "ETH-USD" {
		t.Errorf("expected rejection to carry the later duplicate")
	}
}

func TestValidate_RejectedRecordDoesNotClaimID(t *testing.T) {
	// A record rejected by an earlier rule never enters the accepted set, so
	// its trade_id stays available for a later valid record.
	bad := validTrade("shared")
	bad.Quantity = decimal.Zero
	good := validTrade("shared")

	result := Validate([]*domain.TradeRecord{bad, good}, nil)

	if len(result.Accepted) != 1 || result.Accepted[0].TradeID != "shared" {
		t.Fatalf("expected later valid record to be accepted, got %+v", result.Accepted)
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Reason != ReasonInvalidQuantity {
		t.Fatalf("expected only the invalid_quantity rejection, got %+v", result.Rejected)
	}
}

func TestValidate_TranslationFailuresEnterFirst(t *testing.T) {
	preRejected := []source.TranslationError{
		{Field: "entry_price", RawValue: "abc", Reason: "cannot parse as decimal", Line: 3},
	}

	result := Validate([]*domain.TradeRecord{validTrade("t1")}, preRejected)

	if len(result.Accepted) != 1 {
		t.Fatalf("expected 1 accepted, got %d", len(result.Accepted))
	}
	if len(result.Rejected) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(result.Rejected))
	}
	rej := result.Rejected[0]
	if rej.Reason != ReasonTranslation {
		t.Errorf("expected translation_error, got %s", rej.Reason)
	}
	if rej.Record != nil {
		t.Error("translation failures carry no record")
	}
	if rej.Field != "entry_price" || rej.Line != 3 {
		t.Errorf("expected field/line to pass through, got %s line %d", rej.Field, rej.Line)
	}
}

func TestResult_Summary(t *testing.T) {
	dup := validTrade("t1")
	badQty := validTrade("t2")
	badQty.Quantity = decimal.RequireFromString("-1")

	result := Validate(
		[]*domain.TradeRecord{validTrade("t1"), dup, badQty},
		[]source.TranslationError{{Field: "side", RawValue: "x", Reason: "bad side", Line: 9}},
	)

	want := "accepted 1, rejected 3 (duplicate_id:1, invalid_quantity:1, translation_error:1)"
	if got := result.Summary(); got != want {
		t.Errorf("summary mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestValidate_EmptyInput(t *testing.T) {
	result := Validate(nil, nil)

	if len(result.Accepted) != 0 || len(result.Rejected) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
	if got := result.Summary(); got != "accepted 0, rejected 0" {
		t.Errorf("unexpected summary: %s", got)
	}
}

package idhash

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"trade-analytics-lab/internal/domain"
)

func makeRecord(id, pair string, entryPrice string) *domain.TradeRecord {
	return &domain.TradeRecord{
		TradeID:    id,
		Pair:       pair,
		Side:       domain.SideBuy,
		EntryTime:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		EntryPrice: decimal.RequireFromString(entryPrice),
		Quantity:   decimal.RequireFromString("1"),
		Fees:       decimal.Zero,
	}
}

func TestSnapshotID_Deterministic(t *testing.T) {
	records := []*domain.TradeRecord{
		makeRecord("t1", "BTC-USD", "100"),
		makeRecord("t2", "ETH-USD", "2000"),
	}

	first := SnapshotID(records)
	if len(first) != 64 {
		t.Fatalf("SnapshotID length = %d, want 64", len(first))
	}
	for i := 0; i < 10; i++ {
		if got := SnapshotID(records); got != first {
			t.Fatalf("SnapshotID not deterministic: %s != %s", got, first)
		}
	}
}

func TestSnapshotID_OrderInsensitive(t *testing.T) {
	a := makeRecord("t1", "BTC-USD", "100")
	b := makeRecord("t2", "ETH-USD", "2000")
	c := makeRecord("t3", "SOL-USD", "150")

	forward := SnapshotID([]*domain.TradeRecord{a, b, c})
	reversed := SnapshotID([]*domain.TradeRecord{c, b, a})

	if forward != reversed {
		t.Errorf("snapshot id should not depend on input order: %s != %s", forward, reversed)
	}
}

func TestSnapshotID_SensitiveToCoreFields(t *testing.T) {
	base := SnapshotID([]*domain.TradeRecord{makeRecord("t1", "BTC-USD", "100")})

	changedPrice := SnapshotID([]*domain.TradeRecord{makeRecord("t1", "BTC-USD", "100.01")})
	if changedPrice == base {
		t.Error("entry price change should change the snapshot id")
	}

	changedPair := SnapshotID([]*domain.TradeRecord{makeRecord("t1", "ETH-USD", "100")})
	if changedPair == base {
		t.Error("pair change should change the snapshot id")
	}

	withExit := makeRecord("t1", "BTC-USD", "100")
	exitTime := withExit.EntryTime.Add(time.Hour)
	exitPrice := decimal.RequireFromString("110")
	withExit.ExitTime = &exitTime
	withExit.ExitPrice = &exitPrice
	if SnapshotID([]*domain.TradeRecord{withExit}) == base {
		t.Error("adding an exit should change the snapshot id")
	}
}

func TestSnapshotID_EmptySet(t *testing.T) {
	first := SnapshotID(nil)
	second := SnapshotID([]*domain.TradeRecord{})
	if first != second {
		t.Errorf("nil and empty slices should fingerprint identically: %s != %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("empty snapshot id length = %d, want 64", len(first))
	}
}

func TestShortID(t *testing.T) {
	records := []*domain.TradeRecord{makeRecord("t1", "BTC-USD", "100")}
	id := SnapshotID(records)

	short := ShortID(id)
	if short == "" || short == id {
		t.Errorf("ShortID(%s) = %q, want compact handle", id, short)
	}
	if again := ShortID(id); again != short {
		t.Errorf("ShortID not deterministic: %s != %s", again, short)
	}

	// Non-hex input falls back to a prefix rather than failing.
	if got := ShortID("not-hex-at-all!"); got == "" {
		t.Error("ShortID should fall back on non-hex input")
	}
}

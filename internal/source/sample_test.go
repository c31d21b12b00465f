package source

import (
	"context"
	"testing"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/idhash"
)

func TestSampleAdapter_DeterministicForSeed(t *testing.T) {
	first, err := NewSampleAdapter(42, 200, Options{}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := NewSampleAdapter(42, 200, Options{}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(first.Records) != 200 || len(second.Records) != 200 {
		t.Fatalf("got %d and %d records, want 200 each", len(first.Records), len(second.Records))
	}
	if idhash.SnapshotID(first.Records) != idhash.SnapshotID(second.Records) {
		t.Fatal("same seed should generate an identical record set")
	}

	other, err := NewSampleAdapter(43, 200, Options{}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idhash.SnapshotID(first.Records) == idhash.SnapshotID(other.Records) {
		t.Fatal("different seeds should generate different record sets")
	}
}

func TestSampleAdapter_DatasetVariety(t *testing.T) {
	result, err := NewSampleAdapter(42, 250, Options{}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var open, closed, sells, unlabeled, breakEven int
	for _, r := range result.Records {
		if r.IsClosed() {
			closed++
			gross := r.ExitPrice.Sub(r.EntryPrice).Mul(r.Quantity).Mul(r.Side.DirectionSign())
			if gross.Sub(r.Fees).IsZero() {
				breakEven++
			}
		} else {
			open++
		}
		if r.Side == domain.SideSell {
			sells++
		}
		if r.Strategy == nil {
			unlabeled++
		}
	}

	if open == 0 {
		t.Error("sample set should contain open positions")
	}
	if closed == 0 {
		t.Error("sample set should contain closed trades")
	}
	if sells == 0 {
		t.Error("sample set should contain short sells")
	}
	if unlabeled == 0 {
		t.Error("sample set should contain unlabeled-strategy trades")
	}
	if breakEven == 0 {
		t.Error("sample set should contain exact break-even trades")
	}

	// IDs are unique by construction.
	seen := make(map[string]bool, len(result.Records))
	for _, r := range result.Records {
		if seen[r.TradeID] {
			t.Fatalf("duplicate generated trade id %s", r.TradeID)
		}
		seen[r.TradeID] = true
	}
}

func TestSampleAdapter_Filters(t *testing.T) {
	result, err := NewSampleAdapter(42, 250, Options{Pair: "BTC-USD", Limit: 10}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(result.Records) != 10 {
		t.Fatalf("got %d records, want limit 10", len(result.Records))
	}
	for _, r := range result.Records {
		if r.Pair != "BTC-USD" {
			t.Errorf("pair filter leaked %s", r.Pair)
		}
	}
}

func TestSampleAdapter_DefaultCount(t *testing.T) {
	result, err := NewSampleAdapter(1, 0, Options{}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(result.Records) != DefaultSampleCount {
		t.Fatalf("got %d records, want default %d", len(result.Records), DefaultSampleCount)
	}
}

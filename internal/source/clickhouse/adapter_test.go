package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/source"
)

func seedTrade(id, pair string, entry time.Time) *domain.TradeRecord {
	exit := entry.Add(2 * time.Hour)
	return &domain.TradeRecord{
		TradeID:    id,
		Pair:       pair,
		Strategy:   ptr("rsi-reversion"),
		Side:       domain.SideBuy,
		EntryTime:  entry,
		ExitTime:   &exit,
		EntryPrice: decimal.RequireFromString("2100.25"),
		ExitPrice:  ptr(decimal.RequireFromString("2088")),
		Quantity:   decimal.RequireFromString("1.5"),
		Fees:       decimal.RequireFromString("3.15"),
	}
}

func TestAdapter_LoadRoundTrip(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	entry := time.Date(2024, 4, 2, 9, 30, 0, 0, time.UTC)

	closed := seedTrade("ch-001", "ETH-USD", entry)
	open := &domain.TradeRecord{
		TradeID:    "ch-002",
		Pair:       "SOL-USD",
		Side:       domain.SideSell,
		EntryTime:  entry.Add(time.Hour),
		EntryPrice: decimal.RequireFromString("150.10"),
		Quantity:   decimal.RequireFromString("20"),
		Fees:       decimal.Zero,
	}
	insertTrades(t, ctx, conn, closed, open)

	adapter := NewAdapter(conn, source.Options{})
	result, err := adapter.Load(ctx)
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Empty(t, result.Translation)

	got := result.Records[0]
	assert.Equal(t, "ch-001", got.TradeID)
	assert.Equal(t, "ETH-USD", got.Pair)
	require.NotNil(t, got.Strategy)
	assert.Equal(t, "rsi-reversion", *got.Strategy)
	assert.Equal(t, domain.SideBuy, got.Side)
	assert.True(t, got.EntryTime.Equal(closed.EntryTime), "entry_time mismatch: %s", got.EntryTime)
	require.NotNil(t, got.ExitTime)
	assert.True(t, got.ExitTime.Equal(*closed.ExitTime), "exit_time mismatch: %s", got.ExitTime)
	assert.True(t, got.EntryPrice.Equal(closed.EntryPrice), "entry_price mismatch: %s", got.EntryPrice)
	require.NotNil(t, got.ExitPrice)
	assert.True(t, got.ExitPrice.Equal(*closed.ExitPrice), "exit_price mismatch: %s", got.ExitPrice)
	assert.True(t, got.Quantity.Equal(closed.Quantity), "quantity mismatch: %s", got.Quantity)
	assert.True(t, got.Fees.Equal(closed.Fees), "fees mismatch: %s", got.Fees)

	got = result.Records[1]
	assert.Equal(t, "ch-002", got.TradeID)
	assert.Nil(t, got.Strategy)
	assert.Nil(t, got.ExitTime)
	assert.Nil(t, got.ExitPrice)
	assert.False(t, got.IsClosed())
}

func TestAdapter_TranslationErrors(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	entry := time.Date(2024, 4, 2, 9, 30, 0, 0, time.UTC)

	good := seedTrade("ch-good", "ETH-USD", entry)
	bad := seedTrade("ch-bad", "ETH-USD", entry.Add(time.Hour))
	bad.Side = domain.Side("short")
	insertTrades(t, ctx, conn, good, bad)

	adapter := NewAdapter(conn, source.Options{})
	result, err := adapter.Load(ctx)
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	assert.Equal(t, "ch-good", result.Records[0].TradeID)

	require.Len(t, result.Translation, 1)
	assert.Equal(t, "side", result.Translation[0].Field)
	assert.Equal(t, "short", result.Translation[0].RawValue)
}

func TestAdapter_Filters(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	insertTrades(t, ctx, conn,
		seedTrade("ch-f1", "BTC-USD", base),
		seedTrade("ch-f2", "ETH-USD", base.Add(24*time.Hour)),
		seedTrade("ch-f3", "BTC-USD", base.Add(48*time.Hour)),
	)

	t.Run("by_pair", func(t *testing.T) {
		adapter := NewAdapter(conn, source.Options{Pair: "ETH-USD"})
		result, err := adapter.Load(ctx)
		require.NoError(t, err)
		require.Len(t, result.Records, 1)
		assert.Equal(t, "ch-f2", result.Records[0].TradeID)
	})

	t.Run("limit", func(t *testing.T) {
		adapter := NewAdapter(conn, source.Options{Limit: 2})
		result, err := adapter.Load(ctx)
		require.NoError(t, err)
		require.Len(t, result.Records, 2)
		assert.Equal(t, "ch-f1", result.Records[0].TradeID)
		assert.Equal(t, "ch-f2", result.Records[1].TradeID)
	})
}

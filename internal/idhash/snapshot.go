// Package idhash computes deterministic content identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"trade-analytics-lab/internal/domain"
)

// SnapshotID computes a content fingerprint over a validated record set using
// SHA256. Records are serialized sorted by trade_id, one |-joined line per
// record covering all core fields, so the id is independent of input order and
// two independent loads of identical data produce the same id.
// Returns hex-encoded hash (64 characters).
func SnapshotID(records []*domain.TradeRecord) string {
	sorted := make([]*domain.TradeRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TradeID < sorted[j].TradeID
	})

	var sb strings.Builder
	for _, t := range sorted {
		sb.WriteString(t.TradeID)
		sb.WriteByte('|')
		sb.WriteString(t.Pair)
		sb.WriteByte('|')
		sb.WriteString(t.StrategyLabel())
		sb.WriteByte('|')
		sb.WriteString(string(t.Side))
		sb.WriteByte('|')
		sb.WriteString(t.EntryTime.UTC().Format(time.RFC3339Nano))
		sb.WriteByte('|')
		if t.ExitTime != nil {
			sb.WriteString(t.ExitTime.UTC().Format(time.RFC3339Nano))
		}
		sb.WriteByte('|')
		sb.WriteString(t.EntryPrice.String())
		sb.WriteByte('|')
		if t.ExitPrice != nil {
			sb.WriteString(t.ExitPrice.String())
		}
		sb.WriteByte('|')
		sb.WriteString(t.Quantity.String())
		sb.WriteByte('|')
		sb.WriteString(t.Fees.String())
		sb.WriteByte('\n')
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}

// ShortID derives a compact base58 handle from a hex snapshot id, suitable for
// log lines, report headers and webhook messages. Falls back to the first 11
// characters of the input when it is not valid hex.
func ShortID(snapshotID string) string {
	raw, err := hex.DecodeString(snapshotID)
	if err != nil || len(raw) < 8 {
		if len(snapshotID) > 11 {
			return snapshotID[:11]
		}
		return snapshotID
	}
	return base58.Encode(raw[:8])
}

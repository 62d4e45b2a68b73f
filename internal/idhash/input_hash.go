// Package idhash computes deterministic identifiers for run inputs.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"index-signal-lab/internal/domain"
)

// ComputeInputHash fingerprints the inputs of a run.
// Formula: SHA256(symbol|strategy_id|date:high:low:close|...)
// Two runs with the same hash produce the same signals and ledger.
// Returns hex-encoded hash (64 characters).
func ComputeInputHash(symbol, strategyID string, bars []domain.PriceBar) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s", symbol, strategyID)
	for _, b := range bars {
		fmt.Fprintf(h, "|%s:%s:%s:%s",
			b.Date.Format(domain.DateLayout),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
		)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ShortHash returns the first 12 characters of a hash for log fields.
func ShortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Package feed owns the two live data sources: a websocket subscriber that
// tracks top-of-book and depth per token, and an HTTP poller that emits
// deduplicated trade ticks. Grounded on teacher's internal/exchange
// (feed_binance.go for the WS shape, feed_dexscreener.go for the polling
// loop shape) and original_source/src/feed.rs for the Polymarket-specific
// wire formats and dedup/watermark idiom.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"razor/internal/core"
)

// gammaMarket mirrors the subset of the Gamma markets API response this
// pipeline needs to resolve a market_id into its ordered token_ids.
type gammaMarket struct {
	ConditionID  string `json:"conditionId"`
	ClobTokenIDs string `json:"clobTokenIds"`
	MarketSlug   string `json:"slug"`
}

// FetchMarkets resolves each configured market id into a MarketDef by
// querying the Gamma markets endpoint. Markets with neither 2 nor 3 legs
// are skipped with a warning rather than failing the whole run.
func FetchMarkets(ctx context.Context, gammaBase string, marketIDs []string, warn func(marketID string, legs int)) ([]core.MarketDef, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	base := strings.TrimRight(gammaBase, "/")

	out := make([]core.MarketDef, 0, len(marketIDs))
	for _, id := range marketIDs {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/markets?id=%s", base, id), nil)
		if err != nil {
			return nil, fmt.Errorf("build gamma request for %s: %w", id, err)
		}
		req.Header.Set("User-Agent", "razor/1.0")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("gamma markets?id=%s: %w", id, err)
		}
		var markets []gammaMarket
		decodeErr := json.NewDecoder(resp.Body).Decode(&markets)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("decode gamma market %s: %w", id, decodeErr)
		}
		if len(markets) == 0 {
			return nil, fmt.Errorf("gamma market id %s not found", id)
		}
		m := markets[0]

		var tokenIDs []string
		if err := json.Unmarshal([]byte(m.ClobTokenIDs), &tokenIDs); err != nil {
			return nil, fmt.Errorf("parse clobTokenIds for gamma market %s: %w", id, err)
		}

		if len(tokenIDs) != 2 && len(tokenIDs) != 3 {
			if warn != nil {
				warn(m.ConditionID, len(tokenIDs))
			}
			continue
		}

		out = append(out, core.MarketDef{
			MarketID:   m.ConditionID,
			MarketSlug: m.MarketSlug,
			TokenIDs:   tokenIDs,
			RoundStart: time.Now().UnixMilli(),
		})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no usable markets loaded (need 2-leg or 3-leg markets)")
	}
	return out, nil
}

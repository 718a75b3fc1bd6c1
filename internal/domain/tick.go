package domain

// RawTick is a single stored observation for one (token, exchange, day).
// Timestamps are unix seconds. Ticks are immutable once fetched; the gateway
// never rewrites upstream content.
type RawTick struct {
	Timestamp   int64    `json:"timestamp"`
	Last        float64  `json:"last"`
	Bid         float64  `json:"bid"`
	Ask         float64  `json:"ask"`
	High        float64  `json:"high"`
	Low         float64  `json:"low"`
	Volume      *float64 `json:"volume,omitempty"`
	QuoteVolume float64  `json:"quoteVolume"`
	Change      float64  `json:"change"`
	Percentage  float64  `json:"percentage"`
}

// DailySummary is the OHLCV digest of one (token, exchange, date).
// Date is a YYYY-MM-DD string, which keeps summaries ordered under plain
// string comparison.
type DailySummary struct {
	Date        string  `json:"date"`
	Token       string  `json:"token"`
	Exchange    string  `json:"exchange"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	QuoteVolume float64 `json:"quoteVolume"`
	Change      float64 `json:"change"`
	Percentage  float64 `json:"percentage"`
	Trades      int64   `json:"trades"`
	AvgPrice    float64 `json:"avgPrice"`
	VWAP        float64 `json:"vwap"`
}

// RangeSummary is the merge of the daily summaries available inside a
// requested date range. Days with no stored file are skipped, not zeroed.
type RangeSummary struct {
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Days        int     `json:"days"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	QuoteVolume float64 `json:"quoteVolume"`
	Trades      int64   `json:"trades"`
	AvgPrice    float64 `json:"avgPrice"`
	VWAP        float64 `json:"vwap"`
}

// ExchangeSnapshot is the current window of one exchange contributing to a
// token. Pointer fields are nil when the exchange has no stored data for the
// window; such snapshots stay in the per-exchange listing but never enter a
// rollup.
type ExchangeSnapshot struct {
	Exchange   string   `json:"exchange"`
	Last       *float64 `json:"last"`
	High       *float64 `json:"high"`
	Low        *float64 `json:"low"`
	Volume24h  *float64 `json:"volume_24h"`
	ChangePct  *float64 `json:"change_pct"`
	DataPoints int      `json:"data_points"`
}

// TickerAggregate is recomputed per request from the included snapshots,
// never stored. Zero included snapshots yields zero values, not an error.
type TickerAggregate struct {
	AvgPrice       float64 `json:"avg_price"`
	TotalVolume24h float64 `json:"total_volume_24h"`
	VWAP           float64 `json:"vwap"`
	ExchangeCount  int     `json:"exchange_count"`
}

package domain

// Candle is the OHLCV value of one fixed time bucket. BucketStart is the
// unix-second floor of the bucket. Buckets with zero ticks are never emitted.
type Candle struct {
	BucketStart int64   `json:"timestamp"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
}

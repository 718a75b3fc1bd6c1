// Package aggregate turns raw stored records into resampled candles and
// cross-exchange rollups.
package aggregate

import (
	"sort"

	"github.com/kaspadata/exgateway/internal/domain"
)

// Resample buckets ticks into fixed-width candles at the given resolution.
// Within a bucket, open and close follow input order, high and low are taken
// over the ticks' last prices, and volume sums quoteVolume. Buckets with no
// ticks are omitted, never synthesized or interpolated.
func Resample(ticks []domain.RawTick, resolution domain.Resolution) []domain.Candle {
	if len(ticks) == 0 {
		return nil
	}
	width := resolution.Seconds()

	buckets := make(map[int64]*domain.Candle)
	for _, tick := range ticks {
		start := (tick.Timestamp / width) * width
		candle, ok := buckets[start]
		if !ok {
			buckets[start] = &domain.Candle{
				BucketStart: start,
				Open:        tick.Last,
				High:        tick.Last,
				Low:         tick.Last,
				Close:       tick.Last,
				Volume:      tick.QuoteVolume,
			}
			continue
		}
		if tick.Last > candle.High {
			candle.High = tick.Last
		}
		if tick.Last < candle.Low {
			candle.Low = tick.Last
		}
		candle.Close = tick.Last
		candle.Volume += tick.QuoteVolume
	}

	return sortedCandles(buckets)
}

// ResampleCandles re-buckets an already-resampled sequence at a coarser (or
// equal) resolution. At the sequence's own resolution this is the identity.
func ResampleCandles(candles []domain.Candle, resolution domain.Resolution) []domain.Candle {
	if len(candles) == 0 {
		return nil
	}
	width := resolution.Seconds()

	buckets := make(map[int64]*domain.Candle)
	for _, in := range candles {
		start := (in.BucketStart / width) * width
		candle, ok := buckets[start]
		if !ok {
			merged := in
			merged.BucketStart = start
			buckets[start] = &merged
			continue
		}
		if in.High > candle.High {
			candle.High = in.High
		}
		if in.Low < candle.Low {
			candle.Low = in.Low
		}
		candle.Close = in.Close
		candle.Volume += in.Volume
	}

	return sortedCandles(buckets)
}

func sortedCandles(buckets map[int64]*domain.Candle) []domain.Candle {
	out := make([]domain.Candle, 0, len(buckets))
	for _, candle := range buckets {
		out = append(out, *candle)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketStart < out[j].BucketStart })
	return out
}

package aggregate

import (
	"github.com/kaspadata/exgateway/internal/domain"
)

// Rollup combines per-exchange snapshots into one aggregate statistic set.
// Snapshots without a last price (no data for the window) are not included;
// exchanges whose fetch failed never reach this function at all. Zero
// included snapshots yields a zero-valued aggregate with ExchangeCount 0,
// not an error.
func Rollup(snapshots []domain.ExchangeSnapshot) domain.TickerAggregate {
	var agg domain.TickerAggregate

	var (
		priceSum    float64
		weightedSum float64
		volumeSum   float64
	)
	for _, snap := range snapshots {
		if snap.Last == nil {
			continue
		}
		agg.ExchangeCount++
		priceSum += *snap.Last
		if snap.Volume24h != nil {
			agg.TotalVolume24h += *snap.Volume24h
			weightedSum += *snap.Last * *snap.Volume24h
			volumeSum += *snap.Volume24h
		}
	}
	if agg.ExchangeCount == 0 {
		return agg
	}

	agg.AvgPrice = priceSum / float64(agg.ExchangeCount)
	if volumeSum > 0 {
		agg.VWAP = weightedSum / volumeSum
	} else {
		agg.VWAP = agg.AvgPrice
	}
	return agg
}

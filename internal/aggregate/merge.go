package aggregate

import (
	"github.com/kaspadata/exgateway/internal/domain"
)

// SummarizeDay derives the daily digest of one (token, exchange, day) from
// its raw ticks. Ticks must be in stored (chronological) order.
func SummarizeDay(date, token, exchange string, ticks []domain.RawTick) domain.DailySummary {
	summary := domain.DailySummary{
		Date:     date,
		Token:    token,
		Exchange: exchange,
	}
	if len(ticks) == 0 {
		return summary
	}

	first, last := ticks[0], ticks[len(ticks)-1]
	summary.Open = first.Last
	summary.Close = last.Last
	summary.High = first.Last
	summary.Low = first.Last
	summary.Change = last.Change
	summary.Percentage = last.Percentage
	summary.Trades = int64(len(ticks))

	var priceSum float64
	for _, tick := range ticks {
		if tick.Last > summary.High {
			summary.High = tick.Last
		}
		if tick.Last < summary.Low {
			summary.Low = tick.Last
		}
		if tick.Volume != nil {
			summary.Volume += *tick.Volume
		}
		summary.QuoteVolume += tick.QuoteVolume
		priceSum += tick.Last
	}

	summary.AvgPrice = priceSum / float64(len(ticks))
	if summary.Volume > 0 {
		summary.VWAP = summary.QuoteVolume / summary.Volume
	} else {
		summary.VWAP = summary.AvgPrice
	}
	return summary
}

// MergeRange concatenates the daily summaries available inside [start, end]
// into one range digest. A day with no stored file is simply absent from the
// input and skipped, never treated as zero. avgPrice and vwap are recomputed
// volume-weighted across the merged days, not averaged per day.
func MergeRange(days []domain.DailySummary, start, end string) domain.RangeSummary {
	merged := domain.RangeSummary{Start: start, End: end}

	var (
		weightedPrice float64
		first         = true
	)
	for _, day := range days {
		if (start != "" && day.Date < start) || (end != "" && day.Date > end) {
			continue
		}

		if first {
			merged.Open = day.Open
			merged.High = day.High
			merged.Low = day.Low
			first = false
		} else {
			if day.High > merged.High {
				merged.High = day.High
			}
			if day.Low < merged.Low {
				merged.Low = day.Low
			}
		}
		merged.Close = day.Close
		merged.Volume += day.Volume
		merged.QuoteVolume += day.QuoteVolume
		merged.Trades += day.Trades
		merged.Days++
		weightedPrice += day.AvgPrice * day.Volume
	}

	if merged.Volume > 0 {
		merged.AvgPrice = weightedPrice / merged.Volume
		merged.VWAP = merged.QuoteVolume / merged.Volume
	}
	return merged
}

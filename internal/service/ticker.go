package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/kaspadata/exgateway/internal/aggregate"
	"github.com/kaspadata/exgateway/internal/content"
	"github.com/kaspadata/exgateway/internal/domain"
	"golang.org/x/sync/errgroup"
)

const (
	// snapshotLookbackDays is how many days back a snapshot fetch probes when
	// today's file is not committed yet.
	snapshotLookbackDays = 3
	// snapshotFetchLimit bounds concurrent per-exchange fetches.
	snapshotFetchLimit = 10
	// historyExchangeLimit caps the exchanges contributing ticks to one
	// history response; historyTryLimit caps how many are probed to find them.
	historyExchangeLimit = 5
	historyTryLimit      = 15
)

// Ticker serves the cross-exchange snapshot and history use cases for the
// default scope.
type Ticker struct {
	store content.Store
	scope content.Scope
	clk   clock.Clock
}

func NewTicker(store content.Store, scope content.Scope, clk clock.Clock) *Ticker {
	return &Ticker{store: store, scope: scope, clk: clk}
}

// StatsResponse is the current cross-exchange view of one token.
type StatsResponse struct {
	Token     string                    `json:"token"`
	Timestamp string                    `json:"timestamp"`
	Range     string                    `json:"range"`
	Exchanges []domain.ExchangeSnapshot `json:"exchanges"`
	Aggregate domain.TickerAggregate    `json:"aggregate"`
}

// HistoryResponse is a resampled candle sequence for charting.
type HistoryResponse struct {
	Token      string          `json:"token"`
	Range      string          `json:"range"`
	Resolution string          `json:"resolution"`
	Data       []domain.Candle `json:"data"`
}

// Stats fetches every exchange's snapshot concurrently and rolls them up.
// An exchange whose fetch fails is logged and excluded entirely; an exchange
// with no stored data for the window stays in the listing with nil fields
// but never enters the rollup.
func (t *Ticker) Stats(ctx context.Context, token string, rng domain.Range) (*StatsResponse, error) {
	exchanges, err := t.listExchanges(ctx, token)
	if err != nil {
		return nil, err
	}

	results := make([]*domain.ExchangeSnapshot, len(exchanges))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotFetchLimit)
	for i, exchange := range exchanges {
		i, exchange := i, exchange
		g.Go(func() error {
			snap, err := t.exchangeSnapshot(gCtx, token, exchange)
			if err != nil {
				// Failed, not absent: drop the exchange rather than report it
				// as a zero-valued entry.
				slog.WarnContext(gCtx, "failed to fetch exchange snapshot",
					"token", token, "exchange", exchange, "error", err)
				return nil
			}
			results[i] = &snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshots := make([]domain.ExchangeSnapshot, 0, len(results))
	for _, snap := range results {
		if snap != nil {
			snapshots = append(snapshots, *snap)
		}
	}

	return &StatsResponse{
		Token:     token,
		Timestamp: t.clk.Now().UTC().Format(time.RFC3339),
		Range:     rng.String(),
		Exchanges: snapshots,
		Aggregate: aggregate.Rollup(snapshots),
	}, nil
}

// History collects raw ticks for the window across exchanges and resamples
// them. Exchanges are probed in listing order until enough carry data.
func (t *Ticker) History(ctx context.Context, token string, rng domain.Range, resolution domain.Resolution) (*HistoryResponse, error) {
	exchanges, err := t.listExchanges(ctx, token)
	if err != nil {
		return nil, err
	}

	start, end := rng.Window(t.clk.Now())

	var (
		ticks    []domain.RawTick
		withData int
	)
	for i, exchange := range exchanges {
		if i >= historyTryLimit || withData >= historyExchangeLimit {
			break
		}
		exchangeTicks, err := t.rangeTicks(ctx, token, exchange, start, end)
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch exchange history",
				"token", token, "exchange", exchange, "error", err)
			continue
		}
		if len(exchangeTicks) == 0 {
			continue
		}
		slog.DebugContext(ctx, "history data found",
			"token", token, "exchange", exchange, "ticks", len(exchangeTicks))
		ticks = append(ticks, exchangeTicks...)
		withData++
	}

	sort.SliceStable(ticks, func(i, j int) bool { return ticks[i].Timestamp < ticks[j].Timestamp })

	return &HistoryResponse{
		Token:      token,
		Range:      rng.String(),
		Resolution: resolution.String(),
		Data:       aggregate.Resample(ticks, resolution),
	}, nil
}

// listExchanges discovers the exchange directories under data/{token}.
func (t *Ticker) listExchanges(ctx context.Context, token string) ([]string, error) {
	entries, err := t.store.ListDir(ctx, t.scope, content.TokenDirPath(token))
	if err != nil {
		return nil, err
	}

	exchanges := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type == content.EntryTypeDir {
			exchanges = append(exchanges, entry.Name)
		}
	}
	if len(exchanges) == 0 {
		return nil, fmt.Errorf("%w: no exchanges for token %q", domain.ErrNotFound, token)
	}
	return exchanges, nil
}

// exchangeSnapshot reads the most recent day file available for the
// exchange, probing today first and then the previous days. All days absent
// is a valid result: the snapshot comes back with nil fields.
func (t *Ticker) exchangeSnapshot(ctx context.Context, token, exchange string) (domain.ExchangeSnapshot, error) {
	today := t.clk.Now().UTC()
	for back := 0; back < snapshotLookbackDays; back++ {
		day := today.AddDate(0, 0, -back)
		raw, err := t.store.GetObject(ctx, t.scope, content.DayFilePath(token, exchange, day))
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return domain.ExchangeSnapshot{}, err
		}

		ticks, err := decodeDayFile(raw)
		if err != nil {
			return domain.ExchangeSnapshot{}, err
		}
		return buildSnapshot(exchange, ticks), nil
	}
	return domain.ExchangeSnapshot{Exchange: exchange}, nil
}

// rangeTicks concatenates the ticks of every stored day inside [start, end].
// Absent days are gaps, not errors.
func (t *Ticker) rangeTicks(ctx context.Context, token, exchange string, start, end time.Time) ([]domain.RawTick, error) {
	var ticks []domain.RawTick
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		raw, err := t.store.GetObject(ctx, t.scope, content.DayFilePath(token, exchange, day))
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		dayTicks, err := decodeDayFile(raw)
		if err != nil {
			return nil, err
		}
		ticks = append(ticks, dayTicks...)
	}
	return ticks, nil
}

func buildSnapshot(exchange string, ticks []domain.RawTick) domain.ExchangeSnapshot {
	snap := domain.ExchangeSnapshot{Exchange: exchange, DataPoints: len(ticks)}
	if len(ticks) == 0 {
		return snap
	}

	latest := ticks[len(ticks)-1]
	snap.Last = ptr(latest.Last)
	snap.ChangePct = ptr(latest.Percentage)
	// quoteVolume in the stored files is a rolling 24h total, so the latest
	// observation is the window's volume.
	snap.Volume24h = ptr(latest.QuoteVolume)

	high, low := latest.Last, latest.Last
	for _, tick := range ticks {
		if tick.High > high {
			high = tick.High
		}
		if tick.Low > 0 && tick.Low < low {
			low = tick.Low
		}
	}
	snap.High = ptr(high)
	snap.Low = ptr(low)
	return snap
}

func ptr(v float64) *float64 {
	return &v
}

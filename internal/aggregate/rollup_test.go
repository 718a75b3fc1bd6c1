package aggregate

import (
	"testing"

	"github.com/kaspadata/exgateway/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRollupVolumeWeighted(t *testing.T) {
	snapshots := []domain.ExchangeSnapshot{
		{Exchange: "binance", Last: fptr(0.045), Volume24h: fptr(100)},
		{Exchange: "gate", Last: fptr(0.046), Volume24h: fptr(50)},
		{Exchange: "mexc", Last: fptr(0.044), Volume24h: fptr(150)},
	}

	agg := Rollup(snapshots)

	assert.Equal(t, 3, agg.ExchangeCount)
	assert.Equal(t, 300.0, agg.TotalVolume24h)
	assert.InDelta(t, 0.045, agg.AvgPrice, 1e-9)
	wantVWAP := (0.045*100 + 0.046*50 + 0.044*150) / 300
	assert.InDelta(t, wantVWAP, agg.VWAP, 1e-9)
}

func TestRollupExcludesSnapshotsWithoutData(t *testing.T) {
	snapshots := []domain.ExchangeSnapshot{
		{Exchange: "binance", Last: fptr(2.0), Volume24h: fptr(10)},
		{Exchange: "ghost"}, // no stored data for the window
	}

	agg := Rollup(snapshots)
	assert.Equal(t, 1, agg.ExchangeCount)
	assert.Equal(t, 2.0, agg.AvgPrice)
	assert.Equal(t, 10.0, agg.TotalVolume24h)
}

func TestRollupZeroVolumeFallsBackToAvgPrice(t *testing.T) {
	snapshots := []domain.ExchangeSnapshot{
		{Exchange: "binance", Last: fptr(3.0)},
		{Exchange: "gate", Last: fptr(5.0)},
	}

	agg := Rollup(snapshots)
	assert.Equal(t, 2, agg.ExchangeCount)
	assert.Equal(t, 4.0, agg.AvgPrice)
	assert.Equal(t, 4.0, agg.VWAP)
	assert.Zero(t, agg.TotalVolume24h)
}

func TestRollupEmpty(t *testing.T) {
	agg := Rollup(nil)
	assert.Zero(t, agg.ExchangeCount)
	assert.Zero(t, agg.AvgPrice)
	assert.Zero(t, agg.VWAP)
	assert.Zero(t, agg.TotalVolume24h)
}

package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

// Status tags every served response for observability.
type Status string

const (
	// StatusHit means the payload came straight from the store.
	StatusHit Status = "hit"
	// StatusMiss means the payload was computed and stored.
	StatusMiss Status = "miss"
	// StatusBypass means the store was unreachable; the payload was computed
	// but not persisted.
	StatusBypass Status = "bypass"
)

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "exgateway_cache_lookups_total",
	Help: "Coordinator lookups by outcome.",
}, []string{"status"})

// ComputeFunc produces the payload for one fingerprint. It must be a pure
// function of the fingerprint's request.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Coordinator is the single-flight cache front. For any fingerprint there is
// at most one in-flight computation; every concurrent caller with the same
// fingerprint joins it and observes the same payload or the same error.
// Failures are never cached.
type Coordinator struct {
	store Store
	ttl   time.Duration
	group singleflight.Group
}

func NewCoordinator(store Store, ttl time.Duration) *Coordinator {
	return &Coordinator{store: store, ttl: ttl}
}

type computed struct {
	payload   []byte
	fromCache bool
}

// GetOrCompute serves the fingerprint from the store when a live entry
// exists, otherwise runs compute exactly once for all concurrent callers.
// When the store is unreachable it degrades to passthrough: in-process
// deduplication still holds, but nothing is persisted.
func (c *Coordinator) GetOrCompute(ctx context.Context, fingerprint string, compute ComputeFunc) ([]byte, Status, error) {
	bypass := false
	payload, err := c.store.Get(ctx, fingerprint)
	switch {
	case err == nil:
		lookups.WithLabelValues(string(StatusHit)).Inc()
		return payload, StatusHit, nil
	case errors.Is(err, ErrMiss):
	default:
		bypass = true
		slog.WarnContext(ctx, "cache store unreachable, serving uncached", "error", err)
	}

	// The computation outlives any one caller: a joiner timing out or
	// disconnecting must not cancel the shared work.
	computeCtx := context.WithoutCancel(ctx)

	v, err, _ := c.group.Do(fingerprint, func() (any, error) {
		if !bypass {
			// A joiner may arrive after an earlier flight already stored the
			// result.
			if payload, err := c.store.Get(computeCtx, fingerprint); err == nil {
				return computed{payload: payload, fromCache: true}, nil
			}
		}

		payload, err := compute(computeCtx)
		if err != nil {
			// Propagated to every waiter; nothing is cached, so the next
			// request computes fresh.
			return nil, err
		}

		if !bypass {
			if err := c.store.Set(computeCtx, fingerprint, payload, c.ttl); err != nil {
				slog.WarnContext(ctx, "failed to store computed payload", "fingerprint", fingerprint, "error", err)
			}
		}
		return computed{payload: payload}, nil
	})
	if err != nil {
		return nil, StatusMiss, err
	}

	result := v.(computed)
	status := StatusMiss
	switch {
	case result.fromCache:
		status = StatusHit
	case bypass:
		status = StatusBypass
	}
	lookups.WithLabelValues(string(status)).Inc()
	return result.payload, status, nil
}

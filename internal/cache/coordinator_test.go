package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, ErrUnavailable }
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return ErrUnavailable
}
func (failingStore) Ping(context.Context) error { return ErrUnavailable }

func TestGetOrComputeMissThenHit(t *testing.T) {
	store := NewMemory(clock.New())
	defer store.Close()
	coord := NewCoordinator(store, time.Minute)

	var computes int32
	compute := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&computes, 1)
		return []byte(`{"n":1}`), nil
	}

	payload, status, err := coord.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, StatusMiss, status)
	assert.Equal(t, []byte(`{"n":1}`), payload)

	payload, status, err = coord.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, StatusHit, status)
	assert.Equal(t, []byte(`{"n":1}`), payload)
	assert.EqualValues(t, 1, atomic.LoadInt32(&computes), "a live entry must not recompute")
}

func TestGetOrComputeDeduplicatesConcurrentCallers(t *testing.T) {
	store := NewMemory(clock.New())
	defer store.Close()
	coord := NewCoordinator(store, time.Minute)

	var computes int32
	release := make(chan struct{})
	compute := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&computes, 1)
		<-release
		return []byte("payload"), nil
	}

	const callers = 16
	var wg sync.WaitGroup
	payloads := make([][]byte, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payloads[i], _, errs[i] = coord.GetOrCompute(context.Background(), "k", compute)
		}(i)
	}

	// Give every caller time to miss the store and join the flight.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&computes), "all callers must share one computation")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte("payload"), payloads[i])
	}
}

func TestGetOrComputeFailureIsNotCached(t *testing.T) {
	store := NewMemory(clock.New())
	defer store.Close()
	coord := NewCoordinator(store, time.Minute)

	wantErr := errors.New("upstream exploded")
	_, _, err := coord.GetOrCompute(context.Background(), "k", func(context.Context) ([]byte, error) {
		return nil, wantErr
	})
	require.ErrorIs(t, err, wantErr)

	_, getErr := store.Get(context.Background(), "k")
	assert.ErrorIs(t, getErr, ErrMiss, "a failed computation must leave no entry behind")

	// The next request computes fresh and succeeds.
	payload, status, err := coord.GetOrCompute(context.Background(), "k", func(context.Context) ([]byte, error) {
		return []byte("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, StatusMiss, status)
	assert.Equal(t, []byte("ok"), payload)
}

func TestGetOrComputeBypassWhenStoreUnreachable(t *testing.T) {
	coord := NewCoordinator(failingStore{}, time.Minute)

	var computes int32
	compute := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&computes, 1)
		return []byte("fresh"), nil
	}

	payload, status, err := coord.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, StatusBypass, status)
	assert.Equal(t, []byte("fresh"), payload)

	// Nothing was persisted, so a second request computes again.
	_, status, err = coord.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, StatusBypass, status)
	assert.EqualValues(t, 2, atomic.LoadInt32(&computes))
}

func TestGetOrComputeSurvivesCallerCancellation(t *testing.T) {
	store := NewMemory(clock.New())
	defer store.Close()
	coord := NewCoordinator(store, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload, _, err := coord.GetOrCompute(ctx, "k", func(ctx context.Context) ([]byte, error) {
		// The shared computation runs on a detached context.
		require.NoError(t, ctx.Err())
		return []byte("done"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("done"), payload)
}

package dialogue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"styling-assistant/internal/common/logger"
	"styling-assistant/internal/styling/recommend"
	"styling-assistant/internal/styling/taxonomy"
)

func builtinSource(t *testing.T) taxonomy.Source {
	t.Helper()
	tax := taxonomy.Builtin()
	return taxonomy.StaticSource{Taxonomy: tax}
}

func TestRegistry_GetOrCreate(t *testing.T) {
	r := NewRegistry(builtinSource(t), Options{Pacer: &ManualPacer{}}, 0, logger.NewTestLogger(t))
	defer r.Close()

	s1, err := r.GetOrCreate(context.Background(), "conv-1", "user-1")
	require.NoError(t, err)
	assert.True(t, s1.Ready())

	again, err := r.GetOrCreate(context.Background(), "conv-1", "user-1")
	require.NoError(t, err)
	assert.Same(t, s1, again)

	got, err := r.Get("conv-1")
	require.NoError(t, err)
	assert.Same(t, s1, got)
	assert.Equal(t, 1, r.Len())

	_, err = r.Get("conv-2")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistry_SessionLimit(t *testing.T) {
	r := NewRegistry(builtinSource(t), Options{Pacer: &ManualPacer{}}, 1, logger.NewTestLogger(t))
	defer r.Close()

	_, err := r.GetOrCreate(context.Background(), "a", "")
	require.NoError(t, err)

	_, err = r.GetOrCreate(context.Background(), "b", "")
	assert.ErrorIs(t, err, ErrSessionLimit)

	_, err = r.GetOrCreate(context.Background(), "a", "")
	assert.NoError(t, err, "existing sessions are not limited")

	r.Remove("a")
	_, err = r.GetOrCreate(context.Background(), "b", "")
	assert.NoError(t, err)
}

func TestRegistry_RetriesTaxonomyLoad(t *testing.T) {
	tax := taxonomy.Builtin()

	var calls atomic.Int32
	source := taxonomy.SourceFunc(func(context.Context) (*taxonomy.Taxonomy, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("redis: connection refused")
		}
		return tax, nil
	})
	r := NewRegistry(source, Options{Pacer: &ManualPacer{}}, 0, logger.NewTestLogger(t))
	defer r.Close()

	s, err := r.GetOrCreate(context.Background(), "conv-1", "")
	require.NoError(t, err)
	assert.False(t, s.Ready())
	_, err = s.Process(context.Background(), "wedding")
	assert.ErrorIs(t, err, ErrTaxonomyNotReady)

	again, err := r.GetOrCreate(context.Background(), "conv-1", "")
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.True(t, s.Ready())
	assert.Equal(t, int32(2), calls.Load())
}

func TestRegistry_RemoveAndClose(t *testing.T) {
	r := NewRegistry(builtinSource(t), Options{Pacer: &ManualPacer{}}, 0, nil)

	for _, id := range []string{"a", "b", "c"} {
		_, err := r.GetOrCreate(context.Background(), id, "")
		require.NoError(t, err)
	}
	r.Remove("b")
	r.Remove("missing")
	assert.Equal(t, 2, r.Len())

	r.Close()
	assert.Zero(t, r.Len())
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRegistry_IdleSessionFreesSlot(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	r := NewRegistry(builtinSource(t), Options{Pacer: &ManualPacer{}}, 2, logger.NewTestLogger(t),
		WithIdleTTL(30*time.Minute), WithClock(clock.Now))
	defer r.Close()
	ctx := context.Background()

	a, err := r.GetOrCreate(ctx, "a", "")
	require.NoError(t, err)
	b, err := r.GetOrCreate(ctx, "b", "")
	require.NoError(t, err)
	require.NoError(t, a.Reset())
	require.NoError(t, b.Reset())

	_, err = r.GetOrCreate(ctx, "c", "")
	assert.ErrorIs(t, err, ErrSessionLimit, "both sessions are still fresh")

	clock.Advance(20 * time.Minute)
	_, err = r.Get("b")
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	c, err := r.GetOrCreate(ctx, "c", "")
	require.NoError(t, err)
	assert.True(t, c.Ready())
	assert.Equal(t, 2, r.Len())

	_, err = r.Get("a")
	assert.ErrorIs(t, err, ErrSessionNotFound, "a was idle past the ttl")
	got, err := r.Get("b")
	require.NoError(t, err)
	assert.Same(t, b, got, "b was touched within the ttl")
}

func TestRegistry_SweepWithoutTTLKeepsSessions(t *testing.T) {
	r := NewRegistry(builtinSource(t), Options{Pacer: &ManualPacer{}}, 0, nil)
	defer r.Close()

	_, err := r.GetOrCreate(context.Background(), "a", "")
	require.NoError(t, err)
	assert.Zero(t, r.Sweep())
	assert.Equal(t, 1, r.Len())
}

type gatedDispatcher struct {
	release chan struct{}
}

func (g *gatedDispatcher) Send(ctx context.Context, sessionID, _ string, _ recommend.Request) (recommend.Receipt, error) {
	select {
	case <-g.release:
		return recommend.Receipt{ReferenceID: "ref-" + sessionID}, nil
	case <-ctx.Done():
		return recommend.Receipt{}, ctx.Err()
	}
}

func TestRegistry_SweepKeepsSessionWithHandoffInFlight(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	pacer := &ManualPacer{}
	gate := &gatedDispatcher{release: make(chan struct{})}
	r := NewRegistry(builtinSource(t), Options{Pacer: pacer, Dispatcher: gate}, 0, logger.NewTestLogger(t),
		WithIdleTTL(time.Minute), WithClock(clock.Now))
	defer r.Close()

	s, err := r.GetOrCreate(context.Background(), "conv-1", "user-1")
	require.NoError(t, err)
	for _, msg := range []string{
		"I have to go to a wedding", "it's summer and rainy", "linen", "slim",
		"evening", "summer", "navy", "premium", "bold",
	} {
		_, err := s.Process(context.Background(), msg)
		require.NoError(t, err)
		pacer.Flush()
	}
	v, err := s.Snapshot()
	require.NoError(t, err)
	require.Equal(t, StateComplete, v.State)
	require.Equal(t, HandoffInFlight, v.Handoff.State)

	clock.Advance(time.Hour)
	assert.Zero(t, r.Sweep())
	assert.Equal(t, 1, r.Len())

	close(gate.release)
	s.Wait()
	assert.Equal(t, 1, r.Sweep())
	assert.Zero(t, r.Len())
}

func TestRegistry_RunStopsWithContext(t *testing.T) {
	r := NewRegistry(builtinSource(t), Options{Pacer: &ManualPacer{}}, 0, nil, WithIdleTTL(time.Minute))
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

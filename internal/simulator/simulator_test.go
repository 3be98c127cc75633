package simulator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkempf/shoppulse/internal/domain"
)

type countingPurchaser struct {
	calls atomic.Int64
}

func (p *countingPurchaser) SimulatePurchase(ctx context.Context, maxQuantity int) (*domain.Receipt, error) {
	p.calls.Add(1)
	return &domain.Receipt{}, nil
}

type syncBroadcaster struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *syncBroadcaster) Broadcast(event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *syncBroadcaster) statusEvents() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	var statuses []bool
	for _, e := range b.events {
		if e.Kind == domain.EventSimulatorStatus && e.Running != nil {
			statuses = append(statuses, *e.Running)
		}
	}
	return statuses
}

func newTestSimulator(t *testing.T) (*Simulator, *countingPurchaser, *syncBroadcaster, *clockwork.FakeClock) {
	t.Helper()

	purchaser := &countingPurchaser{}
	broadcaster := &syncBroadcaster{}
	clock := clockwork.NewFakeClock()
	sim := New(purchaser, broadcaster, clock, Config{
		MinDelay:    time.Second,
		MaxDelay:    time.Second,
		MaxQuantity: 5,
	})
	t.Cleanup(func() { sim.Stop() })

	return sim, purchaser, broadcaster, clock
}

func waitForCalls(t *testing.T, purchaser *countingPurchaser, want int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		return purchaser.calls.Load() == want
	}, time.Second, time.Millisecond)
}

func TestStart_Idempotent(t *testing.T) {
	sim, _, broadcaster, _ := newTestSimulator(t)

	assert.True(t, sim.Start())
	assert.False(t, sim.Start(), "second start must be a no-op")
	assert.True(t, sim.Running())

	assert.Equal(t, []bool{true}, broadcaster.statusEvents(), "only the transition broadcasts")
}

func TestStop_Idempotent(t *testing.T) {
	sim, _, broadcaster, _ := newTestSimulator(t)

	assert.False(t, sim.Stop(), "stopping a stopped simulator is a no-op")

	sim.Start()
	assert.True(t, sim.Stop())
	assert.False(t, sim.Stop())
	assert.False(t, sim.Running())

	assert.Equal(t, []bool{true, false}, broadcaster.statusEvents())
}

func TestTick_PurchasesAfterDelay(t *testing.T) {
	sim, purchaser, _, clock := newTestSimulator(t)

	sim.Start()
	assert.Zero(t, purchaser.calls.Load(), "nothing fires before the delay")

	clock.Advance(time.Second)
	waitForCalls(t, purchaser, 1)

	// The loop reschedules itself
	clock.Advance(time.Second)
	waitForCalls(t, purchaser, 2)
}

func TestStop_BeforeFirstDelayPreventsAllPurchases(t *testing.T) {
	sim, purchaser, _, clock := newTestSimulator(t)

	sim.Start()
	sim.Stop()

	clock.Advance(10 * time.Second)

	// Give any stray timer goroutine a chance to run before asserting
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, purchaser.calls.Load())
}

func TestRestart_SuppressesStaleTicks(t *testing.T) {
	sim, purchaser, _, clock := newTestSimulator(t)

	sim.Start()
	sim.Stop()
	sim.Start()

	clock.Advance(time.Second)
	waitForCalls(t, purchaser, 1)

	clock.Advance(time.Second)
	waitForCalls(t, purchaser, 2)

	// Exactly one tick per advance: the pre-restart timer never fires
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int64(2), purchaser.calls.Load())
}

func TestTick_SurvivesPurchaseErrors(t *testing.T) {
	purchaser := &countingPurchaser{}
	broadcaster := &syncBroadcaster{}
	clock := clockwork.NewFakeClock()

	failing := &failingPurchaser{inner: purchaser}
	sim := New(failing, broadcaster, clock, Config{
		MinDelay:    time.Second,
		MaxDelay:    time.Second,
		MaxQuantity: 5,
	})
	t.Cleanup(func() { sim.Stop() })

	sim.Start()
	clock.Advance(time.Second)
	waitForCalls(t, purchaser, 1)

	// A failed tick still reschedules
	clock.Advance(time.Second)
	waitForCalls(t, purchaser, 2)
}

type failingPurchaser struct {
	inner *countingPurchaser
}

func (p *failingPurchaser) SimulatePurchase(ctx context.Context, maxQuantity int) (*domain.Receipt, error) {
	p.inner.calls.Add(1)
	return nil, assert.AnError
}

// Package simulator generates randomized purchases on a start/stop-able
// timer loop. It exists so a dashboard has live traffic to show without
// real buyers.
package simulator

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/tkempf/shoppulse/internal/domain"
	"github.com/tkempf/shoppulse/internal/metrics"
)

const tickTimeout = 10 * time.Second

// Purchaser is the slice of the shop service the simulator needs.
type Purchaser interface {
	SimulatePurchase(ctx context.Context, maxQuantity int) (*domain.Receipt, error)
}

type Config struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	MaxQuantity int
}

// Simulator drives randomized purchases through the shop service.
// Start and Stop are idempotent; a status event is broadcast only on an
// actual transition. The generation counter invalidates ticks scheduled
// before a Stop, so a stale timer firing after a restart is a no-op.
type Simulator struct {
	purchaser   Purchaser
	broadcaster domain.Broadcaster
	clock       clockwork.Clock
	breaker     *gobreaker.CircuitBreaker
	cfg         Config

	mu         sync.Mutex
	running    bool
	generation uint64
	timer      clockwork.Timer
}

func New(purchaser Purchaser, broadcaster domain.Broadcaster, clock clockwork.Clock, cfg Config) *Simulator {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "simulator-store",
		Timeout: 30 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("simulator circuit breaker state change", "from", from.String(), "to", to.String())
		},
	})

	return &Simulator{
		purchaser:   purchaser,
		broadcaster: broadcaster,
		clock:       clock,
		breaker:     breaker,
		cfg:         cfg,
	}
}

// Start begins the tick loop. Returns false if already running.
func (s *Simulator) Start() bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.generation++
	s.schedule(s.generation)
	s.mu.Unlock()

	metrics.SimulatorRunning.Set(1)
	slog.Info("simulator started")
	s.broadcaster.Broadcast(domain.NewSimulatorStatusEvent(true, s.clock.Now()))
	return true
}

// Stop halts the tick loop. Returns false if not running. A tick already
// in flight may still complete; its reschedule is suppressed.
func (s *Simulator) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.running = false
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	metrics.SimulatorRunning.Set(0)
	slog.Info("simulator stopped")
	s.broadcaster.Broadcast(domain.NewSimulatorStatusEvent(false, s.clock.Now()))
	return true
}

func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// schedule arms the timer for the given generation. Callers must hold mu.
func (s *Simulator) schedule(generation uint64) {
	s.timer = s.clock.AfterFunc(s.randomDelay(), func() {
		s.tick(generation)
	})
}

func (s *Simulator) randomDelay() time.Duration {
	spread := s.cfg.MaxDelay - s.cfg.MinDelay
	if spread <= 0 {
		return s.cfg.MinDelay
	}
	return s.cfg.MinDelay + time.Duration(rand.Int64N(int64(spread)+1))
}

func (s *Simulator) tick(generation uint64) {
	s.mu.Lock()
	if !s.running || generation != s.generation {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	result, err := s.breaker.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
		defer cancel()
		return s.purchaser.SimulatePurchase(ctx, s.cfg.MaxQuantity)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.SimulatorTicksTotal.WithLabelValues("rejected").Inc()
		slog.Debug("simulator tick rejected by circuit breaker")
	case err != nil:
		metrics.SimulatorTicksTotal.WithLabelValues("failed").Inc()
		slog.Error("simulated purchase failed", "error", err)
	case result == nil || result.(*domain.Receipt) == nil:
		metrics.SimulatorTicksTotal.WithLabelValues("skipped").Inc()
	default:
		metrics.SimulatorTicksTotal.WithLabelValues("purchased").Inc()
	}

	s.mu.Lock()
	if s.running && generation == s.generation {
		s.schedule(generation)
	}
	s.mu.Unlock()
}

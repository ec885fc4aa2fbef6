// Package engine provides the tick-based simulation loop and the Simulation
// context that owns every piece of run state.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultReportEvery is how often, in ticks, the engine fires OnReport.
const DefaultReportEvery = 100

// Engine drives the simulation forward.
type Engine struct {
	Interval    time.Duration // Base tick interval (default 100ms)
	MaxTicks    uint64        // Stop after this many ticks; 0 = run until stopped
	ReportEvery uint64        // OnReport cadence in ticks

	// Callbacks — populated during setup.
	OnTick   func(tick uint64) // Every tick
	OnReport func(tick uint64) // Every ReportEvery ticks

	mu    sync.Mutex
	tick  uint64
	speed float64 // Multiplier: 1.0 = real-time, 0 = paused
	stop  chan struct{}
	once  sync.Once
}

// NewEngine creates a simulation engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Interval:    100 * time.Millisecond,
		ReportEvery: DefaultReportEvery,
		speed:       1.0,
		stop:        make(chan struct{}),
	}
}

// Tick returns the number of ticks run so far.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. 0 pauses; negative values are clamped to 0.
func (e *Engine) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
	slog.Info("engine speed changed", "speed", speed)
}

// Run starts the simulation loop. It blocks until ctx is cancelled, Stop is
// called, or MaxTicks is reached.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed(), "interval", e.Interval)
	defer func() { slog.Info("simulation engine stopped", "tick", e.Tick()) }()

	for {
		if e.MaxTicks > 0 && e.Tick() >= e.MaxTicks {
			return nil
		}

		speed := e.Speed()
		if speed <= 0 {
			// Paused — sleep briefly and check again.
			if !e.wait(ctx, 100*time.Millisecond) {
				return nil
			}
			continue
		}

		start := time.Now()
		e.step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed := time.Since(start); elapsed < target {
			if !e.wait(ctx, target-elapsed) {
				return nil
			}
		} else if !e.wait(ctx, 0) {
			return nil
		}
	}
}

// wait sleeps for d and reports whether the loop should keep going.
func (e *Engine) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		case <-e.stop:
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-e.stop:
		return false
	case <-timer.C:
		return true
	}
}

// Stop halts the simulation loop. Safe to call more than once.
func (e *Engine) Stop() {
	e.once.Do(func() { close(e.stop) })
}

// step advances the simulation by one tick.
func (e *Engine) step() {
	e.mu.Lock()
	e.tick++
	tick := e.tick
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if e.ReportEvery > 0 && tick%e.ReportEvery == 0 && e.OnReport != nil {
		e.OnReport(tick)
	}
}

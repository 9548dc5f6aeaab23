package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the time each round stays on screen during playback.
const DefaultInterval = 2 * time.Second

// Playback steps through rounds on a fixed interval.
type Playback struct {
	Interval time.Duration // Time between steps (default 2 seconds)
	Steps    uint64        // Steps taken so far

	// Advance moves to the next round and reports whether more remain.
	// Playback stops after the first false.
	Advance func(step uint64) bool

	mu      sync.Mutex
	running bool
	stopped bool
	stop    chan struct{}
}

// NewPlayback creates a playback with the given interval and advance callback.
func NewPlayback(interval time.Duration, advance func(step uint64) bool) *Playback {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Playback{
		Interval: interval,
		Advance:  advance,
		stop:     make(chan struct{}),
	}
}

// Run steps until Advance reports the end, Stop is called, or ctx is done.
// It blocks, and returns immediately if the playback is already running or
// has been stopped. A Playback runs at most once.
func (p *Playback) Run(ctx context.Context) {
	p.mu.Lock()
	if p.running || p.stopped {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	slog.Info("playback started", "interval", p.Interval)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("playback cancelled", "steps", p.Steps)
			return
		case <-p.stop:
			slog.Info("playback stopped", "steps", p.Steps)
			return
		case <-ticker.C:
			// select picks randomly among ready cases; a stop must win.
			select {
			case <-p.stop:
				slog.Info("playback stopped", "steps", p.Steps)
				return
			default:
			}
			p.Steps++
			if p.Advance == nil || !p.Advance(p.Steps) {
				slog.Info("playback finished", "steps", p.Steps)
				return
			}
		}
	}
}

// Stop halts the playback, or prevents it from starting if Run has not
// been called yet. Repeated calls are no-ops.
func (p *Playback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.stopped = true
		close(p.stop)
	}
}

// Running reports whether Run is in progress.
func (p *Playback) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

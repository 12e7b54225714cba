package animation

import (
	"log/slog"
	"sync"
	"time"

	"pickpath/models"

	channerics "github.com/niceyeti/channerics/channels"
)

// DefaultTickInterval is the fixed playback step.
const DefaultTickInterval = 100 * time.Millisecond

// Config holds playback parameters.
type Config struct {
	// TickInterval is the time between cursor steps.
	TickInterval time.Duration
	// HaltOnDone stops the timer once the cursor is pinned at the final cell. Leaving it
	// running changes nothing observable; it only keeps a goroutine ticking.
	HaltOnDone bool
}

func DefaultConfig() Config {
	return Config{
		TickInterval: DefaultTickInterval,
		HaltOnDone:   true,
	}
}

// Observer is notified of playback events, e.g. for metrics. Calls are made with the
// player locked and must return quickly.
type Observer interface {
	Loaded(Frame)
	Ticked(Frame)
}

// Player owns the current Cursor and the one timer that advances it. Load replaces both
// wholesale: the previous timer is cancelled before the new one is installed, and a
// superseded timer can never step the new cursor. Frames are published on a channel that
// holds only the latest undelivered frame.
type Player struct {
	cfg       Config
	logger    *slog.Logger
	observers []Observer

	mu         sync.Mutex
	cursor     *Cursor
	generation uint64
	cancel     func()
	exited     <-chan struct{}

	frames chan Frame
}

func NewPlayer(cfg Config, logger *slog.Logger, observers ...Observer) *Player {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	return &Player{
		cfg:       cfg,
		logger:    logger,
		observers: observers,
		cursor:    NewCursor(nil),
		frames:    make(chan Frame, 1),
	}
}

// Frames returns the channel of playback snapshots. Unconsumed frames are replaced by
// newer ones, so a slow reader always sees the latest state.
func (p *Player) Frames() <-chan Frame {
	return p.frames
}

// Snapshot returns the current frame.
func (p *Player) Snapshot() Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor.frame(p.generation)
}

// Load discards the current path and its timer, and starts playing path from index 0.
// An empty path is loaded without a timer and leaves the player Idle.
func (p *Player) Load(path []models.Waypoint) Frame {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.generation++
	p.cursor = NewCursor(path)
	frame := p.cursor.frame(p.generation)
	p.publishLocked(frame)
	for _, obs := range p.observers {
		obs.Loaded(frame)
	}

	if p.cursor.State() == Playing {
		p.startLocked(p.generation)
	}
	p.logger.Debug("path loaded", "generation", p.generation, "cells", len(path), "state", frame.State)
	return frame
}

// Stop cancels the active timer, if any, and waits for it to exit. The current frame is
// left as it is.
func (p *Player) Stop() {
	p.mu.Lock()
	exited := p.exited
	p.stopLocked()
	p.mu.Unlock()

	if exited != nil {
		<-exited
	}
}

func (p *Player) stopLocked() {
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = nil
	p.exited = nil
}

func (p *Player) startLocked(generation uint64) {
	done := make(chan struct{})
	exited := make(chan struct{})
	var once sync.Once
	p.cancel = func() { once.Do(func() { close(done) }) }
	p.exited = exited

	go func() {
		defer close(exited)
		ticks := channerics.NewTicker(done, p.cfg.TickInterval)
		for {
			select {
			case <-done:
				return
			case _, ok := <-ticks:
				if !ok || !p.tick(generation, done) {
					return
				}
			}
		}
	}()
}

// tick steps the cursor if its timer is still the active one, and reports whether the
// timer should keep running.
func (p *Player) tick(generation uint64, done <-chan struct{}) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A cancelled timer may fire once more before it observes cancellation.
	select {
	case <-done:
		return false
	default:
	}
	if generation != p.generation {
		return false
	}

	before := p.cursor.State()
	advanced := p.cursor.Tick()
	if advanced || p.cursor.State() != before {
		frame := p.cursor.frame(p.generation)
		p.publishLocked(frame)
		if advanced {
			for _, obs := range p.observers {
				obs.Ticked(frame)
			}
		}
	}

	if p.cursor.State() == Done && p.cfg.HaltOnDone {
		p.logger.Debug("playback done", "generation", generation, "index", p.cursor.Index())
		p.stopLocked()
		return false
	}
	return true
}

// publishLocked replaces any undelivered frame with f. The player lock makes this the only
// sender, so the final send cannot block.
func (p *Player) publishLocked(f Frame) {
	select {
	case p.frames <- f:
		return
	default:
	}
	select {
	case <-p.frames:
	default:
	}
	select {
	case p.frames <- f:
	default:
	}
}

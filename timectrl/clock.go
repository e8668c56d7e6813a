package timectrl

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// SimClock is an interface for reading simulation time. Components that
// only consume time (schedulers, the engine, API handlers) depend on
// this abstraction rather than the concrete Clock, so tests can drive
// them with a fake.
type SimClock interface {
	// Snapshot returns the current offset/scale/playing triple.
	Snapshot() SimulationTime
	// Now returns the absolute simulated instant.
	Now() time.Time
}

// Granularity names the unit the clock offset is expressed in.
type Granularity int

const (
	// GranularityYears counts the offset in Julian years.
	GranularityYears Granularity = iota
	// GranularityDays counts the offset in days.
	GranularityDays
)

// String returns the config spelling.
func (g Granularity) String() string {
	switch g {
	case GranularityYears:
		return "years"
	case GranularityDays:
		return "days"
	default:
		return "unknown"
	}
}

// BoundPolicy decides what happens when the offset leaves the
// configured range.
type BoundPolicy int

const (
	// BoundClamp pins the offset at the violated bound.
	BoundClamp BoundPolicy = iota
	// BoundWrap folds the offset back into [MinOffset, MaxOffset).
	BoundWrap
)

// String returns the config spelling.
func (p BoundPolicy) String() string {
	switch p {
	case BoundClamp:
		return "clamp"
	case BoundWrap:
		return "wrap"
	default:
		return "unknown"
	}
}

// SimulationTime is the clock state handed to subscribers and API
// consumers. Offset is in the configured granularity unit.
type SimulationTime struct {
	Offset  float64
	Scale   float64
	Playing bool
}

// Config fixes the clock's range semantics at construction. The two
// deployment conventions are a clamped +/-10 year window and a wrapping
// 0..365 day loop; the policy is an explicit choice here, never a
// hidden constant.
type Config struct {
	Granularity Granularity
	BoundPolicy BoundPolicy

	MinOffset float64
	MaxOffset float64

	MinScale float64
	MaxScale float64

	// Epoch is the absolute instant at offset zero. Zero value selects
	// the J2000.0 epoch.
	Epoch time.Time
}

// DefaultConfig is the year-granularity clamped clock: +/-10 years
// around J2000 at scales 0.001 to 1000.
func DefaultConfig() Config {
	return Config{
		Granularity: GranularityYears,
		BoundPolicy: BoundClamp,
		MinOffset:   -10,
		MaxOffset:   10,
		MinScale:    0.001,
		MaxScale:    1000,
	}
}

// DayWrapConfig is the day-granularity wrapping clock: offsets fold
// into [0, 365).
func DayWrapConfig() Config {
	return Config{
		Granularity: GranularityDays,
		BoundPolicy: BoundWrap,
		MinOffset:   0,
		MaxOffset:   365,
		MinScale:    0.001,
		MaxScale:    1000,
	}
}

// J2000 is the standard reference epoch, JD 2451545.0.
var J2000 = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

type subscriber struct {
	id int
	fn func(SimulationTime)
}

// Clock owns the simulated time of the whole system: an offset from the
// epoch, a time scale, and a play/pause flag. All mutation goes through
// its methods; every mutation notifies subscribers synchronously with a
// state snapshot, outside the clock lock, in subscription order.
type Clock struct {
	mu  sync.RWMutex
	cfg Config

	offset  float64
	scale   float64
	playing bool

	// anchor is the wall-clock reference the Run loop measures elapsed
	// real time against. Re-set on resume so pausing never causes a
	// jump.
	anchor time.Time

	subs   []subscriber
	nextID int
}

// New validates the configuration and returns a paused clock at offset
// zero with scale 1 (clamped into the configured scale range).
func New(cfg Config) (*Clock, error) {
	if cfg.MaxOffset <= cfg.MinOffset {
		return nil, fmt.Errorf("clock config: max offset %g not above min %g", cfg.MaxOffset, cfg.MinOffset)
	}
	if cfg.MinScale <= 0 || cfg.MaxScale < cfg.MinScale {
		return nil, fmt.Errorf("clock config: scale range [%g, %g] invalid", cfg.MinScale, cfg.MaxScale)
	}
	if cfg.Epoch.IsZero() {
		cfg.Epoch = J2000
	}

	c := &Clock{
		cfg:    cfg,
		scale:  clampScale(1, cfg),
		anchor: time.Now(),
	}
	c.offset = c.applyBounds(0)
	return c, nil
}

func clampScale(s float64, cfg Config) float64 {
	if s < cfg.MinScale {
		return cfg.MinScale
	}
	if s > cfg.MaxScale {
		return cfg.MaxScale
	}
	return s
}

// applyBounds folds or clamps an offset into the configured range.
func (c *Clock) applyBounds(offset float64) float64 {
	min, max := c.cfg.MinOffset, c.cfg.MaxOffset
	switch c.cfg.BoundPolicy {
	case BoundWrap:
		span := max - min
		wrapped := math.Mod(offset-min, span)
		if wrapped < 0 {
			wrapped += span
		}
		return min + wrapped
	default:
		if offset < min {
			return min
		}
		if offset > max {
			return max
		}
		return offset
	}
}

// Config returns the construction parameters.
func (c *Clock) Config() Config {
	return c.cfg
}

// Snapshot returns the current state. Implements SimClock.
func (c *Clock) Snapshot() SimulationTime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return SimulationTime{Offset: c.offset, Scale: c.scale, Playing: c.playing}
}

// Advance moves simulated time forward by realElapsedSeconds of wall
// time at the current scale. It is a no-op while paused and safe to
// call with zero elapsed time. Subscribers are notified on every
// effective call, even when the offset is pinned at a clamp bound.
func (c *Clock) Advance(realElapsedSeconds float64) {
	c.mu.Lock()
	if !c.playing {
		c.mu.Unlock()
		return
	}
	c.offset = c.applyBounds(c.offset + realElapsedSeconds*c.scale)
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()

	notify(subs, snap)
}

// Toggle flips between Paused and Playing. Entering Playing re-anchors
// the real-time reference so a resume never jumps.
func (c *Clock) Toggle() {
	c.mu.Lock()
	c.playing = !c.playing
	if c.playing {
		c.anchor = time.Now()
	}
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()

	notify(subs, snap)
}

// SetScale changes the time scale, clamped into the configured range.
func (c *Clock) SetScale(scale float64) {
	c.mu.Lock()
	c.scale = clampScale(scale, c.cfg)
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()

	notify(subs, snap)
}

// SetOffset moves the clock to an absolute offset, subject to the bound
// policy.
func (c *Clock) SetOffset(offset float64) {
	c.mu.Lock()
	c.offset = c.applyBounds(offset)
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()

	notify(subs, snap)
}

// Subscribe registers a callback invoked synchronously with a state
// snapshot on every clock mutation. It returns an unsubscribe function.
func (c *Clock) Subscribe(fn func(SimulationTime)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscriber{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// snapshotLocked captures state and the subscriber list for
// notification outside the lock. Caller must hold c.mu.
func (c *Clock) snapshotLocked() (SimulationTime, []subscriber) {
	snap := SimulationTime{Offset: c.offset, Scale: c.scale, Playing: c.playing}
	subs := append([]subscriber{}, c.subs...)
	return snap, subs
}

func notify(subs []subscriber, snap SimulationTime) {
	for _, s := range subs {
		s.fn(snap)
	}
}

// offsetDuration converts an offset in the configured granularity to a
// wall duration.
func (c *Clock) offsetDuration(offset float64) time.Duration {
	switch c.cfg.Granularity {
	case GranularityDays:
		return time.Duration(offset * 24 * float64(time.Hour))
	default:
		return time.Duration(offset * 365.25 * 24 * float64(time.Hour))
	}
}

// Now returns the absolute simulated instant: epoch plus offset.
// Implements SimClock.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.Epoch.Add(c.offsetDuration(c.offset))
}

// OffsetDays returns the current offset converted to days, the unit the
// orbit propagator consumes.
func (c *Clock) OffsetDays() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cfg.Granularity == GranularityDays {
		return c.offset
	}
	return c.offset * 365.25
}

// JulianDate returns the current simulated instant as a Julian date.
func (c *Clock) JulianDate() float64 {
	return julian.TimeToJD(c.Now())
}

// Run drives the clock from wall time until ctx is done: every tick it
// measures elapsed real time against the anchor and advances. While
// paused the anchor tracks the present so resuming continues smoothly.
func (c *Clock) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.mu.Lock()
			elapsed := now.Sub(c.anchor).Seconds()
			c.anchor = now
			playing := c.playing
			c.mu.Unlock()

			if playing && elapsed > 0 {
				c.Advance(elapsed)
			}
		}
	}
}

package snapshotter

import "time"

// Policy decides when a tick may fire a snapshot.
//
// A fire is due when at least TickInterval ticks were counted since the last
// fire, at least TimeInterval elapsed since it, and Skip is unset. Both
// counters are reset only when a fire actually happens.
type Policy struct {
	TickInterval int
	TimeInterval time.Duration
	Skip         bool

	ticks    int
	lastFire time.Time
}

// NewPolicy returns a policy whose time window starts at now.
func NewPolicy(tickInterval int, timeInterval time.Duration, now time.Time) Policy {
	return Policy{
		TickInterval: tickInterval,
		TimeInterval: timeInterval,
		lastFire:     now,
	}
}

// Tick counts one tick and returns the ticks since the last fire.
func (p *Policy) Tick() int {
	p.ticks++
	return p.ticks
}

// Due reports whether a fire is allowed at now.
func (p *Policy) Due(now time.Time) bool {
	return !p.Skip && p.ticks >= p.TickInterval && p.Elapsed(now) >= p.TimeInterval
}

// Reset records a fire at now.
func (p *Policy) Reset(now time.Time) {
	p.ticks = 0
	p.lastFire = now
}

// Ticks returns the ticks counted since the last fire.
func (p *Policy) Ticks() int { return p.ticks }

// LastFire returns the time of the last fire, or of construction.
func (p *Policy) LastFire() time.Time { return p.lastFire }

// Elapsed returns the time since the last fire.
func (p *Policy) Elapsed(now time.Time) time.Duration {
	return now.Sub(p.lastFire)
}

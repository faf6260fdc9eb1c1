package snapshotter

import (
	"math/rand"
	"testing"
	"time"
)

func TestPolicy_Due(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		ticks   int
		elapsed time.Duration
		skip    bool
		want    bool
	}{
		{"not enough ticks", 2, time.Minute, false, false},
		{"not enough time", 3, 10 * time.Second, false, false},
		{"due", 3, 15 * time.Second, false, true},
		{"more than due", 7, time.Hour, false, true},
		{"skipped", 3, time.Minute, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy(3, 15*time.Second, start)
			p.Skip = tt.skip
			for i := 0; i < tt.ticks; i++ {
				p.Tick()
			}
			if got := p.Due(start.Add(tt.elapsed)); got != tt.want {
				t.Fatalf("Due() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPolicy_ResetClearsCounters(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewPolicy(1, 0, start)
	p.Tick()
	p.Tick()

	at := start.Add(time.Minute)
	p.Reset(at)
	if p.Ticks() != 0 {
		t.Fatalf("Ticks() = %d, want 0", p.Ticks())
	}
	if !p.LastFire().Equal(at) {
		t.Fatalf("LastFire() = %v, want %v", p.LastFire(), at)
	}
	if p.Due(at) {
		t.Fatal("Due() = true right after Reset")
	}
}

// A random sequence of ticks fires exactly when the invariant holds, and
// every fire resets both counters.
func TestPolicy_RandomTickSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for round := 0; round < 200; round++ {
		interval := 1 + rng.Intn(5)
		window := time.Duration(rng.Intn(10)) * time.Second
		p := NewPolicy(interval, window, start)

		now := start
		ticks := 0
		last := start
		for i := 0; i < 100; i++ {
			now = now.Add(time.Duration(rng.Intn(4000)) * time.Millisecond)
			p.Skip = rng.Intn(10) == 0

			p.Tick()
			ticks++
			want := ticks >= interval && now.Sub(last) >= window && !p.Skip
			if got := p.Due(now); got != want {
				t.Fatalf("round %d tick %d: Due() = %v, want %v", round, i, got, want)
			}
			if want {
				p.Reset(now)
				ticks = 0
				last = now
			}
		}
	}
}

// Package train runs the ring-world train simulator: a fixed fleet of
// trains circling the street's CIRC-tile ring, boarding waiting
// passengers and disembarking riders whose destination station has
// been crossed. The tick loop follows the teacher's Hub.run ticker
// idiom (server/sse.go), generalized from a stale-connection reaper to
// a physics/boarding step.
package train

import (
	"sort"
	"sync"

	"thestreet/internal/world"
)

// Train is one moving vehicle on the ring.
type Train struct {
	ID        int
	X         float64 // tiles, unwrapped; ring-wrapped only at comparison time
	Speed     float64 // tiles/second
	Clockwise bool
}

// Fleet holds the live train positions under its own lock — separate
// from the world's RWMutex because trains are a self-contained physics
// state the tick loop owns, while boarding/riding mutate state.World
// through its own lock (§9: "both contend for the same write lock;
// the tick holds it briefly").
type Fleet struct {
	mu     sync.Mutex
	trains []Train
}

// Update is one tick's positional delta, used to test boarding/riding
// against the station(s) crossed this tick.
type Update struct {
	ID        int
	Prev      float64
	Next      float64
	Clockwise bool
}

// NewFleet seeds n trains evenly spaced around the ring, alternating
// direction, at the given speed.
func NewFleet(n int, speed float64) *Fleet {
	trains := make([]Train, 0, n)
	for i := 0; i < n; i++ {
		trains = append(trains, Train{
			ID:        i,
			X:         float64(i) * float64(world.CIRC) / float64(n),
			Speed:     speed,
			Clockwise: i%2 == 0,
		})
	}
	return &Fleet{trains: trains}
}

// Advance moves every train by dt seconds and returns the per-train
// before/after window used to test station crossings this tick.
func (f *Fleet) Advance(dtSeconds float64) []Update {
	f.mu.Lock()
	defer f.mu.Unlock()

	updates := make([]Update, 0, len(f.trains))
	for i := range f.trains {
		t := &f.trains[i]
		prev := t.X
		dir := 1.0
		if !t.Clockwise {
			dir = -1.0
		}
		next := prev + t.Speed*dir*dtSeconds
		t.X = next
		updates = append(updates, Update{ID: t.ID, Prev: prev, Next: next, Clockwise: t.Clockwise})
	}
	return updates
}

// Snapshot returns a stable-ordered copy of every train's public state.
func (f *Fleet) Snapshot() []Train {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]Train(nil), f.trains...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByID returns a copy of one train, or false if id is out of range.
func (f *Fleet) ByID(id int) (Train, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.trains {
		if t.ID == id {
			return t, true
		}
	}
	return Train{}, false
}

package train

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"thestreet/internal/proto"
	"thestreet/internal/state"
	"thestreet/internal/stats"
	"thestreet/internal/world"
)

// TickInterval is the simulator's fixed period (§4.5).
const TickInterval = 200 * time.Millisecond

// BroadcastEveryTicks is how often the full train_state snapshot goes
// out to every street/train occupant.
const BroadcastEveryTicks = 2

// Sim owns the fleet and drives boarding/disembark against the shared
// world state every tick.
type Sim struct {
	fleet *Fleet
	world *state.World
	log   zerolog.Logger

	tickCount int
}

// New builds a simulator over an already-seeded fleet.
func New(fleet *Fleet, w *state.World, log zerolog.Logger) *Sim {
	return &Sim{fleet: fleet, world: w, log: log}
}

// Run advances the simulation every TickInterval until ctx is cancelled.
// Modeled on the teacher's Hub.run ticker loop (server/sse.go), which
// drives a periodic maintenance step off of time.NewTicker rather than
// a timer re-armed by hand.
func (s *Sim) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			s.tick(dt)
		}
	}
}

func (s *Sim) tick(dt float64) {
	updates := s.fleet.Advance(dt)
	stats.SetActiveTrains(int64(len(updates)))

	byID := make(map[int]Update, len(updates))
	for _, u := range updates {
		byID[u.ID] = u
	}

	s.processBoarding(updates)
	s.processRiders(byID)

	s.tickCount++
	if s.tickCount%BroadcastEveryTicks == 0 {
		s.broadcastTrainState()
	}
}

// processBoarding implements §4.5 "Boarding": the first train update
// (in iteration order) that passed a waiting user's station wins.
func (s *Sim) processBoarding(updates []Update) {
	for userID, req := range s.world.BoardingRequests() {
		u := s.world.FindUser(userID)
		if u == nil {
			s.world.ClearBoarding(userID)
			continue
		}
		if u.Position.MapID != world.StationMapID(req.StationX) {
			s.world.ClearBoarding(userID)
			continue
		}
		for _, upd := range updates {
			if !world.Passed(upd.Prev, upd.Next, req.StationX, upd.Clockwise) {
				continue
			}
			s.boardTrain(userID, upd.ID, req.DestinationX)
			break
		}
	}
}

func (s *Sim) boardTrain(userID string, trainID int, destinationX int) {
	cx, cy := world.TrainCenter()
	pos := world.Position{MapID: world.TrainMapID(trainID), X: cx, Y: cy}

	oldMapID, err := s.world.ApplyTransition(userID, pos)
	if err != nil {
		return
	}
	s.world.SetRide(userID, TrainRideFrom(trainID, destinationX))

	s.world.SendToUser(userID, proto.New(proto.TypeServerMapChange, nowMillis(), proto.ServerMapChangePayload{
		MapID:    pos.MapID,
		Position: proto.PositionPayload{MapID: pos.MapID, X: pos.X, Y: pos.Y},
	}))
	s.world.SendToUser(userID, proto.New(proto.TypeServerNotice, nowMillis(), proto.ServerNoticePayload{Text: "boarded train"}))

	state.RefreshNearby(s.world, oldMapID)
	state.RefreshNearby(s.world, pos.MapID)
}

// processRiders implements §4.5 "Riders".
func (s *Sim) processRiders(byID map[int]Update) {
	for userID, ride := range s.world.Rides() {
		u := s.world.FindUser(userID)
		if u == nil {
			s.world.ClearRide(userID)
			continue
		}
		if u.Position.MapID != world.TrainMapID(ride.TrainID) {
			s.world.ClearRide(userID)
			continue
		}
		upd, ok := byID[ride.TrainID]
		if !ok {
			continue
		}
		if !world.Passed(upd.Prev, upd.Next, ride.DestinationX, upd.Clockwise) {
			continue
		}
		s.disembark(userID, ride, upd.Clockwise)
	}
}

func (s *Sim) disembark(userID string, ride state.TrainRide, clockwise bool) {
	var interiorY int
	if clockwise {
		interiorY = world.H - 2 // bottom-door interior
	} else {
		interiorY = 1 // top-door interior
	}
	pos := world.Position{MapID: world.StationMapID(ride.DestinationX), X: world.DoorColumn, Y: interiorY}

	oldMapID, err := s.world.ApplyTransition(userID, pos)
	if err != nil {
		return
	}
	s.world.ClearRide(userID)

	s.world.SendToUser(userID, proto.New(proto.TypeServerMapChange, nowMillis(), proto.ServerMapChangePayload{
		MapID:    pos.MapID,
		Position: proto.PositionPayload{MapID: pos.MapID, X: pos.X, Y: pos.Y},
	}))
	s.world.SendToUser(userID, proto.New(proto.TypeServerNotice, nowMillis(), proto.ServerNoticePayload{Text: "disembarked train"}))

	state.RefreshNearby(s.world, oldMapID)
	state.RefreshNearby(s.world, pos.MapID)
}

func (s *Sim) broadcastTrainState() {
	env := proto.New(proto.TypeServerTrainState, nowMillis(), trainStatePayload(s.fleet.Snapshot()))
	for _, sess := range s.world.AllSessions() {
		u := s.world.FindUser(sess.UserID)
		if u == nil {
			continue
		}
		parsed, err := world.ParseMapID(u.Position.MapID)
		if err != nil {
			continue
		}
		if parsed.Kind != world.KindStreet && parsed.Kind != world.KindTrain {
			continue
		}
		s.world.SendToUser(sess.UserID, env)
	}
}

func trainStatePayload(trains []Train) proto.ServerTrainStatePayload {
	out := make([]proto.TrainStateEntry, 0, len(trains))
	for _, t := range trains {
		out = append(out, proto.TrainStateEntry{ID: t.ID, X: t.X, Clockwise: t.Clockwise})
	}
	return proto.ServerTrainStatePayload{Trains: out}
}

// TrainRideFrom constructs a state.TrainRide value; a thin constructor
// so callers outside this package never build the zero value by hand.
func TrainRideFrom(trainID, destinationX int) state.TrainRide {
	return state.TrainRide{TrainID: trainID, DestinationX: destinationX}
}

func nowMillis() int64 { return time.Now().UnixMilli() }

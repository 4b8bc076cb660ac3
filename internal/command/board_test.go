package command

import (
	"testing"

	"thestreet/internal/proto"
	"thestreet/internal/world"
)

func TestHandleBoardRequiresStandingInStation(t *testing.T) {
	r, w, _ := newTestRouter()
	u := w.CreateUser("pk")
	w.ApplyTransition(u.ID, world.Position{MapID: world.StreetMapID, X: 5, Y: 5})
	ch := connectUser(w, w.FindUser(u.ID))

	r.Dispatch(Caller{User: w.FindUser(u.ID)}, "board", []string{"east"})

	env := drainEnvelope(t, ch)
	if env.Type != proto.TypeServerError {
		t.Fatalf("expected server.error off-station, got %s", env.Type)
	}
}

func TestHandleBoardRecordsBoardingRequest(t *testing.T) {
	r, w, _ := newTestRouter()
	stationX := world.StationColumns["north"]
	u := w.CreateUser("pk")
	w.ApplyTransition(u.ID, world.Position{MapID: world.StationMapID(stationX), X: world.DoorColumn, Y: 1})
	ch := connectUser(w, w.FindUser(u.ID))

	r.Dispatch(Caller{User: w.FindUser(u.ID)}, "board", []string{"east"})

	env := drainEnvelope(t, ch)
	if env.Type != proto.TypeServerNotice {
		t.Fatalf("expected server.notice acknowledging the boarding request, got %s", env.Type)
	}
	req, ok := w.BoardingRequests()[u.ID]
	if !ok {
		t.Fatalf("expected a boarding request to be recorded")
	}
	if req.StationX != stationX || req.DestinationX != world.StationColumns["east"] {
		t.Fatalf("unexpected boarding request %+v", req)
	}
}

func TestHandleDepartRequiresRiding(t *testing.T) {
	r, w, _ := newTestRouter()
	u := w.CreateUser("pk")
	w.ApplyTransition(u.ID, world.Position{MapID: world.StreetMapID, X: 5, Y: 5})
	ch := connectUser(w, w.FindUser(u.ID))

	r.Dispatch(Caller{User: w.FindUser(u.ID)}, "depart", []string{"west"})

	env := drainEnvelope(t, ch)
	if env.Type != proto.TypeServerError {
		t.Fatalf("expected server.error when not riding a train, got %s", env.Type)
	}
}

func TestHandleDepartUpdatesRideDestination(t *testing.T) {
	r, w, _ := newTestRouter()
	cx, cy := world.TrainCenter()
	u := w.CreateUser("pk")
	w.ApplyTransition(u.ID, world.Position{MapID: world.TrainMapID(2), X: cx, Y: cy})
	ch := connectUser(w, w.FindUser(u.ID))

	r.Dispatch(Caller{User: w.FindUser(u.ID)}, "depart", []string{"west"})

	drainEnvelope(t, ch)
	ride, ok := w.Rides()[u.ID]
	if !ok {
		t.Fatalf("expected a ride to be recorded")
	}
	if ride.TrainID != 2 || ride.DestinationX != world.StationColumns["west"] {
		t.Fatalf("unexpected ride %+v", ride)
	}
}

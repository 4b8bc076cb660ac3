package command

import (
	"strconv"

	"thestreet/internal/state"
	"thestreet/internal/world"
)

// stationColumnFor resolves a "board"/"depart" direction argument: a
// compass label (north/east/south/west) or a literal station column.
func stationColumnFor(arg string) (int, bool) {
	if col, ok := world.StationColumns[arg]; ok {
		return col, true
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if _, ok := world.StationColumns[labelForColumn(n)]; ok {
			return n, true
		}
	}
	return 0, false
}

func labelForColumn(col int) string {
	for label, c := range world.StationColumns {
		if c == col {
			return label
		}
	}
	return ""
}

// handleBoard implements §4.6 "board <dir>": the caller must be
// standing in the station matching their current position's column;
// records a BoardingRequest toward the named destination station.
func (r *Router) handleBoard(caller Caller, args []string) {
	u := caller.User
	parsed, err := world.ParseMapID(u.Position.MapID)
	if err != nil || parsed.Kind != world.KindStation {
		r.sendError(caller, "invalid_command", "board requires standing in a station")
		return
	}
	if len(args) < 1 {
		r.sendError(caller, "invalid_command", "usage: board <dir>")
		return
	}
	dest, ok := stationColumnFor(args[0])
	if !ok {
		r.sendError(caller, "invalid_command", "unknown destination "+args[0])
		return
	}
	r.World.SetBoarding(u.ID, state.BoardingRequest{StationX: parsed.StationX, DestinationX: dest})
	r.notice(caller, "waiting for a train toward "+args[0])
}

// handleDepart implements §4.6 "depart <dir>": while riding, change
// the ride's destination station without leaving the train.
func (r *Router) handleDepart(caller Caller, args []string) {
	u := caller.User
	parsed, err := world.ParseMapID(u.Position.MapID)
	if err != nil || parsed.Kind != world.KindTrain {
		r.sendError(caller, "invalid_command", "depart requires riding a train")
		return
	}
	if len(args) < 1 {
		r.sendError(caller, "invalid_command", "usage: depart <dir>")
		return
	}
	dest, ok := stationColumnFor(args[0])
	if !ok {
		r.sendError(caller, "invalid_command", "unknown destination "+args[0])
		return
	}
	r.World.SetRide(u.ID, state.TrainRide{TrainID: parsed.TrainID, DestinationX: dest})
	r.notice(caller, "now departing toward "+args[0])
}

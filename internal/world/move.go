package world

// ResultKind is the outcome of an attempted single-tile move.
type ResultKind int

const (
	Blocked ResultKind = iota
	Moved
	Transition
)

// MoveResult is the outcome of TryMove: either the position is unchanged
// (Blocked), the user steps onto an adjacent tile on the same map (Moved),
// or the user crosses into a different map (Transition).
type MoveResult struct {
	Kind     ResultKind
	Position Position
	// RoomSide/RoomX are populated when Kind == Transition and the
	// destination is a room, so callers can run an access check before
	// committing the move.
	RoomSide string
	RoomX    int
	IsRoom   bool
}

// TryMove computes the result of moving one tile in the given direction
// from pos. It is a pure function of map geometry: it never mutates
// anything and performs no access-control checks (those are the caller's
// responsibility for Transition results into rooms).
func TryMove(pos Position, dir Direction) (MoveResult, error) {
	parsed, err := ParseMapID(pos.MapID)
	if err != nil {
		return MoveResult{}, err
	}
	dx, dy := dir.Delta()
	nx, ny := pos.X+dx, pos.Y+dy

	switch parsed.Kind {
	case KindStreet:
		return tryMoveStreet(pos, nx, ny)
	case KindRoom:
		return tryMoveRoom(parsed, nx, ny)
	case KindStation:
		return tryMoveStation(parsed, nx, ny)
	case KindTrain:
		return tryMoveTrain(pos, nx, ny)
	}
	return MoveResult{Kind: Blocked}, nil
}

func tryMoveStreet(pos Position, nx, ny int) (MoveResult, error) {
	if ny < 0 || ny >= H {
		return MoveResult{Kind: Blocked}, nil
	}
	switch StreetTileAt(nx, ny) {
	case StreetWall:
		return MoveResult{Kind: Blocked}, nil
	case StreetDoorNorth:
		side := "north"
		interior := RoomDoorInteriorY(side)
		return MoveResult{
			Kind:     Transition,
			Position: Position{MapID: RoomMapID(side, nx), X: DoorColumn, Y: interior},
			RoomSide: side, RoomX: mod(nx, CIRC), IsRoom: true,
		}, nil
	case StreetDoorSouth:
		side := "south"
		interior := RoomDoorInteriorY(side)
		return MoveResult{
			Kind:     Transition,
			Position: Position{MapID: RoomMapID(side, nx), X: DoorColumn, Y: interior},
			RoomSide: side, RoomX: mod(nx, CIRC), IsRoom: true,
		}, nil
	case StreetStationDoorTop, StreetStationDoorBottom:
		label, _ := stationAtColumn(nx)
		stationX := StationColumns[label]
		var interior int
		// Entering from the row above the tracks lands at the station's
		// top door; from the row below, at the bottom door.
		if StreetTileAt(nx, ny) == StreetStationDoorTop {
			interior = 1
		} else {
			interior = H - 2
		}
		return MoveResult{
			Kind:     Transition,
			Position: Position{MapID: StationMapID(stationX), X: DoorColumn, Y: interior},
		}, nil
	default:
		return MoveResult{Kind: Moved, Position: Position{MapID: pos.MapID, X: nx, Y: ny}}, nil
	}
}

func tryMoveRoom(parsed ParsedMap, nx, ny int) (MoveResult, error) {
	switch RoomTileAt(parsed.Side, nx, ny) {
	case RoomWall, RoomCustomizer:
		return MoveResult{Kind: Blocked}, nil
	case RoomDoor:
		var streetY int
		if parsed.Side == "north" {
			streetY = 1
		} else {
			streetY = H - 2
		}
		return MoveResult{
			Kind:     Transition,
			Position: Position{MapID: StreetMapID, X: parsed.StreetX, Y: streetY},
		}, nil
	default:
		return MoveResult{
			Kind:     Moved,
			Position: Position{MapID: RoomMapID(parsed.Side, parsed.StreetX), X: nx, Y: ny},
		}, nil
	}
}

func tryMoveStation(parsed ParsedMap, nx, ny int) (MoveResult, error) {
	switch StationTileAt(nx, ny) {
	case StationWall:
		return MoveResult{Kind: Blocked}, nil
	case StationDoorTop:
		return MoveResult{
			Kind:     Transition,
			Position: Position{MapID: StreetMapID, X: parsed.StationX, Y: StationRowTop},
		}, nil
	case StationDoorBottom:
		return MoveResult{
			Kind:     Transition,
			Position: Position{MapID: StreetMapID, X: parsed.StationX, Y: StationRowBot},
		}, nil
	default:
		return MoveResult{
			Kind:     Moved,
			Position: Position{MapID: StationMapID(parsed.StationX), X: nx, Y: ny},
		}, nil
	}
}

func tryMoveTrain(pos Position, nx, ny int) (MoveResult, error) {
	if TrainTileAt(nx, ny) == TrainWall {
		return MoveResult{Kind: Blocked}, nil
	}
	return MoveResult{Kind: Moved, Position: Position{MapID: pos.MapID, X: nx, Y: ny}}, nil
}

// Passed reports whether a train travelling from prev to next (mod CIRC,
// in the given rotational direction) crossed station x. prev == next is
// always false: a stationary train passes nothing.
func Passed(prev, next float64, station int, clockwise bool) bool {
	if prev == next {
		return false
	}
	s := float64(mod(station, CIRC))
	p := mod2(prev)
	n := mod2(next)

	if clockwise {
		if p <= n {
			return p <= s && s <= n
		}
		return s >= p || s <= n
	}
	// Counter-clockwise: symmetric with roles swapped.
	if p >= n {
		return n <= s && s <= p
	}
	return s <= p || s >= n
}

func mod2(x float64) float64 {
	r := x - float64(CIRC)*float64(int(x/float64(CIRC)))
	if r < 0 {
		r += float64(CIRC)
	}
	return r
}

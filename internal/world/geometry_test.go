package world

import "testing"

func TestParseMapIDRoundTrip(t *testing.T) {
	cases := []struct {
		id   string
		kind MapKind
	}{
		{StreetMapID, KindStreet},
		{RoomMapID("north", 12), KindRoom},
		{RoomMapID("south", 4100), KindRoom}, // wraps past CIRC
		{StationMapID(CIRC / 4), KindStation},
		{TrainMapID(3), KindTrain},
	}
	for _, c := range cases {
		parsed, err := ParseMapID(c.id)
		if err != nil {
			t.Fatalf("ParseMapID(%q): %v", c.id, err)
		}
		if parsed.Kind != c.kind {
			t.Fatalf("ParseMapID(%q) kind = %v, want %v", c.id, parsed.Kind, c.kind)
		}
	}
}

func TestRoomMapIDWrapsStreetX(t *testing.T) {
	a := RoomMapID("north", 12)
	b := RoomMapID("north", 12+CIRC)
	if a != b {
		t.Fatalf("room map ids should be equal mod CIRC: %q != %q", a, b)
	}
}

func TestParseMapIDRejectsUnknownSide(t *testing.T) {
	if _, err := ParseMapID("room/east:10"); err == nil {
		t.Fatalf("expected error for invalid room side")
	}
}

func TestParseMapIDRejectsGarbage(t *testing.T) {
	for _, id := range []string{"", "nonsense", "room/north", "station/abc", "train/x"} {
		if _, err := ParseMapID(id); err == nil {
			t.Fatalf("expected error parsing %q", id)
		}
	}
}

func TestStreetTileDoorsAtSpacing(t *testing.T) {
	if tile := StreetTileAt(0, 0); tile != StreetDoorNorth {
		t.Fatalf("expected north door at x=0, got %v", tile)
	}
	if tile := StreetTileAt(1, 0); tile != StreetWall {
		t.Fatalf("expected wall at x=1,y=0, got %v", tile)
	}
	if tile := StreetTileAt(3, H-1); tile != StreetDoorSouth {
		t.Fatalf("expected south door at x=3,y=H-1, got %v", tile)
	}
}

func TestStreetTileStationDoors(t *testing.T) {
	stationX := StationColumns["east"]
	if tile := StreetTileAt(stationX, StationRowTop); tile != StreetStationDoorTop {
		t.Fatalf("expected station door top at station column, got %v", tile)
	}
	if tile := StreetTileAt(stationX, StationRowBot); tile != StreetStationDoorBottom {
		t.Fatalf("expected station door bottom at station column, got %v", tile)
	}
}

func TestRoomTileCustomizerAndDoor(t *testing.T) {
	if tile := RoomTileAt("north", 1, 1); tile != RoomCustomizer {
		t.Fatalf("expected customizer at (1,1), got %v", tile)
	}
	if tile := RoomTileAt("north", DoorColumn, H-1); tile != RoomDoor {
		t.Fatalf("expected door on north room's bottom wall, got %v", tile)
	}
	if tile := RoomTileAt("south", DoorColumn, 0); tile != RoomDoor {
		t.Fatalf("expected door on south room's top wall, got %v", tile)
	}
}

func TestStationAndTrainTilesWalled(t *testing.T) {
	if tile := StationTileAt(-1, 0); tile != StationWall {
		t.Fatalf("expected out-of-bounds station tile to be a wall")
	}
	if tile := TrainTileAt(0, 0); tile != TrainWall {
		t.Fatalf("expected train perimeter to be a wall")
	}
	if tile := TrainTileAt(TrainWidth/2, H/2); tile != TrainFloor {
		t.Fatalf("expected train interior to be floor")
	}
}

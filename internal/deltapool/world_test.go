package deltapool

// fakeWorld is a minimal, fully in-memory World used across the test
// suite. Sequence grouping is keyed by the bits of a Handle above its low
// 8 bits (a zero Handle belongs to no sequence), so
// tests can construct "same sequence" transitions without needing a real
// state table.
type fakeWorld struct {
	tic         Tic
	objects     []LiveObject
	players     []LivePlayer
	playerOK    []bool
	sectors     []LiveSector
	sides       []LiveSide
	polyobjects []LivePolyobject
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		players:  make([]LivePlayer, MaxPlayers),
		playerOK: make([]bool, MaxPlayers),
	}
}

func (w *fakeWorld) Tic() Tic { return w.tic }

func (w *fakeWorld) Objects() []LiveObject { return w.objects }

func (w *fakeWorld) NumPlayers() int { return len(w.players) }

func (w *fakeWorld) Player(idx PlayerIndex) (LivePlayer, bool) {
	if int(idx) < 0 || int(idx) >= len(w.players) {
		return LivePlayer{}, false
	}
	return w.players[idx], w.playerOK[idx]
}

func (w *fakeWorld) NumSectors() int               { return len(w.sectors) }
func (w *fakeWorld) Sector(idx MapIndex) LiveSector { return w.sectors[idx] }
func (w *fakeWorld) SectorSoundOrigin(idx MapIndex) [3]float64 {
	return [3]float64{0, 0, 0}
}

func (w *fakeWorld) NumSides() int           { return len(w.sides) }
func (w *fakeWorld) Side(idx MapIndex) LiveSide { return w.sides[idx] }
func (w *fakeWorld) SideSoundOrigin(idx MapIndex, flags Flags) [3]float64 {
	return [3]float64{0, 0, 0}
}

func (w *fakeWorld) NumPolyobjects() int { return len(w.polyobjects) }
func (w *fakeWorld) Polyobject(idx MapIndex) LivePolyobject {
	return w.polyobjects[idx]
}
func (w *fakeWorld) PolyobjectOrigin(idx MapIndex) [3]float64 {
	return [3]float64{w.polyobjects[idx].Dest[0], w.polyobjects[idx].Dest[1], 0}
}

func (w *fakeWorld) SameStateSequence(a, b Handle) bool {
	if a == 0 || b == 0 {
		return false
	}
	return a>>8 == b>>8
}

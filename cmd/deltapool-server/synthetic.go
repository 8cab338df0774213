package main

import (
	"math"
	"sync"

	"github.com/doomsday-net/deltapool/internal/deltapool"
)

// syntheticWorld is a standalone World implementation used when no real
// game simulation is attached: a handful of objects orbiting the origin,
// one static sector and one static side (no polyobjects), purely so the engine has
// something to diff against for a demonstration run. It plays the same
// role as the teacher's synthetic point-cloud generator: a harness that
// exercises the real wire path without a live upstream producer.
type syntheticWorld struct {
	mu      sync.Mutex
	tic     deltapool.Tic
	objects []deltapool.LiveObject
	sector  deltapool.LiveSector
	side    deltapool.LiveSide
	poly    deltapool.LivePolyobject
}

func newSyntheticWorld(numOrbiters int) *syntheticWorld {
	w := &syntheticWorld{
		sector: deltapool.LiveSector{
			LightLevel: 200,
			Floor:      deltapool.PlaneSnapshot{Height: 0},
			Ceiling:    deltapool.PlaneSnapshot{Height: 256},
		},
	}
	for i := 0; i < numOrbiters; i++ {
		w.objects = append(w.objects, deltapool.LiveObject{
			ID:     deltapool.ObjectID(i + 1),
			Radius: 20,
			Height: 56,
			Health: 100,
		})
	}
	return w
}

// Advance moves every orbiter one step along its circle and bumps the tic
// counter. Called once per server tick before GenerateFrameDeltas.
func (w *syntheticWorld) Advance(tic deltapool.Tic) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tic = tic
	t := float64(tic) / 35.0
	for i := range w.objects {
		radius := 200.0 + float64(i)*64
		speed := 0.5 + float64(i)*0.1
		w.objects[i].Origin = [3]float64{
			radius * math.Cos(t*speed+float64(i)),
			radius * math.Sin(t*speed+float64(i)),
			0,
		}
		w.objects[i].Angle = uint32(t * speed * float64(1<<32) / (2 * math.Pi))
	}
}

func (w *syntheticWorld) Tic() deltapool.Tic { return w.tic }

func (w *syntheticWorld) Objects() []deltapool.LiveObject {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]deltapool.LiveObject, len(w.objects))
	copy(out, w.objects)
	return out
}

func (w *syntheticWorld) NumPlayers() int { return 0 }

func (w *syntheticWorld) Player(deltapool.PlayerIndex) (deltapool.LivePlayer, bool) {
	return deltapool.LivePlayer{}, false
}

func (w *syntheticWorld) NumSectors() int                          { return 1 }
func (w *syntheticWorld) Sector(deltapool.MapIndex) deltapool.LiveSector { return w.sector }
func (w *syntheticWorld) SectorSoundOrigin(deltapool.MapIndex) [3]float64 {
	return [3]float64{0, 0, 128}
}

func (w *syntheticWorld) NumSides() int                        { return 1 }
func (w *syntheticWorld) Side(deltapool.MapIndex) deltapool.LiveSide { return w.side }
func (w *syntheticWorld) SideSoundOrigin(deltapool.MapIndex, deltapool.Flags) [3]float64 {
	return [3]float64{0, 0, 64}
}

func (w *syntheticWorld) NumPolyobjects() int                              { return 0 }
func (w *syntheticWorld) Polyobject(deltapool.MapIndex) deltapool.LivePolyobject { return w.poly }
func (w *syntheticWorld) PolyobjectOrigin(deltapool.MapIndex) [3]float64   { return [3]float64{} }

func (w *syntheticWorld) SameStateSequence(a, b deltapool.Handle) bool { return a>>8 == b>>8 }

// CurrentTic implements transport.TickSource.
func (w *syntheticWorld) CurrentTic() int32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return int32(w.tic)
}

// LiveObjects implements transport.TickSource.
func (w *syntheticWorld) LiveObjects() []deltapool.LiveObject { return w.Objects() }

package deltapool

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// zWeight scales the vertical axis before the planar L1 approximation is
// taken, matching the original engine's treatment of height differences:
// vertical separation is judged slightly more harshly than horizontal,
// since a player is far more likely to notice something popping in
// overhead or underfoot.
const zWeight = 1.2

// OwnerInfo is the snapshot of a pool's owning client used by both the
// distance and the postponement logic: where the client's camera
// currently is, its ack threshold, and its sound cull base.
type OwnerInfo struct {
	CameraObject ObjectID
	Origin       [3]float64
	Angle        uint32

	// PlanarSpeed is |forward move| + |side move| of the owning player.
	// It is recorded with the rest of the snapshot; neither the rater nor
	// the postponement check reads it.
	PlanarSpeed float64

	// AckThreshold is the minimum age, in milliseconds, an UNACKED delta
	// must reach before it is reconsidered for retransmission.
	AckThreshold int64

	// SoundMaxDistanceBase scales a sound delta's volume into a cull
	// distance; see maxSoundDistance.
	SoundMaxDistanceBase float64
}

// Locator resolves the world position behind a delta that does not carry
// its own origin in its payload: a player's position lives on its owning
// object; a sector/side/polyobject sound's emitter point is geometry the
// pool has no other way to reach. It is implemented by the engine, backed
// jointly by the object register and the live World.
type Locator interface {
	ObjectOrigin(id ObjectID) (origin [3]float64, ok bool)
	SectorSoundOrigin(idx MapIndex) [3]float64
	SideSoundOrigin(idx MapIndex, flags Flags) [3]float64
	PolyobjectOrigin(idx MapIndex) [3]float64
}

// weightedDistance is the |dx|+|dy|+zWeight*|dz| approximation used
// throughout the rater in place of a true Euclidean distance: cheap to
// compute per-delta, per-tick, across every pool.
func weightedDistance(a, b [3]float64) float64 {
	weighted := [3]float64{a[0], a[1], a[2] * zWeight}
	other := [3]float64{b[0], b[1], b[2] * zWeight}
	return floats.Distance(weighted[:], other[:], 1)
}

// distance computes the weighted distance between a pool owner and the
// subject of a delta, dispatching on Kind. Object deltas need no lookup
// since their payload carries an origin; every other located kind goes
// through loc, and an object-sound falls back to its (normally unset)
// Object payload origin when loc is nil or the object is not registered.
// A plain side delta and a generic sound are not located: their distance
// is 1.
func distance(d *Delta, owner *OwnerInfo, loc Locator) float64 {
	switch d.Kind {
	case KindObject:
		return weightedDistance(owner.Origin, d.Object.Origin) + 1

	case KindObjectSound:
		if loc != nil {
			if origin, ok := loc.ObjectOrigin(ObjectID(d.ID)); ok {
				return weightedDistance(owner.Origin, origin) + 1
			}
		}
		return weightedDistance(owner.Origin, d.Object.Origin) + 1

	case KindPlayer:
		if loc != nil {
			if origin, ok := loc.ObjectOrigin(d.Player.Mobj); ok {
				return weightedDistance(owner.Origin, origin) + 1
			}
		}
		return 1

	case KindSector:
		if loc == nil {
			return 1
		}
		return weightedDistance(owner.Origin, loc.SectorSoundOrigin(MapIndex(d.ID))) + 1

	case KindSectorSound:
		if loc == nil {
			return 1
		}
		return weightedDistance(owner.Origin, loc.SectorSoundOrigin(MapIndex(d.ID))) + 1

	case KindSide:
		return 1

	case KindSideSound:
		if loc == nil {
			return 1
		}
		return weightedDistance(owner.Origin, loc.SideSoundOrigin(MapIndex(d.ID), d.Flags)) + 1

	case KindPolyobject:
		if loc == nil {
			return 1
		}
		return weightedDistance(owner.Origin, loc.PolyobjectOrigin(MapIndex(d.ID))) + 1

	case KindPolyobjectSound:
		if loc == nil {
			return 1
		}
		return weightedDistance(owner.Origin, loc.PolyobjectOrigin(MapIndex(d.ID))) + 1

	case KindGenericSound:
		return 1

	default:
		return 1
	}
}

// maxSoundDistance returns the distance beyond which a sound delta should
// be culled entirely rather than merely scored low, derived from its
// volume: quieter sounds are audible over a shorter radius. A non-positive
// volume (a stop event) is never culled by distance.
func maxSoundDistance(d *Delta, base float64) float64 {
	if !isSound(d) || d.Sound.Volume <= 0 {
		return math.Inf(1)
	}
	return d.Sound.Volume * base
}

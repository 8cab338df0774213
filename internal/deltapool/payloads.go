package deltapool

import "math"

// Handle is an opaque identity token for a state, material, or owning-object
// reference. The engine never dereferences a Handle; it only compares two
// handles for equality. This is what lets RegObjects and the registers
// outlive the arena-bulk-free that happens at map change (see Engine.InitPools).
type Handle uint64

// sentinelCoord/sentinelZ mirror the sentinel RegObject used when no registration
// exists yet for an id, so the first diff against it looks like a full
// create.
const (
	sentinelCoord = -math.MaxFloat64
	sentinelZ     = -1e6
)

// ObjectPayload is both the object delta payload and the register's
// per-object snapshot (RegObject in spec terms): the two are the same
// shape because a delta for an object is defined as "the registered state,
// as it will be after this delta is applied".
type ObjectPayload struct {
	ID ObjectID

	Origin   [3]float64
	Momentum [3]float64
	FloorZ   float64
	CeilingZ float64

	Angle    uint32
	Selector int

	Radius float64
	Height float64

	DDFlags uint32
	Flags   uint32
	Flags2  uint32
	Flags3  uint32

	Health    int
	FloorClip float64

	Translucency int
	FadeTarget   int
	Type         int32
	State        Handle
}

// sentinelObject stands in for "never registered" so a diff against it
// looks like a full creation.
func sentinelObject(id ObjectID) ObjectPayload {
	return ObjectPayload{
		ID:     id,
		Origin: [3]float64{sentinelCoord, sentinelCoord, sentinelZ},
		Type:   -1,
	}
}

// PlayerSpriteState is one player-sprite (weapon) slot.
type PlayerSpriteState struct {
	State   Handle
	Tics    int
	Alpha   float64
	StateID int
	OffsetX float64
	OffsetY float64
}

// PlayerPayload is both the player delta payload and the register's
// per-slot player snapshot.
type PlayerPayload struct {
	Mobj          ObjectID
	ForwardMove   float64
	SideMove      float64
	ViewAngle     uint32
	TurnDelta     uint32 // angle - lastAngle
	Friction      float64
	ExtraLight    int
	FixedColorMap int
	Filter        uint32 // packed RGBA
	ClYaw         float64
	ClPitch       float64
	PSprites      [2]PlayerSpriteState
}

// PlaneSnapshot is one sector plane (floor or ceiling).
type PlaneSnapshot struct {
	Height   float64
	Target   float64
	Speed    float64
	TintRGBA [4]float64
	Material Handle
}

// SectorPayload is both the sector delta payload and the register's
// per-sector snapshot.
type SectorPayload struct {
	LightLevel float64
	TintColor  [3]float64
	Floor      PlaneSnapshot
	Ceiling    PlaneSnapshot
}

// SideSection is one of a side's three surfaces.
type SideSection struct {
	Material      Handle
	TintRGBA      [4]float64 // alpha only meaningful for Middle
	BlendMode     int        // only meaningful for Middle
	IsFixMaterial bool       // true when the engine injected a patch material for a missing definition; such a section is never diffed
}

// SidePayload is both the side delta payload and the register's per-side
// snapshot.
type SidePayload struct {
	Top, Middle, Bottom SideSection
	LineFlags           uint32 // low 8 bits significant
	SideFlags           uint32 // low 8 bits significant
}

// PolyobjectPayload is both the polyobject delta payload and the
// register's per-polyobject snapshot.
type PolyobjectPayload struct {
	Dest      [2]float64
	Speed     float64
	DestAngle uint32
	AngSpeed  float64
}

// SoundPayload carries a sound event. Emitter is only meaningful for
// KindObjectSound; the sector/side/polyobject sound kinds locate their
// emitter through the delta's ID plus the SNDDF_* selector bits instead.
type SoundPayload struct {
	SoundID  int
	Emitter  Handle
	Volume   float64
	Repeat   bool
}

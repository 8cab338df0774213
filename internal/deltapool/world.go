package deltapool

// World is the external collaborator the diff generator reads from: the
// live game world. Map loading, BSP, collision, rendering, and game tic
// logic all live on the other side of this interface; the engine only
// ever reads through it.
type World interface {
	// Tic is the current simulation step, recorded into a Register when it
	// is (re)built.
	Tic() Tic

	// Objects returns every live "thinking" object currently in the
	// world. Objects flagged IsLocal are never diffed (they belong to no
	// client's view of the shared world).
	Objects() []LiveObject

	// NumPlayers is the number of player slots the world exposes
	// (0..MaxPlayers).
	NumPlayers() int

	// Player returns the live snapshot for slot idx. ok is false if the
	// slot is not currently in-game or should be ignored by replication
	// (e.g. a spectator).
	Player(idx PlayerIndex) (player LivePlayer, ok bool)

	NumSectors() int
	Sector(idx MapIndex) LiveSector
	// SectorSoundOrigin is the point a sector-sound emitted from idx
	// should be judged to come from, for distance purposes.
	SectorSoundOrigin(idx MapIndex) [3]float64

	NumSides() int
	Side(idx MapIndex) LiveSide
	// SideSoundOrigin is the point a side-sound emitted from idx should be
	// judged to come from. flags carries the SNDDF_SIDE_* selector bits
	// identifying which of the side's surfaces is the emitter.
	SideSoundOrigin(idx MapIndex, flags Flags) [3]float64

	NumPolyobjects() int
	Polyobject(idx MapIndex) LivePolyobject
	// PolyobjectOrigin is the polyobject's current centre point, for
	// distance purposes. It is distinct from LivePolyobject.Dest, which is
	// the polyobject's movement target rather than its current position.
	PolyobjectOrigin(idx MapIndex) [3]float64

	// SameStateSequence groups adjacent animation states belonging to one
	// sequence. Only inter-sequence transitions are worth telling a
	// client about; intra-sequence ticks are assumed already known
	// clientside. This predicate is entirely game-supplied.
	SameStateSequence(a, b Handle) bool
}

// LiveObject is a read-only view of one live mobile object.
type LiveObject struct {
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
	ObjFlags uint32
	Flags2  uint32
	Flags3  uint32

	Health    int
	FloorClip float64

	Translucency int
	FadeTarget   int
	Type         int32
	State        Handle

	// IsNullState is true once the object's animation sequence has ended
	// (state == nil in the original engine). The diff generator aborts
	// emission for such an object; it is cleaned up by the next null pass.
	IsNullState bool

	// IsLocal objects (DDMF_LOCAL) are never diffed: they are private to
	// whichever side created them and never replicated.
	IsLocal bool

	// IsMissile marks an object flagged DDMF_MISSILE. The engine does not
	// read it: missile-record eligibility is taken from the ddmfMissile bit
	// of DDFlags.
	IsMissile bool
}

// LivePlayer is a read-only view of one live player slot.
type LivePlayer struct {
	MobjID        ObjectID
	ForwardMove   float64
	SideMove      float64
	ViewAngle     uint32
	LastViewAngle uint32
	Friction      float64
	ExtraLight    int
	FixedColorMap int
	Filter        uint32
	ClYaw         float64
	ClPitch       float64
	PSprites      [2]PlayerSpriteState
}

// LiveSector is a read-only view of one live sector.
type LiveSector struct {
	LightLevel float64
	TintColor  [3]float64
	Floor      PlaneSnapshot
	Ceiling    PlaneSnapshot
}

// LiveSide is a read-only view of one live side.
type LiveSide struct {
	Top, Middle, Bottom SideSection
	LineFlags           uint32
	SideFlags           uint32
}

// LivePolyobject is a read-only view of one live polyobject.
type LivePolyobject struct {
	Dest      [2]float64
	Speed     float64
	DestAngle uint32
	AngSpeed  float64
}

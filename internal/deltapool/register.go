package deltapool

// regObjectNode is one entry in the object hash's doubly-linked bucket
// list. Lists are walked with the "cache next before it can be freed"
// pattern throughout the diff generator, since several passes remove
// entries mid-traversal.
type regObjectNode struct {
	prev, next *regObjectNode
	obj        ObjectPayload
}

// objectIndex is the 1024-bucket hashed lookup of registered object
// snapshots (C2). Buckets are doubly-linked lists keyed by id & 0x3FF.
type objectIndex struct {
	buckets [objectHashBuckets]*regObjectNode
}

func (idx *objectIndex) find(id ObjectID) *regObjectNode {
	for n := idx.buckets[objectBucket(id)]; n != nil; n = n.next {
		if n.obj.ID == id {
			return n
		}
	}
	return nil
}

// addOrFind inserts a zeroed (sentinel) node for id if none exists, and
// returns the node either way.
func (idx *objectIndex) addOrFind(id ObjectID) *regObjectNode {
	if n := idx.find(id); n != nil {
		return n
	}
	n := &regObjectNode{obj: sentinelObject(id)}
	bucket := objectBucket(id)
	n.next = idx.buckets[bucket]
	if n.next != nil {
		n.next.prev = n
	}
	idx.buckets[bucket] = n
	return n
}

// store writes obj back into the index, inserting a node if needed.
func (idx *objectIndex) store(obj ObjectPayload) {
	n := idx.addOrFind(obj.ID)
	n.obj = obj
}

// remove unlinks and frees n from its bucket.
func (idx *objectIndex) remove(n *regObjectNode) {
	bucket := objectBucket(n.obj.ID)
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		idx.buckets[bucket] = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	n.prev, n.next = nil, nil
}

// removeID finds and removes the node for id, if any.
func (idx *objectIndex) removeID(id ObjectID) {
	if n := idx.find(id); n != nil {
		idx.remove(n)
	}
}

// reset forces a registered object back to the sentinel snapshot. Used
// when a player's owning object id changes: the old registered object
// must be zeroed so the next diff of that object id emits a full update
// rather than being shadowed by stale data.
func (idx *objectIndex) reset(id ObjectID) {
	if n := idx.find(id); n != nil {
		n.obj = sentinelObject(id)
	}
}

// each calls fn for every registered object, caching next before fn runs
// so fn may remove the current node.
func (idx *objectIndex) each(fn func(n *regObjectNode)) {
	for b := range idx.buckets {
		for n := idx.buckets[b]; n != nil; {
			next := n.next
			fn(n)
			n = next
		}
	}
}

// Register is a server-side snapshot of the full map, used as the
// reference for diffing (C1). Two registers exist per map: current
// (continuously updated) and initial (frozen at map load, used to
// bootstrap new clients).
type Register struct {
	tic       Tic
	isInitial bool

	objects objectIndex
	players [MaxPlayers]PlayerPayload

	sectors     []SectorPayload
	sides       []SidePayload
	polyobjects []PolyobjectPayload

	// floorSkipRef/ceilingSkipRef are the plane heights last used as the
	// reference point for the PLANE_SKIP_LIMIT hysteresis check. They are
	// distinct from sectors[i].Floor.Height, which (per the unconditional
	// height-tracking rule) follows the live sector every tick regardless
	// of whether a delta was ever sent for it.
	floorSkipRef   []float64
	ceilingSkipRef []float64
}

// newRegister allocates a Register sized to the given map dimensions. The
// object index starts empty regardless: objects are registered lazily, as
// the diff generator encounters them.
func newRegister(numSectors, numSides, numPolyobjects int, isInitial bool) *Register {
	return &Register{
		isInitial:      isInitial,
		sectors:        make([]SectorPayload, numSectors),
		sides:          make([]SidePayload, numSides),
		polyobjects:    make([]PolyobjectPayload, numPolyobjects),
		floorSkipRef:   make([]float64, numSectors),
		ceilingSkipRef: make([]float64, numSectors),
	}
}

// registerWorld fills sector/side/polyobject arrays from the live world and
// records the world's current tic. Objects are not populated: they appear
// in the object index only as the diff generator registers them.
func registerWorld(w World, isInitial bool) *Register {
	reg := newRegister(w.NumSectors(), w.NumSides(), w.NumPolyobjects(), isInitial)
	reg.tic = w.Tic()
	for i := range reg.sectors {
		reg.sectors[i] = sectorSnapshot(w.Sector(MapIndex(i)))
		reg.floorSkipRef[i] = reg.sectors[i].Floor.Height
		reg.ceilingSkipRef[i] = reg.sectors[i].Ceiling.Height
	}
	for i := range reg.sides {
		reg.sides[i] = sideSnapshot(w.Side(MapIndex(i)))
	}
	for i := range reg.polyobjects {
		reg.polyobjects[i] = polyobjectSnapshot(w.Polyobject(MapIndex(i)))
	}
	return reg
}

func sectorSnapshot(s LiveSector) SectorPayload {
	return SectorPayload{
		LightLevel: s.LightLevel,
		TintColor:  s.TintColor,
		Floor:      s.Floor,
		Ceiling:    s.Ceiling,
	}
}

func sideSnapshot(s LiveSide) SidePayload {
	return SidePayload{
		Top:       s.Top,
		Middle:    s.Middle,
		Bottom:    s.Bottom,
		LineFlags: s.LineFlags & 0xff,
		SideFlags: s.SideFlags & 0xff,
	}
}

func polyobjectSnapshot(p LivePolyobject) PolyobjectPayload {
	return PolyobjectPayload{
		Dest:      p.Dest,
		Speed:     p.Speed,
		DestAngle: p.DestAngle,
		AngSpeed:  p.AngSpeed,
	}
}

// maxedZ is the indirection hook around an object's z coordinate. Today it
// returns the raw z; the engine keeps the call site (rather than reading
// Origin[2] directly) so a future floor/ceiling clamp (resting objects
// reported as +-INF) can be added without touching every caller.
func maxedZ(o LiveObject) float64 {
	return o.Origin[2]
}

// objectSnapshot builds the ObjectPayload the register would store for a
// live object, used both when registering a live object, and when building
// a delta's payload from it.
func objectSnapshot(o LiveObject) ObjectPayload {
	return ObjectPayload{
		ID:           o.ID,
		Origin:       [3]float64{o.Origin[0], o.Origin[1], maxedZ(o)},
		Momentum:     o.Momentum,
		FloorZ:       o.FloorZ,
		CeilingZ:     o.CeilingZ,
		Angle:        o.Angle,
		Selector:     o.Selector,
		Radius:       o.Radius,
		Height:       o.Height,
		DDFlags:      o.DDFlags,
		Flags:        o.ObjFlags,
		Flags2:       o.Flags2,
		Flags3:       o.Flags3,
		Health:       o.Health,
		FloorClip:    o.FloorClip,
		Translucency: o.Translucency,
		FadeTarget:   o.FadeTarget,
		Type:         o.Type,
		State:        o.State,
	}
}

func playerSnapshot(p LivePlayer) PlayerPayload {
	return PlayerPayload{
		Mobj:          p.MobjID,
		ForwardMove:   p.ForwardMove,
		SideMove:      p.SideMove,
		ViewAngle:     p.ViewAngle,
		TurnDelta:     p.ViewAngle - p.LastViewAngle,
		Friction:      p.Friction,
		ExtraLight:    p.ExtraLight,
		FixedColorMap: p.FixedColorMap,
		Filter:        p.Filter,
		ClYaw:         p.ClYaw,
		ClPitch:       p.ClPitch,
		PSprites:      p.PSprites,
	}
}

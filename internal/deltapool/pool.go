package deltapool

// deltaNode is one entry in a pool's delta hash bucket list.
type deltaNode struct {
	prev, next *deltaNode
	delta      *Delta
}

// Pool is the per-client store of pending NEW and in-flight UNACKED
// deltas (C4). One Pool exists per client slot and is owned by that
// slot's index; it persists across maps in identity but is drained at
// every map change because the arena it lives in is bulk-freed.
type Pool struct {
	owner ClientIndex

	hash [objectHashBuckets]*deltaNode

	missiles missileIndex

	setDealer    uint32
	resendDealer uint32

	queue heapQueue

	// isFirst is true until the first frame has been transmitted to this
	// client. It forces the side pass to scan every side rather than the
	// rolling partition, and is reset whenever the pool is (re)drained.
	isFirst bool

	ownerInfo OwnerInfo
	loc       Locator

	sidePartitionCursor int

	stats PoolStats
}

// SetContext refreshes the per-frame viewpoint data a pool needs to
// exclude and distance-cull deltas. The diff generator calls this once per
// client at the start of every frame, before any add.
func (p *Pool) SetContext(info OwnerInfo, loc Locator) {
	p.ownerInfo = info
	p.loc = loc
}

// NewPool constructs an empty pool owned by the given client slot.
func NewPool(owner ClientIndex) *Pool {
	p := &Pool{owner: owner}
	p.drain()
	return p
}

// drain empties the pool back to its just-constructed state: every delta
// and missile record is discarded, counters reset, and isFirst is set so
// the next diff treats this client as never having received a frame. This
// is what map-change and client-(re)join both call before the per-map
// arena is freed out from under any contained pointers.
func (p *Pool) drain() {
	for i := range p.hash {
		p.hash[i] = nil
	}
	p.missiles = missileIndex{}
	p.setDealer = 0
	p.resendDealer = 0
	p.queue.reset()
	p.isFirst = true
	p.sidePartitionCursor = 0
	p.stats = PoolStats{}
}

// Stats returns the pool's observed-RTT tracker, for a network layer to
// read percentiles from.
func (p *Pool) Stats() *PoolStats { return &p.stats }

func (p *Pool) bucket(id uint32) *deltaNode { return p.hash[objectBucket(ObjectID(id))] }

func (p *Pool) setBucket(id uint32, n *deltaNode) { p.hash[objectBucket(ObjectID(id))] = n }

func (p *Pool) link(n *deltaNode) {
	b := objectBucket(ObjectID(n.delta.ID))
	n.next = p.hash[b]
	if n.next != nil {
		n.next.prev = n
	}
	n.prev = nil
	p.hash[b] = n
}

func (p *Pool) unlink(n *deltaNode) {
	b := objectBucket(ObjectID(n.delta.ID))
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		p.hash[b] = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	n.prev, n.next = nil, nil
}

// each calls fn for every delta currently in the pool, caching next
// before fn runs so fn may remove the current node.
func (p *Pool) each(fn func(n *deltaNode)) {
	for b := range p.hash {
		for n := p.hash[b]; n != nil; {
			next := n.next
			fn(n)
			n = next
		}
	}
}

// CountUnacked is the diagnostic introspection hook exposed at the
// external interface (§6): the number of deltas currently awaiting ack.
func (p *Pool) CountUnacked() uint {
	var n uint
	p.each(func(node *deltaNode) {
		if node.delta.State == StateUnacked {
			n++
		}
	})
	return n
}

// exclude computes the flags that remain after viewpoint exclusion: bits
// the pool owner's client already knows, or cannot perceive, are cleared.
// A non-nil missile record check is consulted for object deltas on
// missiles so create-time origin/momentum need not be resent once the
// create has been acked.
func (p *Pool) exclude(d *Delta) Flags {
	flags := d.Flags

	switch d.Kind {
	case KindObject:
		if ObjectID(d.ID) == p.ownerInfo.CameraObject {
			flags &^= MDFCameraExclude
		}
		if isNullObject(d) {
			p.missiles.remove(ObjectID(d.ID))
		} else if !isCreateObject(d) {
			flags &^= p.missiles.check(ObjectID(d.ID))
		}
	case KindPlayer:
		if PlayerIndex(d.ID) == PlayerIndex(p.owner) {
			flags &^= PDFCameraExclude
		} else {
			flags &^= PDFNonCameraExclude
		}
	default:
		if isSound(d) {
			if distance(d, &p.ownerInfo, p.loc) > maxSoundDistance(d, p.ownerInfo.SoundMaxDistanceBase) {
				return 0
			}
		}
	}
	return flags
}

// add is the add-with-merge algorithm (C6): the central correctness
// primitive of the pool. incoming must not be retained by the caller — add
// takes ownership of a fresh copy when it needs to keep one.
func (p *Pool) add(incoming *Delta) {
	effective := p.exclude(incoming)
	if effective == 0 {
		return
	}

	// Work on a private copy with the excluded flags; incoming's contents
	// must not be modified (it may be shared with other pools).
	working := *incoming
	working.Flags = effective

	var existingNew *deltaNode

	first := p.bucket(working.ID)
	for n := first; n != nil; {
		next := n.next
		if isSame(n.delta, &working) {
			switch n.delta.State {
			case StateUnacked:
				subtract(n.delta, &working)
				if isVoid(n.delta) {
					p.unlink(n)
				}
			case StateNew:
				existingNew = n
			}
		}
		n = next
	}

	if existingNew != nil {
		if remove := merge(existingNew.delta, &working); remove {
			p.unlink(existingNew)
		}
		return
	}

	copied := working
	p.link(&deltaNode{delta: &copied})
}

// subtract removes from entry (an UNACKED delta) whatever incoming now
// says about the same fields: once the replacement info has been queued
// again, the stale UNACKED copy must not carry it on resend. A Null-object
// incoming subtracts everything.
func subtract(entry, incoming *Delta) {
	if isNullObject(incoming) {
		entry.Flags = 0
		return
	}
	entry.Flags &^= incoming.Flags
}

// merge folds incoming into target, an existing NEW delta for the same
// (kind, id). It returns true when the merge annihilates target (the pair
// should be removed from the pool entirely) rather than leaving a
// surviving merged delta.
func merge(target, incoming *Delta) (remove bool) {
	switch {
	case isNullObject(incoming):
		if isCreateObject(target) {
			// A create that never left the pool, immediately undone:
			// nothing needs to reach the client at all.
			return true
		}
		target.Flags = MDFCNull
		return false

	case isStartSound(incoming) || isStopSound(incoming):
		// Sounds are one-per-source-at-a-time; the newer event is
		// authoritative regardless of what the pending one said.
		target.Flags = incoming.Flags
		target.Sound = incoming.Sound
		return false

	default:
		applyData(target, incoming)
		target.Flags |= incoming.Flags
		// Timestamp intentionally left unchanged: the older timestamp
		// preserves age-pressure for transmission.
		return false
	}
}

// applyData copies, from incoming into target, only the payload fields
// selected by incoming.Flags. Dispatches on Kind.
func applyData(target, incoming *Delta) {
	switch target.Kind {
	case KindObject:
		applyObjectData(&target.Object, &incoming.Object, incoming.Flags)
	case KindPlayer:
		applyPlayerData(&target.Player, &incoming.Player, incoming.Flags)
	case KindSector:
		applySectorData(&target.Sector, &incoming.Sector, incoming.Flags)
	case KindSide:
		applySideData(&target.Side, &incoming.Side, incoming.Flags)
	case KindPolyobject:
		applyPolyobjectData(&target.Polyobject, &incoming.Polyobject, incoming.Flags)
	default:
		if isSound(target) {
			target.Sound = incoming.Sound
		}
	}
}

func applyObjectData(t, s *ObjectPayload, f Flags) {
	if f&MDFOriginX != 0 {
		t.Origin[0] = s.Origin[0]
	}
	if f&MDFOriginY != 0 {
		t.Origin[1] = s.Origin[1]
	}
	if f&MDFOriginZ != 0 {
		t.Origin[2] = s.Origin[2]
		t.FloorZ = s.FloorZ
		t.CeilingZ = s.CeilingZ
	}
	if f&MDFMomX != 0 {
		t.Momentum[0] = s.Momentum[0]
	}
	if f&MDFMomY != 0 {
		t.Momentum[1] = s.Momentum[1]
	}
	if f&MDFMomZ != 0 {
		t.Momentum[2] = s.Momentum[2]
	}
	if f&MDFAngle != 0 {
		t.Angle = s.Angle
	}
	if f&MDFSelector != 0 {
		t.Selector = s.Selector
	}
	if f&MDFRadius != 0 {
		t.Radius = s.Radius
	}
	if f&MDFHeight != 0 {
		t.Height = s.Height
	}
	if f&MDFFlags != 0 {
		t.DDFlags, t.Flags, t.Flags2, t.Flags3 = s.DDFlags, s.Flags, s.Flags2, s.Flags3
	}
	if f&MDFHealth != 0 {
		t.Health = s.Health
	}
	if f&MDFFloorClip != 0 {
		t.FloorClip = s.FloorClip
	}
	if f&MDFCTranslucency != 0 {
		t.Translucency = s.Translucency
	}
	if f&MDFCFadeTarget != 0 {
		t.FadeTarget = s.FadeTarget
	}
	if f&MDFCType != 0 {
		t.Type = s.Type
	}
	if f&MDFState != 0 {
		t.State = s.State
	}
}

func applyPlayerData(t, s *PlayerPayload, f Flags) {
	if f&PDFMobj != 0 {
		t.Mobj = s.Mobj
	}
	if f&PDFForwardMove != 0 {
		t.ForwardMove = s.ForwardMove
	}
	if f&PDFSideMove != 0 {
		t.SideMove = s.SideMove
	}
	if f&PDFTurnDelta != 0 {
		t.TurnDelta = s.TurnDelta
		t.ViewAngle = s.ViewAngle
	}
	if f&PDFFriction != 0 {
		t.Friction = s.Friction
	}
	if f&PDFExtraLight != 0 {
		t.ExtraLight = s.ExtraLight
		t.FixedColorMap = s.FixedColorMap
	}
	if f&PDFFilter != 0 {
		t.Filter = s.Filter
	}
	if f&PDFClYaw != 0 {
		t.ClYaw = s.ClYaw
	}
	if f&PDFClPitch != 0 {
		t.ClPitch = s.ClPitch
	}
	if f&PDFPSprite0 != 0 {
		t.PSprites[0] = s.PSprites[0]
	}
	if f&PDFPSprite1 != 0 {
		t.PSprites[1] = s.PSprites[1]
	}
}

func applySectorData(t, s *SectorPayload, f Flags) {
	if f&SDFFloorMaterial != 0 {
		t.Floor.Material = s.Floor.Material
	}
	if f&SDFCeilingMaterial != 0 {
		t.Ceiling.Material = s.Ceiling.Material
	}
	if f&SDFLight != 0 {
		t.LightLevel = s.LightLevel
	}
	if f&SDFColorRed != 0 {
		t.TintColor[0] = s.TintColor[0]
	}
	if f&SDFColorGreen != 0 {
		t.TintColor[1] = s.TintColor[1]
	}
	if f&SDFColorBlue != 0 {
		t.TintColor[2] = s.TintColor[2]
	}
	if f&SDFFloorColorRed != 0 {
		t.Floor.TintRGBA[0] = s.Floor.TintRGBA[0]
	}
	if f&SDFFloorColorGreen != 0 {
		t.Floor.TintRGBA[1] = s.Floor.TintRGBA[1]
	}
	if f&SDFFloorColorBlue != 0 {
		t.Floor.TintRGBA[2] = s.Floor.TintRGBA[2]
	}
	if f&SDFCeilColorRed != 0 {
		t.Ceiling.TintRGBA[0] = s.Ceiling.TintRGBA[0]
	}
	if f&SDFCeilColorGreen != 0 {
		t.Ceiling.TintRGBA[1] = s.Ceiling.TintRGBA[1]
	}
	if f&SDFCeilColorBlue != 0 {
		t.Ceiling.TintRGBA[2] = s.Ceiling.TintRGBA[2]
	}
	if f&SDFFloorHeight != 0 {
		t.Floor.Height = s.Floor.Height
	}
	if f&SDFCeilingHeight != 0 {
		t.Ceiling.Height = s.Ceiling.Height
	}
	if f&(SDFFloorTarget|SDFFloorSpeed) != 0 {
		t.Floor.Target = s.Floor.Target
		t.Floor.Speed = s.Floor.Speed
	}
	if f&(SDFCeilingTarget|SDFCeilingSpeed) != 0 {
		t.Ceiling.Target = s.Ceiling.Target
		t.Ceiling.Speed = s.Ceiling.Speed
	}
}

func applySideData(t, s *SidePayload, f Flags) {
	if f&SIDFTopMaterial != 0 {
		t.Top.Material = s.Top.Material
	}
	if f&SIDFMidMaterial != 0 {
		t.Middle.Material = s.Middle.Material
	}
	if f&SIDFBottomMaterial != 0 {
		t.Bottom.Material = s.Bottom.Material
	}
	if f&SIDFLineFlags != 0 {
		t.LineFlags = s.LineFlags
	}
	if f&SIDFTopColorRed != 0 {
		t.Top.TintRGBA[0] = s.Top.TintRGBA[0]
	}
	if f&SIDFTopColorGreen != 0 {
		t.Top.TintRGBA[1] = s.Top.TintRGBA[1]
	}
	if f&SIDFTopColorBlue != 0 {
		t.Top.TintRGBA[2] = s.Top.TintRGBA[2]
	}
	if f&SIDFMidColorRed != 0 {
		t.Middle.TintRGBA[0] = s.Middle.TintRGBA[0]
	}
	if f&SIDFMidColorGreen != 0 {
		t.Middle.TintRGBA[1] = s.Middle.TintRGBA[1]
	}
	if f&SIDFMidColorBlue != 0 {
		t.Middle.TintRGBA[2] = s.Middle.TintRGBA[2]
	}
	if f&SIDFMidColorAlpha != 0 {
		t.Middle.TintRGBA[3] = s.Middle.TintRGBA[3]
	}
	if f&SIDFBottomColorRed != 0 {
		t.Bottom.TintRGBA[0] = s.Bottom.TintRGBA[0]
	}
	if f&SIDFBottomColorGreen != 0 {
		t.Bottom.TintRGBA[1] = s.Bottom.TintRGBA[1]
	}
	if f&SIDFBottomColorBlue != 0 {
		t.Bottom.TintRGBA[2] = s.Bottom.TintRGBA[2]
	}
	if f&SIDFMidBlendmode != 0 {
		t.Middle.BlendMode = s.Middle.BlendMode
	}
	if f&SIDFFlags != 0 {
		t.SideFlags = s.SideFlags
	}
}

func applyPolyobjectData(t, s *PolyobjectPayload, f Flags) {
	if f&PODFDestX != 0 {
		t.Dest[0] = s.Dest[0]
	}
	if f&PODFDestY != 0 {
		t.Dest[1] = s.Dest[1]
	}
	if f&PODFSpeed != 0 {
		t.Speed = s.Speed
	}
	if f&PODFDestAngle != 0 {
		t.DestAngle = s.DestAngle
	}
	if f&PODFAngSpeed != 0 {
		t.AngSpeed = s.AngSpeed
	}
}

// ddmfMissile is the low-level object flag bit marking a missile,
// eligible for client-side ballistic extrapolation. Its exact position in
// the flags word is game-plugin defined (DDMF_PACK_MASK scope, per §9);
// the engine only ever tests this one bit.
const ddmfMissile = 1 << 7

// removeNewObjectDeltas removes every NEW object delta for id from the
// pool, used by a predictable object removal (no Null-object delta is
// generated in that case; see Engine.ObjectRemoved).
func (p *Pool) removeNewObjectDeltas(id ObjectID) {
	p.each(func(n *deltaNode) {
		if n.delta.Kind == KindObject && ObjectID(n.delta.ID) == id && n.delta.State == StateNew {
			p.unlink(n)
		}
	})
}

// markForTransmission transitions d from NEW to UNACKED. If resend is
// true, the pool's resend counter is used as the delta's Resend id and Set
// is left untouched; otherwise the pool's set counter is consumed.
func (p *Pool) markForTransmission(d *Delta, resend bool) {
	d.State = StateUnacked
	if resend {
		p.resendDealer++
		d.Resend = p.resendDealer
	} else {
		p.setDealer++
		d.Set = p.setDealer
	}
}

// ackSet removes every UNACKED, never-resent delta in the pool whose Set
// matches set, running missile-record side effects first. A resent delta
// is acknowledged through ackResend instead.
func (p *Pool) ackSet(set uint32) {
	p.ack(func(d *Delta) bool { return d.State == StateUnacked && d.Resend == 0 && d.Set == set })
}

// ackResend removes every UNACKED delta in the pool whose Resend matches
// resendID.
func (p *Pool) ackResend(resendID uint32) {
	p.ack(func(d *Delta) bool { return d.State == StateUnacked && d.Resend == resendID })
}

func (p *Pool) ack(match func(*Delta) bool) {
	p.each(func(n *deltaNode) {
		if !match(n.delta) {
			return
		}
		p.stats.RecordRTT(float64(ageMillis(n.delta)))
		if n.delta.Kind == KindObject && isCreateObject(n.delta) && n.delta.Object.DDFlags&ddmfMissile != 0 {
			p.missiles.insert(ObjectID(n.delta.ID), n.delta.Object.Origin, n.delta.Object.Momentum)
		}
		p.unlink(n)
	})
}

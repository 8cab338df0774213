package deltapool

import "math"

// emitFunc receives one freshly built delta. Diff passes never retain a
// pointer past the call: the sink is expected to copy what it needs
// (Pool.add does exactly that).
type emitFunc func(*Delta)

// broadcast returns an emitFunc that feeds every pool in pools a private
// copy of each delta produced.
func broadcast(pools []*Pool) emitFunc {
	return func(d *Delta) {
		for _, p := range pools {
			copied := *d
			p.add(&copied)
		}
	}
}

// diffNullObjects emits a Null-object delta for every object the register
// still knows about that no longer appears among the world's live
// objects, then (when doUpdate) drops it from the register. Local and
// null-state objects are invisible to this pass entirely: they are
// neither registered as missing (they were never added) nor nulled.
func diffNullObjects(reg *Register, live map[ObjectID]struct{}, doUpdate bool, emit emitFunc) {
	reg.objects.each(func(n *regObjectNode) {
		if _, ok := live[n.obj.ID]; ok {
			return
		}
		d := newDelta(KindObject, uint32(n.obj.ID))
		d.Flags = MDFCNull
		emit(d)
		if doUpdate {
			reg.objects.remove(n)
		}
	})
}

// diffObjects is the object pass (C5 §4.1): for every live, non-local,
// non-null-state object, compares its current snapshot against the
// register and emits a delta for whatever changed.
func diffObjects(reg *Register, w World, objects []LiveObject, doUpdate bool, emit emitFunc) {
	live := make(map[ObjectID]struct{}, len(objects))
	for _, o := range objects {
		if o.IsLocal {
			continue
		}
		live[o.ID] = struct{}{}
		if o.IsNullState {
			// The object's animation sequence has ended; abort emission
			// but leave it registered so a later un-null transition (or
			// removal) is still detected correctly.
			continue
		}
		diffOneObject(reg, w, o, doUpdate, emit)
	}
	diffNullObjects(reg, live, doUpdate, emit)
}

func diffOneObject(reg *Register, w World, o LiveObject, doUpdate bool, emit emitFunc) {
	// Look up without inserting: a diff with doUpdate false (the frozen
	// initial register) must leave the register untouched.
	old := sentinelObject(o.ID)
	if n := reg.objects.find(o.ID); n != nil {
		old = n.obj
	}
	snap := objectSnapshot(o)

	wasUnregistered := old.Origin[0] == sentinelCoord && old.Origin[1] == sentinelCoord

	var flags Flags
	if snap.Origin[0] != old.Origin[0] {
		flags |= MDFOriginX
	}
	if snap.Origin[1] != old.Origin[1] {
		flags |= MDFOriginY
	}
	if snap.Origin[2] != old.Origin[2] {
		flags |= MDFOriginZ
	}
	if snap.Momentum[0] != old.Momentum[0] {
		flags |= MDFMomX
	}
	if snap.Momentum[1] != old.Momentum[1] {
		flags |= MDFMomY
	}
	if snap.Momentum[2] != old.Momentum[2] {
		flags |= MDFMomZ
	}
	if snap.Angle != old.Angle {
		flags |= MDFAngle
	}
	if snap.Selector != old.Selector {
		flags |= MDFSelector
	}
	if snap.Radius != old.Radius {
		flags |= MDFRadius
	}
	if snap.Height != old.Height {
		flags |= MDFHeight
	}
	if snap.DDFlags != old.DDFlags || snap.Flags != old.Flags || snap.Flags2 != old.Flags2 || snap.Flags3 != old.Flags3 {
		flags |= MDFFlags
	}
	if snap.Health != old.Health {
		flags |= MDFHealth
	}
	if snap.FloorClip != old.FloorClip {
		flags |= MDFFloorClip
	}
	if snap.Translucency != old.Translucency {
		flags |= MDFCTranslucency
	}
	if snap.FadeTarget != old.FadeTarget {
		flags |= MDFCFadeTarget
	}
	if snap.Type != old.Type {
		flags |= MDFCType
	}
	// Only an inter-sequence state transition is worth telling the client
	// about; intra-sequence ticks are assumed already known clientside.
	if snap.State != old.State && !w.SameStateSequence(old.State, snap.State) {
		flags |= MDFState
	}
	if o.FloorZ == snap.Origin[2] {
		flags |= MDFCOnFloor
	}

	if wasUnregistered {
		flags |= MDFCCreate | MDFEverything
	}

	if doUpdate {
		reg.objects.store(snap)
	}

	if flags&^MDFCOnFloor == 0 {
		return
	}

	d := newDelta(KindObject, uint32(o.ID))
	d.Object = snap
	d.Flags = flags
	emit(d)
}

// diffPlayers is the player pass (§4.1): compares each in-game player slot
// against its register entry.
func diffPlayers(reg *Register, w World, doUpdate bool, emit emitFunc) {
	for i := 0; i < w.NumPlayers() && i < MaxPlayers; i++ {
		live, ok := w.Player(PlayerIndex(i))
		if !ok {
			continue
		}
		old := reg.players[i]
		snap := playerSnapshot(live)

		var flags Flags
		if snap.Mobj != old.Mobj {
			flags |= PDFMobj
		}
		if snap.ForwardMove != old.ForwardMove {
			flags |= PDFForwardMove
		}
		if snap.SideMove != old.SideMove {
			flags |= PDFSideMove
		}
		if snap.TurnDelta != old.TurnDelta {
			flags |= PDFTurnDelta
		}
		if snap.Friction != old.Friction {
			flags |= PDFFriction
		}
		if snap.ExtraLight != old.ExtraLight || snap.FixedColorMap != old.FixedColorMap {
			flags |= PDFExtraLight
		}
		if snap.Filter != old.Filter {
			flags |= PDFFilter
		}
		if snap.ClYaw != old.ClYaw {
			flags |= PDFClYaw
		}
		if snap.ClPitch != old.ClPitch {
			flags |= PDFClPitch
		}
		if snap.PSprites[0] != old.PSprites[0] {
			flags |= PDFPSprites | PDFPSprite0
		}
		if snap.PSprites[1] != old.PSprites[1] {
			flags |= PDFPSprites | PDFPSprite1
		}

		if flags == 0 {
			continue
		}

		// The owning mobj id must be reset in the object register before
		// the register update below overwrites it: otherwise the new
		// mobj's first diff would be shadowed by whatever stale snapshot
		// happened to be registered under that id already.
		if doUpdate && flags&PDFMobj != 0 {
			reg.objects.reset(snap.Mobj)
		}
		if doUpdate {
			reg.players[i] = snap
		}

		d := newDelta(KindPlayer, uint32(i))
		d.Player = snap
		d.Flags = flags
		emit(d)
	}
}

// diffSectors is the sector pass (§4.1): light, tint, material and
// plane-height/target/speed comparisons. A plane at rest compares its
// height exactly; a moving plane is gated by the skip-limit hysteresis.
func diffSectors(reg *Register, w World, doUpdate bool, skipLimit float64, emit emitFunc) {
	for i := range reg.sectors {
		live := sectorSnapshot(w.Sector(MapIndex(i)))
		old := reg.sectors[i]

		var flags Flags
		if live.Floor.Material != old.Floor.Material {
			flags |= SDFFloorMaterial
		}
		if live.Ceiling.Material != old.Ceiling.Material {
			flags |= SDFCeilingMaterial
		}
		if live.LightLevel != old.LightLevel {
			flags |= SDFLight
		}
		if live.TintColor[0] != old.TintColor[0] {
			flags |= SDFColorRed
		}
		if live.TintColor[1] != old.TintColor[1] {
			flags |= SDFColorGreen
		}
		if live.TintColor[2] != old.TintColor[2] {
			flags |= SDFColorBlue
		}
		if live.Floor.TintRGBA[0] != old.Floor.TintRGBA[0] {
			flags |= SDFFloorColorRed
		}
		if live.Floor.TintRGBA[1] != old.Floor.TintRGBA[1] {
			flags |= SDFFloorColorGreen
		}
		if live.Floor.TintRGBA[2] != old.Floor.TintRGBA[2] {
			flags |= SDFFloorColorBlue
		}
		if live.Ceiling.TintRGBA[0] != old.Ceiling.TintRGBA[0] {
			flags |= SDFCeilColorRed
		}
		if live.Ceiling.TintRGBA[1] != old.Ceiling.TintRGBA[1] {
			flags |= SDFCeilColorGreen
		}
		if live.Ceiling.TintRGBA[2] != old.Ceiling.TintRGBA[2] {
			flags |= SDFCeilColorBlue
		}

		floorTargetMoved := live.Floor.Target != old.Floor.Target || live.Floor.Speed != old.Floor.Speed
		ceilTargetMoved := live.Ceiling.Target != old.Ceiling.Target || live.Ceiling.Speed != old.Ceiling.Speed

		// A plane at rest (register and world both report zero speed) must
		// report any height difference at all, however small: there is no
		// motion to amortize against, so the skip-limit hysteresis only
		// applies once the plane is actually moving.
		var floorHeightMoved, ceilHeightMoved bool
		if old.Floor.Speed == 0 && live.Floor.Speed == 0 {
			floorHeightMoved = live.Floor.Height != reg.floorSkipRef[i]
		} else {
			floorHeightMoved = math.Abs(live.Floor.Height-reg.floorSkipRef[i]) >= skipLimit
		}
		if old.Ceiling.Speed == 0 && live.Ceiling.Speed == 0 {
			ceilHeightMoved = live.Ceiling.Height != reg.ceilingSkipRef[i]
		} else {
			ceilHeightMoved = math.Abs(live.Ceiling.Height-reg.ceilingSkipRef[i]) >= skipLimit
		}

		if floorHeightMoved || floorTargetMoved {
			flags |= SDFFloorHeight | SDFFloorTarget | SDFFloorSpeed
		}
		if ceilHeightMoved || ceilTargetMoved {
			flags |= SDFCeilingHeight | SDFCeilingTarget | SDFCeilingSpeed
		}

		if flags != 0 {
			d := newDelta(KindSector, uint32(i))
			d.Sector = live
			d.Flags = flags
			emit(d)

			if doUpdate {
				reg.sectors[i] = live
				if flags&SDFFloorHeight != 0 {
					reg.floorSkipRef[i] = live.Floor.Height
				}
				if flags&SDFCeilingHeight != 0 {
					reg.ceilingSkipRef[i] = live.Ceiling.Height
				}
			}
		}

		// Plane heights are tracked into the register unconditionally,
		// regardless of whether a delta was generated this tick: other
		// passes (and the floor-clip computation) need the live height
		// even when it hasn't moved far enough to be worth telling a
		// client about yet.
		if doUpdate {
			reg.sectors[i].Floor.Height = live.Floor.Height
			reg.sectors[i].Ceiling.Height = live.Ceiling.Height
		}
	}
}

// diffSide compares one side's three sections and line/side flags.
// Sections the engine has patched with a placeholder material
// (IsFixMaterial) are never diffed: they carry no information the client
// doesn't already have by definition.
func diffSide(old, live SidePayload) Flags {
	var flags Flags
	if !live.Top.IsFixMaterial && live.Top.Material != old.Top.Material {
		flags |= SIDFTopMaterial
	}
	if !live.Middle.IsFixMaterial && live.Middle.Material != old.Middle.Material {
		flags |= SIDFMidMaterial
	}
	if !live.Bottom.IsFixMaterial && live.Bottom.Material != old.Bottom.Material {
		flags |= SIDFBottomMaterial
	}
	if live.LineFlags != old.LineFlags {
		flags |= SIDFLineFlags
	}
	if live.SideFlags != old.SideFlags {
		flags |= SIDFFlags
	}
	if !live.Top.IsFixMaterial {
		if live.Top.TintRGBA[0] != old.Top.TintRGBA[0] {
			flags |= SIDFTopColorRed
		}
		if live.Top.TintRGBA[1] != old.Top.TintRGBA[1] {
			flags |= SIDFTopColorGreen
		}
		if live.Top.TintRGBA[2] != old.Top.TintRGBA[2] {
			flags |= SIDFTopColorBlue
		}
	}
	if !live.Middle.IsFixMaterial {
		if live.Middle.TintRGBA[0] != old.Middle.TintRGBA[0] {
			flags |= SIDFMidColorRed
		}
		if live.Middle.TintRGBA[1] != old.Middle.TintRGBA[1] {
			flags |= SIDFMidColorGreen
		}
		if live.Middle.TintRGBA[2] != old.Middle.TintRGBA[2] {
			flags |= SIDFMidColorBlue
		}
		if live.Middle.TintRGBA[3] != old.Middle.TintRGBA[3] {
			flags |= SIDFMidColorAlpha
		}
		if live.Middle.BlendMode != old.Middle.BlendMode {
			flags |= SIDFMidBlendmode
		}
	}
	if !live.Bottom.IsFixMaterial {
		if live.Bottom.TintRGBA[0] != old.Bottom.TintRGBA[0] {
			flags |= SIDFBottomColorRed
		}
		if live.Bottom.TintRGBA[1] != old.Bottom.TintRGBA[1] {
			flags |= SIDFBottomColorGreen
		}
		if live.Bottom.TintRGBA[2] != old.Bottom.TintRGBA[2] {
			flags |= SIDFBottomColorBlue
		}
	}
	return flags
}

// diffSides is the side pass (§4.1). On an ordinary tick only a rolling
// partition of the map's sides is scanned, bounding per-tick cost on huge
// maps; a client's first frame (isFirst) and any diff against the frozen
// initial register always scan every side so nothing is missed before the
// client has anything to compare against.
func diffSides(reg *Register, w World, doUpdate bool, fullScan bool, partitions int, cursor *int, emit emitFunc) {
	total := w.NumSides()
	if total == 0 {
		return
	}
	if partitions < 1 {
		partitions = 1
	}

	start, end := 0, total
	if !fullScan {
		partitionSize := (total + partitions - 1) / partitions
		if partitionSize < 1 {
			partitionSize = 1
		}
		start = *cursor % total
		end = start + partitionSize
		if end > total {
			end = total
		}
	}

	for i := start; i < end; i++ {
		live := sideSnapshot(w.Side(MapIndex(i)))
		old := reg.sides[i]
		flags := diffSide(old, live)
		if flags == 0 {
			continue
		}
		d := newDelta(KindSide, uint32(i))
		d.Side = live
		d.Flags = flags
		emit(d)
		if doUpdate {
			reg.sides[i] = live
		}
	}

	if !fullScan {
		*cursor = end % total
	}
}

// diffPolyobjects is the polyobject pass (§4.1): every polyobject is
// compared every tick, there being far fewer of them than sides.
func diffPolyobjects(reg *Register, w World, doUpdate bool, emit emitFunc) {
	for i := range reg.polyobjects {
		live := polyobjectSnapshot(w.Polyobject(MapIndex(i)))
		old := reg.polyobjects[i]

		var flags Flags
		if live.Dest[0] != old.Dest[0] {
			flags |= PODFDestX
		}
		if live.Dest[1] != old.Dest[1] {
			flags |= PODFDestY
		}
		if live.Speed != old.Speed {
			flags |= PODFSpeed
		}
		if live.DestAngle != old.DestAngle {
			flags |= PODFDestAngle
		}
		if live.AngSpeed != old.AngSpeed {
			flags |= PODFAngSpeed
		}

		if flags == 0 {
			continue
		}
		d := newDelta(KindPolyobject, uint32(i))
		d.Polyobject = live
		d.Flags = flags
		emit(d)
		if doUpdate {
			reg.polyobjects[i] = live
		}
	}
}

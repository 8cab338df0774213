package deltapool

import (
	"fmt"
	"log/slog"

	"github.com/doomsday-net/deltapool/internal/config"
)

// Engine owns the two registers and every client pool for one running
// map. It is the package's external interface (§6): the game server
// drives replication entirely through Engine's methods, never touching a
// Register or Pool directly.
type Engine struct {
	current *Register
	initial *Register

	pools [MaxPlayers]*Pool

	world World

	log    *slog.Logger
	tuning *config.EngineTuning
}

// NewEngine constructs an Engine with no pools and no registers; call
// InitPools once a map has been loaded and the world is ready to be read.
// A nil tuning uses every built-in default.
func NewEngine(logger *slog.Logger, tuning *config.EngineTuning) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if tuning == nil {
		tuning = config.EmptyEngineTuning()
	}
	return &Engine{log: logger, tuning: tuning}
}

// InitPools (re)builds both registers from the world's current state and
// drains every client pool. This is called once per map load; the
// per-map arena backing the previous map's registers and pools is freed
// in bulk immediately afterward by the caller, which is why every pool is
// drained here rather than merely cleared incrementally.
func (e *Engine) InitPools(w World) {
	e.world = w
	e.current = registerWorld(w, false)
	e.initial = registerWorld(w, true)
	for i := range e.pools {
		if e.pools[i] != nil {
			e.pools[i].drain()
		}
	}
}

// InitPoolForClient allocates (or resets, if one already exists) the pool
// for a newly joined or rejoined client.
func (e *Engine) InitPoolForClient(idx ClientIndex) *Pool {
	if int(idx) < 0 || int(idx) >= len(e.pools) {
		return nil
	}
	if e.pools[idx] == nil {
		e.pools[idx] = NewPool(idx)
	} else {
		e.pools[idx].drain()
	}
	return e.pools[idx]
}

// GetPool returns the pool for a client slot, or nil if none exists.
func (e *Engine) GetPool(idx ClientIndex) *Pool {
	if int(idx) < 0 || int(idx) >= len(e.pools) {
		return nil
	}
	return e.pools[idx]
}

func (e *Engine) activePools() []*Pool {
	pools := make([]*Pool, 0, len(e.pools))
	for _, p := range e.pools {
		if p != nil {
			pools = append(pools, p)
		}
	}
	return pools
}

// ObjectOrigin implements Locator against the current register.
func (e *Engine) ObjectOrigin(id ObjectID) ([3]float64, bool) {
	n := e.current.objects.find(id)
	if n == nil {
		return [3]float64{}, false
	}
	return n.obj.Origin, true
}

// SectorSoundOrigin implements Locator, delegating to the live world.
func (e *Engine) SectorSoundOrigin(idx MapIndex) [3]float64 { return e.world.SectorSoundOrigin(idx) }

// SideSoundOrigin implements Locator, delegating to the live world.
func (e *Engine) SideSoundOrigin(idx MapIndex, flags Flags) [3]float64 {
	return e.world.SideSoundOrigin(idx, flags)
}

// PolyobjectOrigin implements Locator, delegating to the live world.
func (e *Engine) PolyobjectOrigin(idx MapIndex) [3]float64 { return e.world.PolyobjectOrigin(idx) }

// GenerateFrameDeltas refreshes every pool's viewpoint context, runs every
// diff pass (§4.1) against the current register broadcasting fresh deltas
// into each client pool, then rates each pool's queue (§4.5) so the frame
// builder can immediately start extracting. This is the one call a
// server's tick loop needs to make per simulation step.
func (e *Engine) GenerateFrameDeltas(objects []LiveObject) {
	pools := e.activePools()

	// ownerInfo is refreshed before any comparison runs, not lazily after:
	// exclude() consults it (camera/distance culling) while deltas are
	// still being added to each pool below, so a stale viewpoint here
	// would wrongly judge this tick's sounds against last tick's position.
	for idx, p := range e.pools {
		if p == nil {
			continue
		}
		p.SetContext(e.ownerInfoFor(ClientIndex(idx)), e)
	}

	emit := broadcast(pools)
	diffObjects(e.current, e.world, objects, true, emit)
	diffPlayers(e.current, e.world, true, emit)
	diffSectors(e.current, e.world, true, e.tuning.GetPlaneSkipLimit(), emit)
	diffPolyobjects(e.current, e.world, true, emit)

	partitions := e.tuning.GetSidePartitionCount()
	for _, p := range pools {
		diffSides(e.current, e.world, true, p.isFirst, partitions, &p.sidePartitionCursor, broadcast([]*Pool{p}))
	}

	for _, p := range pools {
		p.RatePool(e.log, e.tuning)
		p.isFirst = false
	}
}

// BootstrapClient diffs the frozen initial register into a single client's
// pool, used the moment a client finishes joining and needs a complete
// picture of the map as it was when the map started (rather than waiting
// to accumulate one tick at a time from "current").
func (e *Engine) BootstrapClient(idx ClientIndex, objects []LiveObject) {
	p := e.GetPool(idx)
	if p == nil {
		return
	}
	p.SetContext(e.ownerInfoFor(idx), e)
	emit := broadcast([]*Pool{p})
	diffObjects(e.initial, e.world, objects, false, emit)
	diffPlayers(e.initial, e.world, false, emit)
	diffSectors(e.initial, e.world, false, e.tuning.GetPlaneSkipLimit(), emit)
	diffPolyobjects(e.initial, e.world, false, emit)
	diffSides(e.initial, e.world, false, true, e.tuning.GetSidePartitionCount(), &p.sidePartitionCursor, emit)
}

// ownerInfoFor builds the viewpoint snapshot a pool needs for distance and
// postponement decisions, resolved from that client's current player/mobj
// registration.
func (e *Engine) ownerInfoFor(idx ClientIndex) OwnerInfo {
	player := e.current.players[idx]
	origin, _ := e.ObjectOrigin(player.Mobj)
	return OwnerInfo{
		CameraObject: player.Mobj,
		Origin:       origin,
		Angle:        player.ViewAngle,
		PlanarSpeed:  abs64(player.ForwardMove) + abs64(player.SideMove),
		AckThreshold: e.tuning.GetAckThresholdMs(),

		SoundMaxDistanceBase: e.tuning.GetSoundMaxDistanceBase(),
	}
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// AddSoundDelta injects a sound event directly into every active pool,
// bypassing the per-tick diff passes: sounds are one-shot events with no
// persistent "current value" to compare against a register.
func (e *Engine) AddSoundDelta(kind Kind, id uint32, payload SoundPayload, flags Flags) {
	if !kind.isSound() {
		return
	}
	d := newDelta(kind, id)
	d.Sound = payload
	d.Flags = flags
	broadcast(e.activePools())(d)
}

// ObjectRemoved handles an object leaving the world through a predictable
// path (e.g. the game logic itself destroyed it rather than it simply
// falling out of the Objects() list): every pending NEW delta for it is
// dropped rather than transmitted, since the client will never receive a
// Null delta to unwind them, and the register and any missile record are
// cleared immediately rather than waiting for the next null pass.
func (e *Engine) ObjectRemoved(id ObjectID) {
	e.current.objects.removeID(id)
	for _, p := range e.pools {
		if p == nil {
			continue
		}
		p.removeNewObjectDeltas(id)
		p.missiles.remove(id)
	}
}

// PlayerRemoved resets a departed player's register slot to zero, so if
// the slot is reused by a new player the next diff looks like a fresh
// join rather than inheriting stale data.
func (e *Engine) PlayerRemoved(idx PlayerIndex) {
	if int(idx) < 0 || int(idx) >= len(e.current.players) {
		return
	}
	e.current.objects.reset(e.current.players[idx].Mobj)
	e.current.players[idx] = PlayerPayload{}
}

// AcknowledgeSet marks every UNACKED delta in a client's pool belonging to
// the given transmission set as delivered, removing it from the pool.
func (e *Engine) AcknowledgeSet(idx ClientIndex, set uint32) error {
	p := e.GetPool(idx)
	if p == nil {
		return fmt.Errorf("deltapool: no pool for client %d", idx)
	}
	p.ackSet(set)
	return nil
}

// AcknowledgeResend marks every UNACKED delta in a client's pool belonging
// to the given resend id as delivered.
func (e *Engine) AcknowledgeResend(idx ClientIndex, resendID uint32) error {
	p := e.GetPool(idx)
	if p == nil {
		return fmt.Errorf("deltapool: no pool for client %d", idx)
	}
	p.ackResend(resendID)
	return nil
}

// CountUnackedDeltas reports how many deltas are currently in flight to a
// client, awaiting acknowledgement.
func (e *Engine) CountUnackedDeltas(idx ClientIndex) (uint, error) {
	p := e.GetPool(idx)
	if p == nil {
		return 0, fmt.Errorf("deltapool: no pool for client %d", idx)
	}
	return p.CountUnacked(), nil
}

// ExtractNext pops the next highest-priority delta for a client, marking
// it UNACKED and stamping it with a transmission set id. ok is false once
// the pool has nothing left to say this frame.
func (e *Engine) ExtractNext(idx ClientIndex, resend bool) (*Delta, bool) {
	p := e.GetPool(idx)
	if p == nil {
		return nil, false
	}
	d, ok := p.ExtractNext()
	if !ok {
		return nil, false
	}
	p.markForTransmission(d, resend)
	return d, true
}

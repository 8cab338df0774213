package deltapool

import (
	"log/slog"

	"github.com/doomsday-net/deltapool/internal/config"
)

// baseScore is the starting priority for a delta of the given kind, before
// distance, age, and kind-specific bonuses are applied. Sounds are scored
// far higher than their visual counterparts: a missed sound is much more
// noticeable to a player than a few ticks' position lag.
func baseScore(k Kind, tuning *config.EngineTuning) float64 {
	switch k {
	case KindObject:
		return tuning.GetBaseScoreObject()
	case KindPlayer:
		return tuning.GetBaseScorePlayer()
	case KindSector:
		return tuning.GetBaseScoreSector()
	case KindSide:
		return tuning.GetBaseScoreSide()
	case KindPolyobject:
		return tuning.GetBaseScorePolyobject()
	case KindGenericSound:
		return tuning.GetBaseScoreSound() * 2 / 3
	case KindObjectSound:
		return tuning.GetBaseScoreSound()
	case KindSectorSound:
		return tuning.GetBaseScoreSound() * 5 / 3
	case KindSideSound:
		return tuning.GetBaseScoreSound() * 11 / 6
	case KindPolyobjectSound:
		return tuning.GetBaseScoreSound() * 5 / 3
	default:
		return tuning.GetBaseScoreSound() * 10 / 3
	}
}

// ageDoublingPeriod is the number of milliseconds of age it takes for a
// delta's score to double. Sounds age almost instantly to priority: a
// delayed sound event reads as a glitch within a tick or two, so it must
// win the very next frame it is eligible for.
func ageDoublingPeriod(k Kind, tuning *config.EngineTuning) int64 {
	if k.isSound() {
		return tuning.GetAgeDoublingPeriodSoundMs()
	}
	return tuning.GetAgeDoublingPeriodNormalMs()
}

// scoreFor computes a delta's raw priority score: base / distance^2,
// scaled up by its age and by kind-specific bonuses.
func scoreFor(d *Delta, owner *OwnerInfo, loc Locator, tuning *config.EngineTuning) float64 {
	dist := distance(d, owner, loc)
	score := baseScore(d.Kind, tuning) / (dist * dist)

	period := ageDoublingPeriod(d.Kind, tuning)
	score *= 1 + float64(ageMillis(d))/float64(period)

	score *= kindBonus(d)

	return score
}

// kindBonus applies the per-kind multipliers the rater uses to push
// especially noticeable changes ahead of merely-old ones.
func kindBonus(d *Delta) float64 {
	switch d.Kind {
	case KindObject:
		bonus := 1.0
		if isCreateObject(d) {
			bonus *= 1.5
		}
		if d.Flags&MDFOrigin != 0 {
			bonus *= 1.2
		}
		if d.Flags&(MDFRadius|MDFHeight) != 0 {
			bonus *= objectSizeFactor(d.Object.Radius, d.Object.Height)
		}
		return bonus

	case KindPlayer:
		if d.Flags&PDFMobj != 0 {
			return 2
		}
		return 1

	case KindSector:
		bonus := 1.0
		if d.Flags&SDFLight != 0 {
			bonus *= 1.2
		}
		if d.Flags&(SDFFloorHeight|SDFCeilingHeight|SDFFloorTarget|SDFCeilingTarget) != 0 {
			bonus *= 3
		}
		return bonus

	case KindPolyobject:
		if d.Flags&PODFSpeed != 0 {
			return 1.2
		}
		return 1

	default:
		return 1
	}
}

// objectSizeFactor scales a radius/height bonus by how big the object
// actually is: a barely-visible tiny object is deprioritized, a huge one
// is boosted, and anything in between is left alone.
func objectSizeFactor(radius, height float64) float64 {
	size := radius
	if height > size {
		size = height
	}
	switch {
	case size < 16:
		if size < 2 {
			size = 2
		}
		return size / 16
	case size > 50:
		return size / 50
	default:
		return 1
	}
}

// isPostponed decides whether a delta, though otherwise eligible, should
// be skipped this rating pass. Two cases apply: an UNACKED delta that
// hasn't yet aged past the pool's ack threshold (no point resending before
// the client plausibly could have acked it), and a NEW Stop-sound whose
// matching Start-sound for the same emitter is still UNACKED (sending the
// stop first would have the client stop a sound it never started).
func (p *Pool) isPostponed(d *Delta, logger *slog.Logger) bool {
	if d.State == StateUnacked && ageMillis(d) < p.ownerInfo.AckThreshold {
		return true
	}

	if d.State == StateNew && isStopSound(d) {
		postponed := false
		p.each(func(n *deltaNode) {
			if postponed || n.delta == d {
				return
			}
			if n.delta.State == StateUnacked && isSame(n.delta, d) && isStartSound(n.delta) {
				postponed = true
			}
		})
		if postponed && logger != nil {
			logger.Debug("postponing stop-sound behind unacked start-sound",
				"kind", d.Kind, "id", d.ID)
		}
		return postponed
	}

	return false
}

// heapQueue is an array-backed binary max-heap of deltas, keyed by Score.
// It is rebuilt from scratch every tick rather than supporting
// decrease-key, matching the one-shot nature of a per-frame rating pass.
type heapQueue struct {
	items []*Delta
}

func (h *heapQueue) reset() { h.items = h.items[:0] }

func (h *heapQueue) Len() int { return len(h.items) }

func (h *heapQueue) push(d *Delta) {
	h.items = append(h.items, d)
	h.siftUp(len(h.items) - 1)
}

// peek returns the highest-scored delta without removing it.
func (h *heapQueue) peek() (*Delta, bool) {
	if len(h.items) == 0 {
		return nil, false
	}
	return h.items[0], true
}

// pop removes and returns the highest-scored delta.
func (h *heapQueue) pop() (*Delta, bool) {
	if len(h.items) == 0 {
		return nil, false
	}
	top := h.items[0]
	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.items[last] = nil
	h.items = h.items[:last]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return top, true
}

func (h *heapQueue) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[parent].Score >= h.items[i].Score {
			return
		}
		h.items[parent], h.items[i] = h.items[i], h.items[parent]
		i = parent
	}
}

func (h *heapQueue) siftDown(i int) {
	n := len(h.items)
	for {
		left, right := 2*i+1, 2*i+2
		largest := i
		if left < n && h.items[left].Score > h.items[largest].Score {
			largest = left
		}
		if right < n && h.items[right].Score > h.items[largest].Score {
			largest = right
		}
		if largest == i {
			return
		}
		h.items[i], h.items[largest] = h.items[largest], h.items[i]
		i = largest
	}
}

// RatePool scores every eligible delta in the pool and rebuilds the
// priority queue the frame builder will drain from (C7). Must be called
// once per client, after SetContext, before any ExtractNext. A postponed
// delta is skipped before scoring and keeps its previous Score; a rated
// delta whose score is not positive has its Score recorded but is not
// queued.
func (p *Pool) RatePool(logger *slog.Logger, tuning *config.EngineTuning) {
	p.queue.reset()
	p.each(func(n *deltaNode) {
		d := n.delta
		if p.isPostponed(d, logger) {
			return
		}
		d.Score = scoreFor(d, &p.ownerInfo, p.loc, tuning)
		if d.Score <= 0 {
			return
		}
		p.queue.push(d)
	})
}

// ExtractNext pops the highest-priority delta still queued this frame, or
// returns ok=false once the queue is empty. It does not itself transition
// the delta's state; the caller (frame builder / engine) must call
// markForTransmission once the delta is actually written to the outgoing
// packet, since a delta may be rated but then dropped for lack of space.
func (p *Pool) ExtractNext() (*Delta, bool) {
	return p.queue.pop()
}

package deltapool

// missileRecord holds the origin and momentum a missile object had at the
// moment its Create-object delta was acknowledged, so the flags it
// predicts can be excluded from every later delta for the same object
// until the object is removed.
type missileRecord struct {
	prev, next *missileRecord
	id         ObjectID
	origin     [3]float64
	momentum   [3]float64
}

// missileRecordFlags is the set of object change-flags a client can derive
// on its own, by ballistic extrapolation, once it has a missile's create
// delta: the position and momentum axes. The original engine's exact
// predicate (Sv_MRCheck) was not present in the retrieved source; this is
// the direct reading of the call site's comment and the spec's own
// description of the optimisation ("axes that can be extrapolated").
const missileRecordFlags = MDFOrigin | MDFMom

// missileIndex is the pool's small hash of active missile records, keyed
// by object id modulo the shared object-hash bucket count.
type missileIndex struct {
	buckets [objectHashBuckets]*missileRecord
}

func (idx *missileIndex) find(id ObjectID) *missileRecord {
	for n := idx.buckets[objectBucket(id)]; n != nil; n = n.next {
		if n.id == id {
			return n
		}
	}
	return nil
}

// insert records (or re-records) a missile's create-time origin/momentum.
func (idx *missileIndex) insert(id ObjectID, origin, momentum [3]float64) {
	if n := idx.find(id); n != nil {
		n.origin, n.momentum = origin, momentum
		return
	}
	b := objectBucket(id)
	n := &missileRecord{id: id, origin: origin, momentum: momentum, next: idx.buckets[b]}
	if n.next != nil {
		n.next.prev = n
	}
	idx.buckets[b] = n
}

// remove discards the missile record for id, if any. Called once the
// object itself is removed from the world (Null-object delta, or
// predictable removal).
func (idx *missileIndex) remove(id ObjectID) {
	b := objectBucket(id)
	for n := idx.buckets[b]; n != nil; n = n.next {
		if n.id != id {
			continue
		}
		if n.prev != nil {
			n.prev.next = n.next
		} else {
			idx.buckets[b] = n.next
		}
		if n.next != nil {
			n.next.prev = n.prev
		}
		return
	}
}

// check returns the flags a pool may exclude from a delta targeting id,
// given that a missile record exists for it. Returns 0 if id has no
// active record.
func (idx *missileIndex) check(id ObjectID) Flags {
	if idx.find(id) == nil {
		return 0
	}
	return missileRecordFlags
}

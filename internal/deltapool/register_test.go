package deltapool

import "testing"

func TestObjectIndexAddOrFindInsertsSentinelOnce(t *testing.T) {
	var idx objectIndex
	n1 := idx.addOrFind(5)
	if n1.obj.ID != 5 || n1.obj.Origin[0] != sentinelCoord {
		t.Fatalf("addOrFind did not insert a sentinel node for a new id: %+v", n1.obj)
	}
	n2 := idx.addOrFind(5)
	if n1 != n2 {
		t.Fatalf("addOrFind allocated a second node for an existing id")
	}
}

func TestObjectIndexStoreThenFind(t *testing.T) {
	var idx objectIndex
	idx.store(ObjectPayload{ID: 7, Health: 42})
	n := idx.find(7)
	if n == nil || n.obj.Health != 42 {
		t.Fatalf("find after store = %+v, want Health=42", n)
	}
}

func TestObjectIndexRemoveIDUnlinksFromBucket(t *testing.T) {
	var idx objectIndex
	idx.store(ObjectPayload{ID: 1})
	idx.store(ObjectPayload{ID: 1 + objectHashBuckets}) // same bucket, different id
	idx.removeID(1)

	if idx.find(1) != nil {
		t.Fatalf("id 1 still present after removeID")
	}
	if idx.find(1 + objectHashBuckets) == nil {
		t.Fatalf("removeID corrupted its bucket neighbour")
	}
}

func TestObjectIndexResetRestoresSentinel(t *testing.T) {
	var idx objectIndex
	idx.store(ObjectPayload{ID: 3, Health: 99})
	idx.reset(3)

	n := idx.find(3)
	if n == nil {
		t.Fatalf("reset removed the node instead of zeroing it")
	}
	if n.obj.Origin[0] != sentinelCoord || n.obj.Health != 0 {
		t.Fatalf("reset did not restore the sentinel snapshot: %+v", n.obj)
	}
}

func TestObjectIndexEachVisitsEveryNodeAndSurvivesRemoval(t *testing.T) {
	var idx objectIndex
	for id := ObjectID(1); id <= 5; id++ {
		idx.store(ObjectPayload{ID: id})
	}

	visited := 0
	idx.each(func(n *regObjectNode) {
		visited++
		if n.obj.ID%2 == 0 {
			idx.remove(n)
		}
	})

	if visited != 5 {
		t.Fatalf("each visited %d nodes, want 5", visited)
	}

	remaining := 0
	idx.each(func(*regObjectNode) { remaining++ })
	if remaining != 3 {
		t.Fatalf("remaining nodes after removal = %d, want 3", remaining)
	}
}

func TestRegisterWorldSeedsSkipReferencesFromLiveHeights(t *testing.T) {
	w := newFakeWorld()
	w.sectors = []LiveSector{{Floor: PlaneSnapshot{Height: 64}, Ceiling: PlaneSnapshot{Height: 192}}}

	reg := registerWorld(w, false)

	if reg.floorSkipRef[0] != 64 || reg.ceilingSkipRef[0] != 192 {
		t.Fatalf("skip refs = %v/%v, want 64/192", reg.floorSkipRef[0], reg.ceilingSkipRef[0])
	}
}

package deltapool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool() *Pool {
	p := NewPool(0)
	p.SetContext(OwnerInfo{SoundMaxDistanceBase: 2025}, nil)
	return p
}

func countEntries(p *Pool) int {
	n := 0
	p.each(func(*deltaNode) { n++ })
	return n
}

func TestPoolAddMergesTwoNewDeltasForSameObject(t *testing.T) {
	p := newTestPool()

	first := newDelta(KindObject, 1)
	first.Flags = MDFOriginX
	first.Object.Origin[0] = 10
	p.add(first)

	second := newDelta(KindObject, 1)
	second.Flags = MDFOriginY
	second.Object.Origin[1] = 20
	p.add(second)

	require.Equal(t, 1, countEntries(p))
	p.each(func(n *deltaNode) {
		assert.Equal(t, MDFOriginX|MDFOriginY, n.delta.Flags)
		assert.Equal(t, 10.0, n.delta.Object.Origin[0])
		assert.Equal(t, 20.0, n.delta.Object.Origin[1])
	})
}

func TestPoolAddNullCancelsPendingCreate(t *testing.T) {
	p := newTestPool()

	create := newDelta(KindObject, 5)
	create.Flags = MDFCCreate | MDFOrigin
	p.add(create)
	require.Equal(t, 1, countEntries(p))

	null := newDelta(KindObject, 5)
	null.Flags = MDFCNull
	p.add(null)

	assert.Equal(t, 0, countEntries(p), "create immediately undone by null should vanish entirely")
}

func TestPoolAddNullOnNonCreateLeavesNullMarker(t *testing.T) {
	p := newTestPool()

	update := newDelta(KindObject, 5)
	update.Flags = MDFOriginX
	p.add(update)

	null := newDelta(KindObject, 5)
	null.Flags = MDFCNull
	p.add(null)

	require.Equal(t, 1, countEntries(p))
	p.each(func(n *deltaNode) {
		assert.Equal(t, MDFCNull, n.delta.Flags)
	})
}

func TestPoolAddSubtractsFromUnackedMatch(t *testing.T) {
	p := newTestPool()

	d := newDelta(KindObject, 9)
	d.Flags = MDFOriginX | MDFOriginY
	p.add(d)
	p.each(func(n *deltaNode) { p.markForTransmission(n.delta, false) })

	replacement := newDelta(KindObject, 9)
	replacement.Flags = MDFOriginX
	p.add(replacement)

	// The UNACKED copy loses MDFOriginX (now superseded) but keeps
	// MDFOriginY; a fresh NEW copy carries the replacement data.
	var sawUnacked, sawNew bool
	p.each(func(n *deltaNode) {
		switch n.delta.State {
		case StateUnacked:
			sawUnacked = true
			assert.Equal(t, MDFOriginY, n.delta.Flags)
		case StateNew:
			sawNew = true
			assert.Equal(t, MDFOriginX, n.delta.Flags)
		}
	})
	assert.True(t, sawUnacked)
	assert.True(t, sawNew)
}

func TestPoolAddVoidsUnackedEntryEntirely(t *testing.T) {
	p := newTestPool()

	d := newDelta(KindObject, 3)
	d.Flags = MDFOriginX
	p.add(d)
	p.each(func(n *deltaNode) { p.markForTransmission(n.delta, false) })

	null := newDelta(KindObject, 3)
	null.Flags = MDFCNull
	p.add(null)

	// The UNACKED copy's only field is fully subtracted away (Null
	// subtracts everything) and must be removed; a fresh NEW null is left.
	require.Equal(t, 1, countEntries(p))
	p.each(func(n *deltaNode) {
		assert.Equal(t, StateNew, n.delta.State)
		assert.True(t, isNullObject(n.delta))
	})
}

func TestPoolExcludeCameraOwnObject(t *testing.T) {
	p := newTestPool()
	p.SetContext(OwnerInfo{CameraObject: 1}, nil)

	d := newDelta(KindObject, 1)
	d.Flags = MDFOrigin | MDFHealth
	p.add(d)

	require.Equal(t, 1, countEntries(p))
	p.each(func(n *deltaNode) {
		assert.Equal(t, MDFHealth, n.delta.Flags, "origin/mom/angle must be excluded for the owner's own camera object")
	})
}

func TestPoolExcludeDropsWhollyExcludedDelta(t *testing.T) {
	p := newTestPool()
	p.SetContext(OwnerInfo{CameraObject: 1}, nil)

	d := newDelta(KindObject, 1)
	d.Flags = MDFOriginX
	p.add(d)

	assert.Equal(t, 0, countEntries(p))
}

func TestPoolAckSetRemovesMatchingUnacked(t *testing.T) {
	p := newTestPool()

	d := newDelta(KindObject, 1)
	d.Flags = MDFOriginX
	p.add(d)
	p.each(func(n *deltaNode) { p.markForTransmission(n.delta, false) })

	var set uint32
	p.each(func(n *deltaNode) { set = n.delta.Set })

	p.ackSet(set)
	assert.Equal(t, 0, countEntries(p))
}

func TestPoolAckRegistersMissileRecordForCreate(t *testing.T) {
	p := newTestPool()

	d := newDelta(KindObject, 1)
	d.Flags = MDFCCreate | MDFOrigin | MDFMom
	d.Object.DDFlags = ddmfMissile
	d.Object.Origin = [3]float64{1, 2, 3}
	p.add(d)
	p.each(func(n *deltaNode) { p.markForTransmission(n.delta, false) })

	var set uint32
	p.each(func(n *deltaNode) { set = n.delta.Set })
	p.ackSet(set)

	assert.NotNil(t, p.missiles.find(1))
}

func TestPoolDrainResetsEverything(t *testing.T) {
	p := newTestPool()
	d := newDelta(KindObject, 1)
	d.Flags = MDFOriginX
	p.add(d)
	p.markForTransmission(d, false)

	p.drain()

	assert.Equal(t, 0, countEntries(p))
	assert.True(t, p.isFirst)
	assert.EqualValues(t, 0, p.setDealer)
}

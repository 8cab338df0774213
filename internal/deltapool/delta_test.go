package deltapool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeltaStampsNewState(t *testing.T) {
	restore := fixNow(1000)
	defer restore()

	d := newDelta(KindObject, 42)

	require.Equal(t, KindObject, d.Kind)
	assert.EqualValues(t, 42, d.ID)
	assert.Equal(t, StateNew, d.State)
	assert.EqualValues(t, 1000, d.Timestamp)
}

func TestIsVoid(t *testing.T) {
	d := newDelta(KindSector, 1)
	assert.True(t, isVoid(d))
	d.Flags = SDFLight
	assert.False(t, isVoid(d))
}

func TestIsSame(t *testing.T) {
	a := newDelta(KindObject, 7)
	b := newDelta(KindObject, 7)
	c := newDelta(KindPlayer, 7)
	d := newDelta(KindObject, 8)

	assert.True(t, isSame(a, b))
	assert.False(t, isSame(a, c))
	assert.False(t, isSame(a, d))
}

func TestStartStopSoundClassification(t *testing.T) {
	start := newDelta(KindObjectSound, 1)
	start.Flags = SNDDFVolume
	start.Sound.Volume = 0.8
	assert.True(t, isStartSound(start))
	assert.False(t, isStopSound(start))

	stop := newDelta(KindObjectSound, 1)
	stop.Flags = SNDDFVolume
	stop.Sound.Volume = 0
	assert.False(t, isStartSound(stop))
	assert.True(t, isStopSound(stop))

	notVolume := newDelta(KindObjectSound, 1)
	notVolume.Flags = SNDDFRepeat
	assert.False(t, isStartSound(notVolume))
	assert.False(t, isStopSound(notVolume))
}

func TestAgeMillisNeverNegative(t *testing.T) {
	restore := fixNow(1000)
	d := newDelta(KindObject, 1)
	restore()

	restore = fixNow(500) // clock moved backwards relative to d.Timestamp
	defer restore()
	assert.EqualValues(t, 0, ageMillis(d))
}

// fixNow overrides nowMillis for the duration of a test and returns a
// restore function.
func fixNow(ms int64) func() {
	prev := nowMillis
	nowMillis = func() int64 { return ms }
	return func() { nowMillis = prev }
}

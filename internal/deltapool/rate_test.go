package deltapool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doomsday-net/deltapool/internal/config"
)

func TestBaseScoreOrdersSoundAboveItsVisualCounterpart(t *testing.T) {
	tuning := config.EmptyEngineTuning()
	assert.Greater(t, baseScore(KindObjectSound, tuning), baseScore(KindObject, tuning))
	assert.Greater(t, baseScore(KindSideSound, tuning), baseScore(KindSide, tuning))
}

func TestAgeDoublingPeriodSoundsAgeFaster(t *testing.T) {
	tuning := config.EmptyEngineTuning()
	assert.Less(t, ageDoublingPeriod(KindObjectSound, tuning), ageDoublingPeriod(KindObject, tuning))
}

func TestKindBonusObjectCreateBeatsPlainUpdate(t *testing.T) {
	create := newDelta(KindObject, 1)
	create.Flags = MDFCCreate
	update := newDelta(KindObject, 1)
	update.Flags = MDFHealth

	assert.Greater(t, kindBonus(create), kindBonus(update))
}

func TestKindBonusPlayerMobjChangeDoublesBonus(t *testing.T) {
	d := newDelta(KindPlayer, 0)
	d.Flags = PDFMobj
	assert.Equal(t, 2.0, kindBonus(d))
}

func TestKindBonusDeprioritizesTinyObjectsAndBoostsLargeOnes(t *testing.T) {
	tiny := newDelta(KindObject, 1)
	tiny.Flags = MDFRadius | MDFHeight
	tiny.Object.Radius = 2
	tiny.Object.Height = 3
	assert.InDelta(t, 0.1875, kindBonus(tiny), 0.0001)

	unchanged := newDelta(KindObject, 2)
	unchanged.Flags = MDFRadius | MDFHeight
	unchanged.Object.Radius = 20
	unchanged.Object.Height = 30
	assert.Equal(t, 1.0, kindBonus(unchanged))

	huge := newDelta(KindObject, 3)
	huge.Flags = MDFRadius | MDFHeight
	huge.Object.Radius = 64
	huge.Object.Height = 100
	assert.InDelta(t, 2.0, kindBonus(huge), 0.0001)
}

func TestKindBonusSectorPlaneMotionOutweighsLight(t *testing.T) {
	light := newDelta(KindSector, 0)
	light.Flags = SDFLight
	plane := newDelta(KindSector, 0)
	plane.Flags = SDFFloorHeight

	assert.Greater(t, kindBonus(plane), kindBonus(light))
}

func TestScoreForDecaysWithDistanceSquared(t *testing.T) {
	restore := fixNow(1000)
	defer restore()
	tuning := config.EmptyEngineTuning()

	near := newDelta(KindObject, 1)
	near.Object.Origin = [3]float64{10, 0, 0}
	far := newDelta(KindObject, 2)
	far.Object.Origin = [3]float64{100, 0, 0}

	owner := &OwnerInfo{Origin: [3]float64{0, 0, 0}}
	assert.Greater(t, scoreFor(near, owner, nil, tuning), scoreFor(far, owner, nil, tuning))
}

func TestScoreForGrowsWithAge(t *testing.T) {
	restore := fixNow(1000)
	defer restore()
	tuning := config.EmptyEngineTuning()
	owner := &OwnerInfo{}

	d := newDelta(KindObject, 1)
	d.Object.Origin = [3]float64{10, 0, 0}
	young := scoreFor(d, owner, nil, tuning)

	fixNow(1000 + tuning.GetAgeDoublingPeriodNormalMs())
	old := scoreFor(d, owner, nil, tuning)

	assert.InDelta(t, 2*young, old, 0.001)
}

func TestIsPostponedUnackedBelowAckThreshold(t *testing.T) {
	restore := fixNow(1000)
	defer restore()

	p := NewPool(0)
	p.ownerInfo.AckThreshold = 500

	d := newDelta(KindObject, 1)
	d.State = StateUnacked

	fixNow(1200)
	assert.True(t, p.isPostponed(d, nil))

	fixNow(1600)
	assert.False(t, p.isPostponed(d, nil))
}

func TestIsPostponedStopSoundBehindUnackedStartSound(t *testing.T) {
	restore := fixNow(1000)
	defer restore()

	p := NewPool(0)

	start := newDelta(KindObjectSound, 9)
	start.Flags = SNDDFVolume
	start.Sound.Volume = 1
	start.State = StateUnacked
	startNode := &deltaNode{delta: start}
	p.link(startNode)

	stop := newDelta(KindObjectSound, 9)
	stop.Flags = SNDDFVolume
	stop.Sound.Volume = 0
	stop.State = StateNew

	assert.True(t, p.isPostponed(stop, nil))
}

func TestHeapQueuePopsHighestScoreFirst(t *testing.T) {
	var h heapQueue
	a := &Delta{Score: 3}
	b := &Delta{Score: 9}
	c := &Delta{Score: 1}
	h.push(a)
	h.push(b)
	h.push(c)

	first, ok := h.pop()
	require.True(t, ok)
	assert.Same(t, b, first)

	second, ok := h.pop()
	require.True(t, ok)
	assert.Same(t, a, second)

	third, ok := h.pop()
	require.True(t, ok)
	assert.Same(t, c, third)

	_, ok = h.pop()
	assert.False(t, ok)
}

func TestRatePoolOrdersByScore(t *testing.T) {
	restore := fixNow(1000)
	defer restore()
	tuning := config.EmptyEngineTuning()

	p := NewPool(0)
	p.SetContext(OwnerInfo{}, nil)

	near := newDelta(KindObject, 1)
	near.Object.Origin = [3]float64{1, 0, 0}
	near.Flags = MDFOrigin
	p.add(near)

	far := newDelta(KindObject, 2)
	far.Object.Origin = [3]float64{1000, 0, 0}
	far.Flags = MDFOrigin
	p.add(far)

	p.RatePool(nil, tuning)

	first, ok := p.ExtractNext()
	require.True(t, ok)
	assert.EqualValues(t, 1, first.ID)
}

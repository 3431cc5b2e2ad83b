package buffer

import (
	"testing"

	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestFrameReplacerHand(t *testing.T) {
	m, _ := newTestManager(t, util.PolicyFrame, 3, 0)
	fr := m.Replacer().(*FrameReplacer)

	for _, id := range []util.PageID{1, 2, 3} {
		mustRead(t, m, id)
	}
	mustRead(t, m, 1)
	mustWrite(t, m, 1, 'a')
	assert.Equal(t, 0, fr.nextVictimIdx, "hits never move the hand")

	mustRead(t, m, 4)
	assert.False(t, isResident(t, m, 1), "slot 0 goes first regardless of recency")
	mustRead(t, m, 5)
	assert.False(t, isResident(t, m, 2))
	mustRead(t, m, 6)
	assert.False(t, isResident(t, m, 3))
	assert.Equal(t, 0, fr.nextVictimIdx, "hand wraps around")

	mustRead(t, m, 7)
	assert.False(t, isResident(t, m, 4))
	assert.ElementsMatch(t, []util.PageID{5, 6, 7}, residentSet(t, m))
}

func TestFrameReplacerFailures(t *testing.T) {
	t.Run("WriteBackFailureKeepsHand", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		dev := NewMockDevice(ctrl)
		dev.EXPECT().PageSize().Return(testPageSize).AnyTimes()

		bm, err := New(util.PolicyFrame, dev, Config{Capacity: 2})
		require.NoError(t, err)
		m := bm.(*Manager)
		fr := m.Replacer().(*FrameReplacer)
		mustWrite(t, m, 1, 'a')
		mustWrite(t, m, 2, 'b')

		dev.EXPECT().Write(util.PageID(1), gomock.Any()).Return(errors.New("busy"))
		assert.Error(t, m.Write(3, util.FilledPage(testPageSize, 'c')))
		assert.Equal(t, 0, fr.nextVictimIdx)

		dev.EXPECT().Write(util.PageID(1), gomock.Any()).Return(nil)
		mustWrite(t, m, 3, 'c')
		assert.Equal(t, 1, fr.nextVictimIdx)
		assert.ElementsMatch(t, []util.PageID{2, 3}, residentSet(t, m))
	})

	t.Run("FillFailureFreesSlot", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		dev := NewMockDevice(ctrl)
		dev.EXPECT().PageSize().Return(testPageSize).AnyTimes()

		bm, err := New(util.PolicyFrame, dev, Config{Capacity: 2})
		require.NoError(t, err)
		m := bm.(*Manager)
		fr := m.Replacer().(*FrameReplacer)

		gomock.InOrder(
			dev.EXPECT().Read(util.PageID(1), gomock.Any()).Return(nil),
			dev.EXPECT().Read(util.PageID(2), gomock.Any()).Return(nil),
			dev.EXPECT().Read(util.PageID(3), gomock.Any()).Return(errors.New("ecc")),
			dev.EXPECT().Read(util.PageID(4), gomock.Any()).Return(nil),
			dev.EXPECT().Read(util.PageID(5), gomock.Any()).Return(nil),
		)
		mustRead(t, m, 1)
		mustRead(t, m, 2)
		assert.Error(t, m.Read(3, make([]byte, testPageSize)))
		assert.ElementsMatch(t, []util.PageID{2}, residentSet(t, m), "page 1 was evicted before the failed read")
		assert.Equal(t, 1, fr.nextVictimIdx)

		mustRead(t, m, 4) // free slot 0
		assert.Equal(t, 1, fr.nextVictimIdx)
		mustRead(t, m, 5) // hand at slot 1
		assert.ElementsMatch(t, []util.PageID{4, 5}, residentSet(t, m))
	})
}

func TestFrameReplacerRelease(t *testing.T) {
	m, mem := newTestManager(t, util.PolicyFrame, 2, 0)
	mustWrite(t, m, 1, 'a')
	mustWrite(t, m, 2, 'b')
	mustWrite(t, m, 3, 'c')

	r := m.Replacer()
	require.NoError(t, r.Release())
	assert.Zero(t, r.Resident())
	assert.Equal(t, 0, r.(*FrameReplacer).nextVictimIdx)
	assert.Equal(t, int64(3), mem.WriteCount())
	assert.Equal(t, 2, r.Capacity())

	mustRead(t, m, 1)
	assert.Equal(t, util.FilledPage(testPageSize, 'a'), mustRead(t, m, 1))
}

package buffer

import (
	"testing"

	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/page"
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headerOf(t *testing.T, m *Manager, pageID util.PageID) *page.FrameHeader {
	t.Helper()
	rs := sharedOf(t, m)
	idx, ok := rs.lookup(pageID)
	require.True(t, ok, "page %d resident", pageID)
	return &rs.frames[idx].Header
}

func TestLRUWSRAccess(t *testing.T) {
	t.Run("AdmissionSetsReferenced", func(t *testing.T) {
		m, _ := newTestManager(t, util.PolicyLRUWSR, 3, 0)
		mustRead(t, m, 1)
		mustWrite(t, m, 2, 'b')
		assert.True(t, headerOf(t, m, 1).IsReferenced())
		assert.True(t, headerOf(t, m, 2).IsReferenced())
		assert.True(t, headerOf(t, m, 2).IsDirty())
	})

	t.Run("CleanHitMovesToHead", func(t *testing.T) {
		m, _ := newTestManager(t, util.PolicyLRUWSR, 3, 0)
		mustRead(t, m, 1)
		mustRead(t, m, 2)
		mustRead(t, m, 1)
		assert.Equal(t, []util.PageID{1, 2}, sharedOf(t, m).order())

		mustWrite(t, m, 2, 'x') // clean before the access
		assert.Equal(t, []util.PageID{2, 1}, sharedOf(t, m).order())
	})

	t.Run("DirtyHitKeepsPosition", func(t *testing.T) {
		m, _ := newTestManager(t, util.PolicyLRUWSR, 3, 0)
		mustWrite(t, m, 1, 'a')
		mustRead(t, m, 2)
		mustRead(t, m, 1)
		mustWrite(t, m, 1, 'b')
		assert.Equal(t, []util.PageID{2, 1}, sharedOf(t, m).order())
	})
}

func TestLRUWSRGraceExtension(t *testing.T) {
	t.Run("CleanEvictedBeforeReferencedDirty", func(t *testing.T) {
		m, mem := newTestManager(t, util.PolicyLRUWSR, 3, 0)
		mustWrite(t, m, 1, 'a') // tail, dirty and referenced
		mustRead(t, m, 2)
		mustRead(t, m, 3)

		mustRead(t, m, 4)
		assert.True(t, isResident(t, m, 1), "dirty tail granted a second chance")
		assert.False(t, isResident(t, m, 2), "next clean candidate evicted")
		assert.False(t, headerOf(t, m, 1).IsReferenced(), "grace clears the bit")
		assert.Equal(t, []util.PageID{4, 1, 3}, sharedOf(t, m).order())
		assert.Zero(t, mem.WriteCount())
	})

	t.Run("SurvivesExactlyOneSweep", func(t *testing.T) {
		m, mem := newTestManager(t, util.PolicyLRUWSR, 2, 0)
		mustWrite(t, m, 1, 'a')
		mustRead(t, m, 2)
		// order: 2, 1 (tail, dirty, referenced)

		mustRead(t, m, 3)
		assert.True(t, isResident(t, m, 1), "first sweep extends page 1")
		assert.False(t, isResident(t, m, 2))
		// order: 3, 1 (tail, dirty, unreferenced)

		assert.False(t, headerOf(t, m, 1).IsReferenced())

		mustRead(t, m, 4)
		assert.False(t, isResident(t, m, 1), "no second grace without an access")
		assert.True(t, isResident(t, m, 3))
		assert.Equal(t, int64(1), mem.WriteCount(), "page 1 written back")
	})

	t.Run("AccessRenewsGrace", func(t *testing.T) {
		m, mem := newTestManager(t, util.PolicyLRUWSR, 2, 0)
		mustWrite(t, m, 1, 'a')
		mustRead(t, m, 2)
		mustRead(t, m, 3) // page 1 spends its grace
		mustRead(t, m, 1) // dirty hit: referenced again, no move
		assert.True(t, headerOf(t, m, 1).IsReferenced())

		mustWrite(t, m, 4, 'd')
		assert.True(t, isResident(t, m, 1))
		assert.False(t, isResident(t, m, 3))
		assert.Zero(t, mem.WriteCount())
	})

	t.Run("AllDirtyReferenced", func(t *testing.T) {
		m, mem := newTestManager(t, util.PolicyLRUWSR, 2, 0)
		mustWrite(t, m, 1, 'a')
		mustWrite(t, m, 2, 'b')

		mustRead(t, m, 3)
		assert.False(t, isResident(t, m, 1), "after every frame spent its grace the old tail goes")
		assert.True(t, isResident(t, m, 2))
		assert.Equal(t, int64(1), mem.WriteCount())
		assert.False(t, headerOf(t, m, 2).IsReferenced())
	})
}

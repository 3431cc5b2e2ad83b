package buffer

import (
	"fmt"

	"github.com/bietkhonhungvandi212/flashbuf/internal/metrics"
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/device"
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/page"
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
	"github.com/sirupsen/logrus"
)

// replacerShared provides common state and methods for replacement policies.
// Frames live in an arena addressed by slot index; the recency list is threaded
// through prevIdx/nextIdx with -1 as nil.
type replacerShared struct {
	name      string
	frames    []*page.Frame       // Allocated on first use of a slot
	pageToIdx map[util.PageID]int // Map PageID to frame index
	nextFree  []int               // Free list for allocation
	freeHead  int                 // Head of free list
	prevIdx   []int
	nextIdx   []int
	head      int // Most recently used
	tail      int // Least recently used, evicted first
	poolSize  int // Total frames
	pageSize  int

	dev device.Device
	log logrus.FieldLogger
	rec metrics.Recorder
}

func newReplacerShared(name string, dev device.Device, cfg Config) (*replacerShared, error) {
	if dev == nil {
		return nil, util.InvalidConfiguration("%s: nil device", name)
	}
	size := cfg.Capacity
	if size <= 0 {
		return nil, util.InvalidConfiguration("%s: capacity must be positive, got %d", name, size)
	}
	pageSize := dev.PageSize()
	if pageSize <= 0 {
		return nil, util.InvalidConfiguration("%s: device page size must be positive, got %d", name, pageSize)
	}
	if cfg.PageSize != 0 && cfg.PageSize != pageSize {
		return nil, util.InvalidConfiguration("%s: page size %d does not match device page size %d", name, cfg.PageSize, pageSize)
	}

	rs := &replacerShared{
		name:      name,
		frames:    make([]*page.Frame, size),
		pageToIdx: make(map[util.PageID]int, size),
		nextFree:  make([]int, size),
		prevIdx:   make([]int, size),
		nextIdx:   make([]int, size),
		poolSize:  size,
		pageSize:  pageSize,
		dev:       dev,
		log:       cfg.logger().WithField("policy", name),
		rec:       cfg.recorder(),
	}
	rs.reset()
	return rs, nil
}

func (rs *replacerShared) reset() {
	clear(rs.pageToIdx)
	rs.freeHead = 0
	for i := 0; i < rs.poolSize; i++ {
		rs.nextFree[i] = i + 1
		rs.prevIdx[i] = -1
		rs.nextIdx[i] = -1
	}
	rs.nextFree[rs.poolSize-1] = -1
	rs.head = -1
	rs.tail = -1
}

func (rs *replacerShared) Name() string { return rs.name }

func (rs *replacerShared) Capacity() int { return rs.poolSize }

func (rs *replacerShared) Resident() int { return len(rs.pageToIdx) }

func (rs *replacerShared) frameAt(frameIdx int) *page.Frame {
	if frameIdx >= rs.poolSize || frameIdx < 0 {
		panic(fmt.Sprintf("[%s] frame index out of bound: %d", rs.name, frameIdx))
	}
	if rs.frames[frameIdx] == nil {
		rs.frames[frameIdx] = page.NewFrame(rs.pageSize)
	}
	return rs.frames[frameIdx]
}

// lookup returns the slot holding pageID.
func (rs *replacerShared) lookup(pageID util.PageID) (int, bool) {
	idx, ok := rs.pageToIdx[pageID]
	return idx, ok
}

// isResident reports whether slot frameIdx currently holds an indexed page.
func (rs *replacerShared) isResident(frameIdx int) bool {
	f := rs.frames[frameIdx]
	if f == nil {
		return false
	}
	idx, ok := rs.pageToIdx[f.Header.PageID]
	return ok && idx == frameIdx
}

// allocFromFree allocates a free frame index.
func (rs *replacerShared) allocFromFree() int {
	if rs.freeHead == -1 {
		return -1
	}
	freeIdx := rs.freeHead
	rs.freeHead = rs.nextFree[freeIdx]
	rs.nextFree[freeIdx] = -1
	return freeIdx
}

// returnFrameToFree returns a frame to the free list.
func (rs *replacerShared) returnFrameToFree(frameIdx int) {
	rs.nextFree[frameIdx] = rs.freeHead
	rs.freeHead = frameIdx
}

// ===================== RECENCY LIST =====================

func (rs *replacerShared) inList(frameIdx int) bool {
	return rs.prevIdx[frameIdx] != -1 || rs.nextIdx[frameIdx] != -1 || rs.head == frameIdx
}

func (rs *replacerShared) pushHead(frameIdx int) {
	tmp := rs.head
	rs.head = frameIdx
	rs.prevIdx[frameIdx] = -1
	rs.nextIdx[frameIdx] = tmp

	if tmp != -1 {
		rs.prevIdx[tmp] = frameIdx
	}
	if rs.tail == -1 {
		rs.tail = frameIdx
	}
}

func (rs *replacerShared) unlink(frameIdx int) {
	if !rs.inList(frameIdx) {
		panic(fmt.Sprintf("[%s] [unlink] frame index %d is not linked", rs.name, frameIdx))
	}

	prev := rs.prevIdx[frameIdx]
	next := rs.nextIdx[frameIdx]
	isHead := prev == -1
	isTail := next == -1

	switch {
	case isHead && isTail:
		// Only one node in the list
		rs.head = -1
		rs.tail = -1
	case isHead && !isTail:
		rs.head = next
		rs.prevIdx[next] = -1
	case !isHead && isTail:
		rs.tail = prev
		rs.nextIdx[prev] = -1
	default:
		rs.nextIdx[prev] = next
		rs.prevIdx[next] = prev
	}

	// Clear the removed node's links
	rs.nextIdx[frameIdx] = -1
	rs.prevIdx[frameIdx] = -1
}

func (rs *replacerShared) moveToHead(frameIdx int) {
	if rs.head == frameIdx {
		return
	}
	rs.unlink(frameIdx)
	rs.pushHead(frameIdx)
}

// order returns the page ids along the recency list, most recent first.
func (rs *replacerShared) order() []util.PageID {
	out := make([]util.PageID, 0, rs.Resident())
	for idx := rs.head; idx != -1; idx = rs.nextIdx[idx] {
		out = append(out, rs.frames[idx].Header.PageID)
	}
	return out
}

// ===================== ADMISSION / EVICTION =====================

// admit places pageID into a free slot, or into the slot picked by victim after
// evicting its page. The slot is linked into neither the index nor the recency
// list until fill succeeds.
func (rs *replacerShared) admit(pageID util.PageID, fill FillFunc, victim func() (int, error)) (int, *page.Frame, error) {
	if _, ok := rs.pageToIdx[pageID]; ok {
		return -1, nil, util.ErrPageExistedInBuffer
	}

	frameIdx := rs.allocFromFree()
	if frameIdx == -1 {
		idx, err := victim()
		if err != nil {
			return -1, nil, err
		}
		if err := rs.evict(idx); err != nil {
			return -1, nil, err
		}
		frameIdx = idx
	}

	f := rs.frameAt(frameIdx)
	f.Reset(pageID)
	if err := fill(f.Data); err != nil {
		rs.returnFrameToFree(frameIdx)
		return -1, nil, err
	}
	rs.pageToIdx[pageID] = frameIdx
	return frameIdx, f, nil
}

// writeBack persists a dirty frame. The dirty flag is cleared only once the
// device accepted the write.
func (rs *replacerShared) writeBack(frameIdx int) error {
	f := rs.frames[frameIdx]
	if !f.Header.IsDirty() {
		return nil
	}
	if err := rs.dev.Write(f.Header.PageID, f.Data); err != nil {
		rs.log.WithFields(logrus.Fields{
			"page":  f.Header.PageID,
			"frame": frameIdx,
		}).WithError(err).Warn("write-back failed")
		return util.DeviceFailure("write-back", f.Header.PageID, err)
	}
	_ = f.Header.ClearDirtyFlag()
	rs.rec.WriteBack(rs.name)
	return nil
}

// evict writes back and removes the page held by frameIdx. On a failed
// write-back the frame stays resident and dirty.
func (rs *replacerShared) evict(frameIdx int) error {
	f := rs.frames[frameIdx]
	dirty := f.Header.IsDirty()
	if err := rs.writeBack(frameIdx); err != nil {
		return err
	}
	if rs.inList(frameIdx) {
		rs.unlink(frameIdx)
	}
	delete(rs.pageToIdx, f.Header.PageID)
	rs.rec.Eviction(rs.name)
	rs.log.WithFields(logrus.Fields{
		"page":  f.Header.PageID,
		"frame": frameIdx,
		"dirty": dirty,
	}).Debug("evicted")
	return nil
}

// FlushAll writes back dirty frames in slot order and stops at the first failure.
func (rs *replacerShared) FlushAll() error {
	for idx := 0; idx < rs.poolSize; idx++ {
		if !rs.isResident(idx) {
			continue
		}
		if err := rs.writeBack(idx); err != nil {
			return err
		}
	}
	return nil
}

func (rs *replacerShared) Release() error {
	if err := rs.FlushAll(); err != nil {
		return err
	}
	rs.reset()
	return nil
}

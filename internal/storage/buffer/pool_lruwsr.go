package buffer

import (
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/device"
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/page"
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
)

// LRUWSRReplacer is LRU with write sequence reordering. A dirty frame found
// at the tail with its referenced bit set gets its bit cleared and is moved
// back to the head once instead of being written back.
type LRUWSRReplacer struct {
	*replacerShared
}

func NewLRUWSRReplacer(dev device.Device, cfg Config) (*LRUWSRReplacer, error) {
	rs, err := newReplacerShared(util.PolicyLRUWSR, dev, cfg)
	if err != nil {
		return nil, err
	}
	return &LRUWSRReplacer{replacerShared: rs}, nil
}

// Lookup moves a clean frame to the head. A dirty frame keeps its position
// and only has its referenced bit set.
func (wr *LRUWSRReplacer) Lookup(pageID util.PageID, _ AccessType) *page.Frame {
	idx, ok := wr.lookup(pageID)
	if !ok {
		return nil
	}
	f := wr.frames[idx]
	if !f.Header.IsDirty() {
		wr.moveToHead(idx)
	}
	f.Header.SetReferencedFlag()
	return f
}

func (wr *LRUWSRReplacer) Admit(pageID util.PageID, _ AccessType, fill FillFunc) (*page.Frame, error) {
	idx, f, err := wr.admit(pageID, fill, wr.victim)
	if err != nil {
		return nil, err
	}
	wr.pushHead(idx)
	f.Header.SetReferencedFlag()
	return f, nil
}

func (wr *LRUWSRReplacer) victim() (int, error) {
	// each dirty frame is granted at most one extension per sweep
	for range wr.Resident() + 1 {
		idx := wr.tail
		if idx == -1 {
			return -1, util.ErrNoFreeFrame
		}
		h := &wr.frames[idx].Header
		if !h.IsDirty() || !h.IsReferenced() {
			return idx, nil
		}
		_ = h.ClearReferencedFlag()
		wr.moveToHead(idx)
		wr.log.WithField("page", h.PageID).Trace("second chance")
	}
	return wr.tail, nil
}

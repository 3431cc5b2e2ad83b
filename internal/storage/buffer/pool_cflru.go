package buffer

import (
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/device"
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/page"
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
)

// CFLRUReplacer is a clean-first LRU. The first window positions from the
// head form the working region and are never chosen as victims; in the
// remaining clean-first region the least recently used clean frame is evicted
// before any dirty one.
type CFLRUReplacer struct {
	*replacerShared
	window int
}

func NewCFLRUReplacer(dev device.Device, cfg Config) (*CFLRUReplacer, error) {
	rs, err := newReplacerShared(util.PolicyCFLRU, dev, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Window < 0 || cfg.Window >= cfg.Capacity {
		return nil, util.InvalidConfiguration("cflru: window %d outside [0, %d)", cfg.Window, cfg.Capacity)
	}
	return &CFLRUReplacer{replacerShared: rs, window: cfg.Window}, nil
}

// Window is the number of protected positions.
func (cr *CFLRUReplacer) Window() int { return cr.window }

func (cr *CFLRUReplacer) Lookup(pageID util.PageID, _ AccessType) *page.Frame {
	idx, ok := cr.lookup(pageID)
	if !ok {
		return nil
	}
	cr.moveToHead(idx)
	return cr.frames[idx]
}

func (cr *CFLRUReplacer) Admit(pageID util.PageID, _ AccessType, fill FillFunc) (*page.Frame, error) {
	idx, f, err := cr.admit(pageID, fill, cr.victim)
	if err != nil {
		return nil, err
	}
	cr.pushHead(idx)
	return f, nil
}

// victim scans the clean-first region from the tail for a clean frame and
// falls back to the tail itself.
func (cr *CFLRUReplacer) victim() (int, error) {
	if cr.tail == -1 {
		return -1, util.ErrNoFreeFrame
	}
	eligible := cr.Resident() - cr.window
	idx := cr.tail
	for n := 0; n < eligible && idx != -1; n++ {
		if !cr.frames[idx].Header.IsDirty() {
			return idx, nil
		}
		idx = cr.prevIdx[idx]
	}
	return cr.tail, nil
}

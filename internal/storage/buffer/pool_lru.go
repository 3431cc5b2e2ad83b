package buffer

import (
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/device"
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/page"
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
)

// LRUReplacer evicts the least recently used frame.
type LRUReplacer struct {
	*replacerShared
}

func NewLRUReplacer(dev device.Device, cfg Config) (*LRUReplacer, error) {
	rs, err := newReplacerShared(util.PolicyLRU, dev, cfg)
	if err != nil {
		return nil, err
	}
	return &LRUReplacer{replacerShared: rs}, nil
}

func (lr *LRUReplacer) Lookup(pageID util.PageID, _ AccessType) *page.Frame {
	idx, ok := lr.lookup(pageID)
	if !ok {
		return nil
	}
	lr.moveToHead(idx)
	return lr.frames[idx]
}

func (lr *LRUReplacer) Admit(pageID util.PageID, _ AccessType, fill FillFunc) (*page.Frame, error) {
	idx, f, err := lr.admit(pageID, fill, lr.victim)
	if err != nil {
		return nil, err
	}
	lr.pushHead(idx)
	return f, nil
}

func (lr *LRUReplacer) victim() (int, error) {
	if lr.tail == -1 {
		return -1, util.ErrNoFreeFrame // This mark empty LRU
	}
	return lr.tail, nil
}

package buffer

import (
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/device"
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/page"
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
)

// FrameReplacer is the baseline pool without ranking. It fills free slots
// first; once full, a hand sweeps the slots in order and evicts whatever it
// points at. Accesses never change the order.
type FrameReplacer struct {
	*replacerShared
	nextVictimIdx int
	sweeping      bool
	occupant      util.PageID
}

func NewFrameReplacer(dev device.Device, cfg Config) (*FrameReplacer, error) {
	rs, err := newReplacerShared(util.PolicyFrame, dev, cfg)
	if err != nil {
		return nil, err
	}
	return &FrameReplacer{replacerShared: rs}, nil
}

func (fr *FrameReplacer) Lookup(pageID util.PageID, _ AccessType) *page.Frame {
	idx, ok := fr.lookup(pageID)
	if !ok {
		return nil
	}
	return fr.frames[idx]
}

func (fr *FrameReplacer) Admit(pageID util.PageID, _ AccessType, fill FillFunc) (*page.Frame, error) {
	fr.sweeping = false
	victimIdx := fr.nextVictimIdx
	_, f, err := fr.admit(pageID, fill, fr.victim)

	// a failed write-back keeps the hand on the same slot
	if fr.sweeping && !fr.holds(victimIdx, fr.occupant) {
		fr.nextVictimIdx = (victimIdx + 1) % fr.poolSize
	}
	return f, err
}

func (fr *FrameReplacer) victim() (int, error) {
	fr.sweeping = true
	fr.occupant = fr.frames[fr.nextVictimIdx].Header.PageID
	return fr.nextVictimIdx, nil
}

func (fr *FrameReplacer) holds(frameIdx int, pageID util.PageID) bool {
	return fr.isResident(frameIdx) && fr.frames[frameIdx].Header.PageID == pageID
}

func (fr *FrameReplacer) Release() error {
	if err := fr.replacerShared.Release(); err != nil {
		return err
	}
	fr.nextVictimIdx = 0
	return nil
}

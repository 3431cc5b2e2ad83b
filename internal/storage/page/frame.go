package page

import (
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
)

const (
	FlagDirty      uint16 = 1 << iota // payload differs from the device copy
	FlagReferenced                    // accessed since the last LRU-WSR sweep
)

// Frame owns one page-sized buffer plus the identity of the page it holds
type Frame struct {
	Header FrameHeader
	Data   []byte
}

type FrameHeader struct {
	PageID util.PageID
	Flags  uint16
}

// NewFrame allocates a frame with a zeroed payload of pageSize bytes.
func NewFrame(pageSize int) *Frame {
	return &Frame{Data: make([]byte, pageSize)}
}

// Reset re-targets the frame at pageID without reallocating its payload.
func (f *Frame) Reset(pageID util.PageID) {
	f.Header = FrameHeader{PageID: pageID}
	clear(f.Data)
}

func (h *FrameHeader) IsDirty() bool { return h.Flags&FlagDirty != 0 }

func (h *FrameHeader) SetDirtyFlag() { h.Flags |= FlagDirty }

func (h *FrameHeader) ClearDirtyFlag() error {
	if !h.IsDirty() {
		return util.ErrPageNotDirty
	}
	h.Flags &^= FlagDirty
	return nil
}

func (h *FrameHeader) IsReferenced() bool { return h.Flags&FlagReferenced != 0 }

func (h *FrameHeader) SetReferencedFlag() { h.Flags |= FlagReferenced }

func (h *FrameHeader) ClearReferencedFlag() error {
	if !h.IsReferenced() {
		return util.ErrPageNotReferenced
	}
	h.Flags &^= FlagReferenced
	return nil
}

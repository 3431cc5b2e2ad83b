package buffer

import (
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/device"
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
)

// Passthrough has no pool: every request goes straight to the device.
type Passthrough struct {
	dev      device.Device
	pageSize int
	reads    int64
	writes   int64
	closed   bool
}

func NewPassthrough(dev device.Device) (*Passthrough, error) {
	if dev == nil {
		return nil, util.InvalidConfiguration("trivial: nil device")
	}
	if dev.PageSize() <= 0 {
		return nil, util.InvalidConfiguration("trivial: device page size must be positive, got %d", dev.PageSize())
	}
	return &Passthrough{dev: dev, pageSize: dev.PageSize()}, nil
}

func (p *Passthrough) Name() string { return util.PolicyTrivial }

func (p *Passthrough) ReadCount() int64 { return p.reads }

func (p *Passthrough) WriteCount() int64 { return p.writes }

func (p *Passthrough) Read(pageID util.PageID, buf []byte) error {
	if p.closed {
		return util.Closed("read")
	}
	p.reads++
	if len(buf) != p.pageSize {
		return util.BufferSizeMismatch("read", pageID, len(buf), p.pageSize)
	}
	if err := p.dev.Read(pageID, buf); err != nil {
		return util.DeviceFailure("read", pageID, err)
	}
	return nil
}

func (p *Passthrough) Write(pageID util.PageID, buf []byte) error {
	if p.closed {
		return util.Closed("write")
	}
	p.writes++
	if len(buf) != p.pageSize {
		return util.BufferSizeMismatch("write", pageID, len(buf), p.pageSize)
	}
	if err := p.dev.Write(pageID, buf); err != nil {
		return util.DeviceFailure("write", pageID, err)
	}
	return nil
}

// Flush has nothing to write back.
func (p *Passthrough) Flush() error {
	if p.closed {
		return util.Closed("flush")
	}
	return nil
}

func (p *Passthrough) Close() error {
	p.closed = true
	return nil
}

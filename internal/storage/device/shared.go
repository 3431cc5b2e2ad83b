// Package device provides page-granular block devices for the buffer cache.
//
// Devices are not safe for concurrent use. A device is expected to be wrapped
// by at most one buffer manager at a time.
package device

import (
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
)

// Device is the block device contract the buffer cache consumes
type Device interface {
	// PageSize is fixed and positive for the lifetime of the device.
	PageSize() int
	// Read fills buf (PageSize bytes) with the content of pageID.
	// Pages never written read back as zeroes.
	Read(pageID util.PageID, buf []byte) error
	// Write persists buf (PageSize bytes) at pageID.
	Write(pageID util.PageID, buf []byte) error
}

// Stats exposes the monotonically increasing operation counters of a device
type Stats interface {
	ReadCount() int64
	WriteCount() int64
}

// StatDevice is a Device that also reports Stats.
type StatDevice interface {
	Device
	Stats
}

type counters struct {
	reads  int64
	writes int64
}

func (c *counters) ReadCount() int64 { return c.reads }

func (c *counters) WriteCount() int64 { return c.writes }

func checkBuffer(op string, pageID util.PageID, buf []byte, pageSize int) error {
	if len(buf) != pageSize {
		return util.BufferSizeMismatch(op, pageID, len(buf), pageSize)
	}
	return nil
}

func checkPageSize(pageSize int) error {
	if pageSize <= 0 {
		return util.InvalidConfiguration("page size must be positive, got %d", pageSize)
	}
	return nil
}

package device

import (
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
)

// Trivial zero-fills every read, drops every write and only counts calls.
type Trivial struct {
	counters
	pageSize int
}

func NewTrivial(pageSize int) (*Trivial, error) {
	if err := checkPageSize(pageSize); err != nil {
		return nil, err
	}
	return &Trivial{pageSize: pageSize}, nil
}

func (d *Trivial) PageSize() int { return d.pageSize }

func (d *Trivial) Read(pageID util.PageID, buf []byte) error {
	if err := checkBuffer("read", pageID, buf, d.pageSize); err != nil {
		return err
	}
	d.reads++
	clear(buf)
	return nil
}

func (d *Trivial) Write(pageID util.PageID, buf []byte) error {
	if err := checkBuffer("write", pageID, buf, d.pageSize); err != nil {
		return err
	}
	d.writes++
	return nil
}

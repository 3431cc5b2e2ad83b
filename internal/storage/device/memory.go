package device

import (
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
)

// Memory keeps a private copy of every page written to it.
type Memory struct {
	counters
	pageSize int
	pages    map[util.PageID][]byte
}

func NewMemory(pageSize int) (*Memory, error) {
	if err := checkPageSize(pageSize); err != nil {
		return nil, err
	}
	return &Memory{
		pageSize: pageSize,
		pages:    make(map[util.PageID][]byte),
	}, nil
}

func (d *Memory) PageSize() int { return d.pageSize }

func (d *Memory) Read(pageID util.PageID, buf []byte) error {
	if err := checkBuffer("read", pageID, buf, d.pageSize); err != nil {
		return err
	}
	d.reads++
	if data, ok := d.pages[pageID]; ok {
		copy(buf, data)
		return nil
	}
	clear(buf)
	return nil
}

func (d *Memory) Write(pageID util.PageID, buf []byte) error {
	if err := checkBuffer("write", pageID, buf, d.pageSize); err != nil {
		return err
	}
	d.writes++
	d.pages[pageID] = append([]byte(nil), buf...)
	return nil
}

// Page returns a copy of the stored content of pageID, or false if it was never written.
func (d *Memory) Page(pageID util.PageID) ([]byte, bool) {
	data, ok := d.pages[pageID]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Snapshot returns a copy of every page written so far.
func (d *Memory) Snapshot() map[util.PageID][]byte {
	out := make(map[util.PageID][]byte, len(d.pages))
	for id, data := range d.pages {
		out[id] = append([]byte(nil), data...)
	}
	return out
}

package buffer

import (
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/page"
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
)

// AccessType tells a replacer whether an access reads or overwrites the page.
type AccessType int

const (
	AccessRead AccessType = iota
	AccessWrite
)

func (a AccessType) String() string {
	if a == AccessWrite {
		return "write"
	}
	return "read"
}

// FillFunc loads the payload of a freshly admitted frame.
type FillFunc func(data []byte) error

// Replacer defines the contract for page replacement policies.
type Replacer interface {
	// Lookup returns the resident frame of pageID and records the access, or nil on a miss.
	// The frame header still reflects its state before this access.
	Lookup(pageID util.PageID, access AccessType) *page.Frame
	// Admit acquires a slot for a non-resident pageID, evicting if the pool is full, and
	// runs fill on its payload. The frame is indexed only after fill succeeds.
	Admit(pageID util.PageID, access AccessType, fill FillFunc) (*page.Frame, error)
	// FlushAll writes back every dirty frame and stops at the first failure.
	FlushAll() error
	// Release flushes and then drops every frame.
	Release() error
	Resident() int
	Capacity() int
	Name() string
}

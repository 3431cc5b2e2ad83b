package util

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrDeviceFailure        = errors.New("device failure")
	ErrBufferSize           = errors.New("buffer size does not match page size")
	ErrClosed               = errors.New("buffer manager is closed")
	ErrPageNotDirty         = errors.New("page is not dirty")
	ErrPageNotReferenced    = errors.New("page is not referenced")
	ErrPageExistedInBuffer  = errors.New("page already resident in buffer")
	ErrNoFreeFrame          = errors.New("no free frames")
	ErrUnknownPolicy        = errors.New("unknown replacement policy")
	ErrFileDeviceNil        = errors.New("file device is nil")
)

// ErrorKind classifies cache errors
type ErrorKind int

const (
	KindInvalidConfiguration ErrorKind = iota
	KindDeviceFailure
	KindBufferSize
	KindClosed
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidConfiguration:
		return ErrInvalidConfiguration
	case KindDeviceFailure:
		return ErrDeviceFailure
	case KindBufferSize:
		return ErrBufferSize
	case KindClosed:
		return ErrClosed
	}
	return nil
}

func (k ErrorKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// CacheError represents a buffer cache error. It matches the sentinel of its
// Kind with errors.Is and unwraps to Cause.
type CacheError struct {
	Kind   ErrorKind
	Op     string
	PageID PageID
	Paged  bool // PageID is meaningful
	Cause  error
}

func (e *CacheError) Error() string {
	msg := e.Op
	if e.Paged {
		msg = fmt.Sprintf("%s page %d", e.Op, e.PageID)
	}
	if e.Cause != nil {
		return fmt.Sprintf("flashbuf: %s: %s: %v", msg, e.Kind, e.Cause)
	}
	return fmt.Sprintf("flashbuf: %s: %s", msg, e.Kind)
}

func (e *CacheError) Unwrap() error { return e.Cause }

func (e *CacheError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// DeviceFailure wraps an error returned by a block device.
func DeviceFailure(op string, pageID PageID, cause error) error {
	return &CacheError{Kind: KindDeviceFailure, Op: op, PageID: pageID, Paged: true, Cause: cause}
}

// BufferSizeMismatch reports a caller buffer whose length is not the page size.
func BufferSizeMismatch(op string, pageID PageID, got, want int) error {
	return &CacheError{
		Kind:   KindBufferSize,
		Op:     op,
		PageID: pageID,
		Paged:  true,
		Cause:  errors.Errorf("got %d bytes, want %d", got, want),
	}
}

// Closed reports an operation on a closed buffer manager.
func Closed(op string) error {
	return &CacheError{Kind: KindClosed, Op: op}
}

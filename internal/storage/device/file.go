package device

import (
	"errors"
	"io"
	"os"

	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
	pkgerrors "github.com/pkg/errors"
)

// MaxFileSize bounds how far a file device may grow (64GB)
const MaxFileSize int64 = 1 << 36

var ErrMaxFileSizeExceeded = errors.New("file size exceeds maximum device size")

/**
* File persists pages in a regular file, page i at offset i*pageSize.
* The file grows by doubling when a write lands past its end.
**/
type File struct {
	counters
	File     *os.File
	Size     int64
	pageSize int
}

func NewFile(path string, pageSize int, initialPages int) (*File, error) {
	if err := checkPageSize(pageSize); err != nil {
		return nil, err
	}
	if initialPages <= 0 {
		return nil, util.InvalidConfiguration("initial pages must be positive, got %d", initialPages)
	}

	initialSize := int64(initialPages) * int64(pageSize)
	if initialSize > MaxFileSize {
		return nil, ErrMaxFileSizeExceeded
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open file")
	}

	fd := &File{File: f, pageSize: pageSize}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, pkgerrors.Wrap(err, "stat file")
	}
	fd.Size = info.Size()

	if fd.Size < initialSize {
		if err := fd.grow(initialSize); err != nil {
			f.Close()
			return nil, err
		}
	}

	return fd, nil
}

func (fd *File) PageSize() int { return fd.pageSize }

/* READ FILE */
func (fd *File) Read(pageID util.PageID, buf []byte) error {
	if fd == nil || fd.File == nil {
		return util.ErrFileDeviceNil
	}
	if err := checkBuffer("read", pageID, buf, fd.pageSize); err != nil {
		return err
	}
	offset, err := fd.offset(pageID)
	if err != nil {
		return pkgerrors.Wrap(err, "[Read]")
	}
	fd.reads++

	if offset+int64(fd.pageSize) > fd.Size {
		clear(buf)
		return nil
	}

	n, err := fd.File.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return pkgerrors.Wrapf(err, "[Read] read page %d", pageID)
	}
	clear(buf[n:])
	return nil
}

/* WRITE FILE */
func (fd *File) Write(pageID util.PageID, buf []byte) error {
	if fd == nil || fd.File == nil {
		return util.ErrFileDeviceNil
	}
	if err := checkBuffer("write", pageID, buf, fd.pageSize); err != nil {
		return err
	}
	offset, err := fd.offset(pageID)
	if err != nil {
		return pkgerrors.Wrap(err, "[Write]")
	}
	fd.writes++

	if offset+int64(fd.pageSize) > fd.Size {
		newSize := max(fd.Size*2, offset+int64(fd.pageSize))
		if err := fd.grow(newSize); err != nil {
			return pkgerrors.Wrapf(err, "[Write] grow for page %d", pageID)
		}
	}

	if _, err := fd.File.WriteAt(buf, offset); err != nil {
		return pkgerrors.Wrapf(err, "[Write] write page %d", pageID)
	}
	return nil
}

// offset locates pageID in the file. Pages that would end past MaxFileSize
// have no offset.
func (fd *File) offset(pageID util.PageID) (int64, error) {
	maxPages := uint64(MaxFileSize / int64(fd.pageSize))
	if uint64(pageID) >= maxPages {
		return 0, pkgerrors.Wrapf(ErrMaxFileSizeExceeded, "page %d beyond last page %d", pageID, maxPages-1)
	}
	return int64(pageID) * int64(fd.pageSize), nil
}

func (fd *File) grow(size int64) error {
	if size > MaxFileSize {
		return ErrMaxFileSizeExceeded
	}
	if err := fd.File.Truncate(size); err != nil {
		return pkgerrors.Wrapf(err, "truncate to %d", size)
	}
	fd.Size = size
	return nil
}

// Sync commits the file content to stable storage.
func (fd *File) Sync() error {
	if fd == nil || fd.File == nil {
		return util.ErrFileDeviceNil
	}
	return fd.File.Sync()
}

/**
* CLOSE FUNCTION
**/
func (fd *File) Close() error {
	if fd == nil || fd.File == nil {
		return nil // Idempotent
	}
	var err error
	if e := fd.File.Sync(); e != nil {
		err = errors.Join(err, pkgerrors.Wrap(e, "sync file"))
	}
	if e := fd.File.Close(); e != nil {
		err = errors.Join(err, pkgerrors.Wrap(e, "close file"))
	}
	fd.File = nil
	return err
}

package buffer

import (
	"github.com/bietkhonhungvandi212/flashbuf/internal/metrics"
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/device"
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
	"github.com/sirupsen/logrus"
)

// BufferManager is the page request surface offered to callers. Implementations
// are not safe for concurrent use.
type BufferManager interface {
	// Read fills buf with the current content of pageID.
	Read(pageID util.PageID, buf []byte) error
	// Write replaces the content of pageID with buf. Write-back is deferred.
	Write(pageID util.PageID, buf []byte) error
	// Flush writes back every dirty page without evicting anything.
	Flush() error
	// Close flushes and releases the pool. Later calls fail with ErrClosed.
	Close() error
	ReadCount() int64
	WriteCount() int64
	Name() string
}

// Manager serves page requests through a Replacer.
type Manager struct {
	replacer Replacer
	dev      device.Device
	pageSize int

	reads   int64
	writes  int64
	flushes int64
	closed  bool

	log logrus.FieldLogger
	rec metrics.Recorder
}

func NewManager(replacer Replacer, dev device.Device, cfg Config) *Manager {
	return &Manager{
		replacer: replacer,
		dev:      dev,
		pageSize: dev.PageSize(),
		log:      cfg.logger().WithField("policy", replacer.Name()),
		rec:      cfg.recorder(),
	}
}

func (m *Manager) Name() string { return m.replacer.Name() }

func (m *Manager) PageSize() int { return m.pageSize }

// ReadCount is the number of Read calls accepted, hits and misses alike.
func (m *Manager) ReadCount() int64 { return m.reads }

func (m *Manager) WriteCount() int64 { return m.writes }

func (m *Manager) FlushCount() int64 { return m.flushes }

func (m *Manager) Resident() int { return m.replacer.Resident() }

func (m *Manager) Capacity() int { return m.replacer.Capacity() }

// Replacer exposes the policy behind the manager.
func (m *Manager) Replacer() Replacer { return m.replacer }

func (m *Manager) Read(pageID util.PageID, buf []byte) error {
	if m.closed {
		return util.Closed("read")
	}
	m.reads++
	if len(buf) != m.pageSize {
		return util.BufferSizeMismatch("read", pageID, len(buf), m.pageSize)
	}

	if f := m.replacer.Lookup(pageID, AccessRead); f != nil {
		m.rec.Hit(m.Name())
		copy(buf, f.Data)
		return nil
	}

	m.rec.Miss(m.Name())
	f, err := m.replacer.Admit(pageID, AccessRead, func(data []byte) error {
		if err := m.dev.Read(pageID, data); err != nil {
			return util.DeviceFailure("read", pageID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	copy(buf, f.Data)
	return nil
}

func (m *Manager) Write(pageID util.PageID, buf []byte) error {
	if m.closed {
		return util.Closed("write")
	}
	m.writes++
	if len(buf) != m.pageSize {
		return util.BufferSizeMismatch("write", pageID, len(buf), m.pageSize)
	}

	if f := m.replacer.Lookup(pageID, AccessWrite); f != nil {
		m.rec.Hit(m.Name())
		copy(f.Data, buf)
		f.Header.SetDirtyFlag()
		return nil
	}

	m.rec.Miss(m.Name())
	f, err := m.replacer.Admit(pageID, AccessWrite, func(data []byte) error {
		copy(data, buf)
		return nil
	})
	if err != nil {
		return err
	}
	f.Header.SetDirtyFlag()
	return nil
}

func (m *Manager) Flush() error {
	if m.closed {
		return util.Closed("flush")
	}
	m.flushes++
	m.rec.Flush(m.Name())
	return m.replacer.FlushAll()
}

// Close is idempotent. If the final flush fails the manager stays open so the
// caller can retry.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	if err := m.replacer.Release(); err != nil {
		m.log.WithError(err).Warn("close: flush failed")
		return err
	}
	m.closed = true
	m.log.WithFields(logrus.Fields{
		"reads":  m.reads,
		"writes": m.writes,
	}).Debug("closed")
	return nil
}

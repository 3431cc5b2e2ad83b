package buffer

import (
	"strings"

	"github.com/bietkhonhungvandi212/flashbuf/internal/metrics"
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/device"
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config holds construction parameters shared by every policy.
type Config struct {
	Capacity int // frames in the pool
	Window   int // CFLRU protected positions, in [0, Capacity)
	PageSize int // 0 means the device page size

	Logger   logrus.FieldLogger
	Recorder metrics.Recorder
}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return util.DiscardLogger()
	}
	return c.Logger
}

func (c Config) recorder() metrics.Recorder {
	if c.Recorder == nil {
		return metrics.Nop
	}
	return c.Recorder
}

// NewReplacer builds the policy named kind, matched case-insensitively.
func NewReplacer(kind string, dev device.Device, cfg Config) (Replacer, error) {
	switch strings.ToLower(kind) {
	case util.PolicyLRU:
		return NewLRUReplacer(dev, cfg)
	case util.PolicyCFLRU:
		return NewCFLRUReplacer(dev, cfg)
	case util.PolicyLRUWSR:
		return NewLRUWSRReplacer(dev, cfg)
	case util.PolicyFrame:
		return NewFrameReplacer(dev, cfg)
	}
	return nil, &util.CacheError{
		Kind:  util.KindInvalidConfiguration,
		Op:    "configure",
		Cause: errors.Wrapf(util.ErrUnknownPolicy, "%q", kind),
	}
}

// New builds a buffer manager over dev. The trivial kind bypasses the pool.
func New(kind string, dev device.Device, cfg Config) (BufferManager, error) {
	if strings.EqualFold(kind, util.PolicyTrivial) {
		return NewPassthrough(dev)
	}
	r, err := NewReplacer(kind, dev, cfg)
	if err != nil {
		return nil, err
	}
	return NewManager(r, dev, cfg), nil
}

// Policies lists every kind accepted by New.
func Policies() []string {
	return []string{util.PolicyLRU, util.PolicyCFLRU, util.PolicyLRUWSR, util.PolicyFrame, util.PolicyTrivial}
}

var (
	_ Replacer      = (*LRUReplacer)(nil)
	_ Replacer      = (*CFLRUReplacer)(nil)
	_ Replacer      = (*LRUWSRReplacer)(nil)
	_ Replacer      = (*FrameReplacer)(nil)
	_ BufferManager = (*Manager)(nil)
	_ BufferManager = (*Passthrough)(nil)
)

package util

import (
	"strings"

	"github.com/pkg/errors"
)

// PageID represents a unique page identifier
type PageID uint64

// DefaultPageSize is the device page size used by the sample wiring (2KB flash pages)
const DefaultPageSize = 2048

// Policy names understood by the buffer manager factory.
const (
	PolicyLRU     = "lru"
	PolicyCFLRU   = "cflru"
	PolicyLRUWSR  = "lruwsr"
	PolicyFrame   = "frame"
	PolicyTrivial = "trivial"
)

// Device kinds understood by the benchmark.
const (
	DeviceTrivial = "trivial"
	DeviceMemory  = "memory"
	DeviceFile    = "file"
)

// Request distributions understood by the benchmark.
const (
	DistUniform = "uniform"
	DistZipf    = "zipf"
)

// Options represents the cache and benchmark configuration
type Options struct {
	PageSize       int      `toml:"page-size"`
	BufferPoolSize int      `toml:"buffer-pool-size"`
	CFLRUWindow    int      `toml:"cflru-window"`
	WindowRatio    float64  `toml:"cflru-window-ratio"`
	Policies       []string `toml:"policies"`

	Requests     int     `toml:"requests"`
	MaxPageID    uint64  `toml:"max-page-id"`
	WriteRatio   float64 `toml:"write-ratio"`
	Seed         int64   `toml:"seed"`
	Distribution string  `toml:"distribution"`
	Trace        string  `toml:"trace"`

	Device    string  `toml:"device"`
	DataDir   string  `toml:"data-dir"`
	ReadCost  float64 `toml:"read-cost"`
	WriteCost float64 `toml:"write-cost"`
	Verify    bool    `toml:"verify"`

	LogLevel   string `toml:"log-level"`
	MetricsOut string `toml:"metrics-out"`
}

// DefaultOptions returns default benchmark options
func DefaultOptions() Options {
	return Options{
		PageSize:       DefaultPageSize,
		BufferPoolSize: 1000,
		CFLRUWindow:    -1, // derived from WindowRatio
		WindowRatio:    7.0 / 8.0,
		Policies:       []string{PolicyLRU, PolicyCFLRU, PolicyLRUWSR},
		Requests:       10000,
		MaxPageID:      3276, // rand()/10 with a 15 bit rand
		WriteRatio:     0.5,
		Seed:           1,
		Distribution:   DistUniform,
		Device:         DeviceTrivial,
		ReadCost:       1,
		WriteCost:      1,
		LogLevel:       "info",
	}
}

// Window returns the number of protected CFLRU slots. An explicit non-negative
// CFLRUWindow wins over WindowRatio.
func (o Options) Window() int {
	if o.CFLRUWindow >= 0 {
		return o.CFLRUWindow
	}
	return WindowFromRatio(o.BufferPoolSize, o.WindowRatio)
}

// WindowFromRatio converts a fraction of capacity into a protected slot count,
// rounding down and clamping into [0, capacity).
func WindowFromRatio(capacity int, ratio float64) int {
	if capacity <= 0 {
		return 0
	}
	w := int(float64(capacity) * ratio)
	if w < 0 {
		w = 0
	}
	if w >= capacity {
		w = capacity - 1
	}
	return w
}

// Validate checks the options and reports an InvalidConfiguration error.
func (o Options) Validate() error {
	switch {
	case o.PageSize <= 0:
		return InvalidConfiguration("page size must be positive, got %d", o.PageSize)
	case o.BufferPoolSize <= 0:
		return InvalidConfiguration("buffer pool size must be positive, got %d", o.BufferPoolSize)
	case o.CFLRUWindow >= o.BufferPoolSize:
		return InvalidConfiguration("cflru window %d must be below capacity %d", o.CFLRUWindow, o.BufferPoolSize)
	case o.WindowRatio < 0 || o.WindowRatio > 1:
		return InvalidConfiguration("cflru window ratio must be in [0, 1], got %g", o.WindowRatio)
	case len(o.Policies) == 0:
		return InvalidConfiguration("no policies selected")
	case o.Trace == "" && o.Requests <= 0:
		return InvalidConfiguration("request count must be positive, got %d", o.Requests)
	case o.WriteRatio < 0 || o.WriteRatio > 1:
		return InvalidConfiguration("write ratio must be in [0, 1], got %g", o.WriteRatio)
	case o.ReadCost < 0 || o.WriteCost < 0:
		return InvalidConfiguration("device costs must not be negative")
	case o.Verify && o.Device != DeviceMemory:
		return InvalidConfiguration("verify needs the %s device, got %q", DeviceMemory, o.Device)
	}

	switch o.Distribution {
	case DistUniform, DistZipf:
	default:
		return InvalidConfiguration("unknown distribution %q", o.Distribution)
	}

	switch o.Device {
	case DeviceTrivial, DeviceMemory:
	case DeviceFile:
		if o.DataDir == "" {
			return InvalidConfiguration("file device requires a data dir")
		}
	default:
		return InvalidConfiguration("unknown device %q", o.Device)
	}

	for _, p := range o.Policies {
		switch strings.ToLower(p) {
		case PolicyLRU, PolicyCFLRU, PolicyLRUWSR, PolicyFrame, PolicyTrivial:
		default:
			return InvalidConfiguration("unknown policy %q", p)
		}
	}
	return nil
}

// InvalidConfiguration builds a CacheError of kind KindInvalidConfiguration.
func InvalidConfiguration(format string, args ...interface{}) error {
	return &CacheError{
		Kind:  KindInvalidConfiguration,
		Op:    "configure",
		Cause: errors.Errorf(format, args...),
	}
}

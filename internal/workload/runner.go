package workload

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bietkhonhungvandi212/flashbuf/internal/metrics"
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/buffer"
	"github.com/bietkhonhungvandi212/flashbuf/internal/storage/device"
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var ErrLostWrite = errors.New("device content differs from the last write")

// Target is one buffer manager over its own device. Targets never share a
// device.
type Target struct {
	ID        xid.ID
	Policy    string
	Manager   buffer.BufferManager
	Device    *device.Cost
	PoolBytes int64

	file *device.File
}

// NewTarget builds the device stack and buffer manager for one policy.
func NewTarget(policy string, opts util.Options, log logrus.FieldLogger, rec metrics.Recorder) (*Target, error) {
	if log == nil {
		log = util.DiscardLogger()
	}
	id := xid.New()
	t := &Target{ID: id, Policy: policy}

	var backing device.Device
	var err error
	switch opts.Device {
	case util.DeviceTrivial:
		backing, err = device.NewTrivial(opts.PageSize)
	case util.DeviceMemory:
		backing, err = device.NewMemory(opts.PageSize)
	case util.DeviceFile:
		path := filepath.Join(opts.DataDir, fmt.Sprintf("%s-%s.dat", policy, id))
		t.file, err = device.NewFile(path, opts.PageSize, opts.BufferPoolSize)
		backing = t.file
	default:
		err = util.InvalidConfiguration("unknown device %q", opts.Device)
	}
	if err != nil {
		return nil, err
	}

	t.Device, err = device.NewCost(backing, device.CostModel{ReadCost: opts.ReadCost, WriteCost: opts.WriteCost})
	if err != nil {
		t.closeFile()
		return nil, err
	}

	t.Manager, err = buffer.New(policy, t.Device, buffer.Config{
		Capacity: opts.BufferPoolSize,
		Window:   opts.Window(),
		PageSize: opts.PageSize,
		Logger:   log.WithField("run", id.String()),
		Recorder: rec,
	})
	if err != nil {
		t.closeFile()
		return nil, err
	}
	if _, ok := t.Manager.(*buffer.Manager); ok {
		t.PoolBytes = int64(opts.BufferPoolSize) * int64(opts.PageSize)
	}
	return t, nil
}

// Close flushes the manager and releases the device.
func (t *Target) Close() error {
	if err := t.Manager.Close(); err != nil {
		return err
	}
	return t.closeFile()
}

func (t *Target) closeFile() error {
	if t.file == nil {
		return nil
	}
	return t.file.Close()
}

// memory returns the in-memory backing device, if any.
func (t *Target) memory() (*device.Memory, bool) {
	m, ok := t.Device.Unwrap().(*device.Memory)
	return m, ok
}

// Result describes one replay.
type Result struct {
	ID           string
	Policy       string
	Requests     int
	Reads        int64 // served by the manager
	Writes       int64
	DeviceReads  int64
	DeviceWrites int64
	TotalCost    float64
	PoolBytes    int64
	Elapsed      time.Duration
	Verified     bool
}

// Runner replays one request stream against every target in parallel.
type Runner struct {
	Targets []*Target
	Verify  bool
	Logger  logrus.FieldLogger
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Logger == nil {
		return util.DiscardLogger()
	}
	return r.Logger
}

// Close releases every target, flushing managers that did not finish. It
// reports the first failure.
func (r *Runner) Close() error {
	var first error
	for _, t := range r.Targets {
		if err := t.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "close %s %s", t.Policy, t.ID)
		}
	}
	return first
}

func (r *Runner) Run(ctx context.Context, reqs []Request) ([]Result, error) {
	if r.Verify {
		for _, t := range r.Targets {
			if _, ok := t.memory(); !ok {
				return nil, util.InvalidConfiguration("verify needs the memory device, %s uses %T", t.Policy, t.Device.Unwrap())
			}
		}
	}

	results := make([]Result, len(r.Targets))
	eg, ctx := errgroup.WithContext(ctx)
	for i, t := range r.Targets {
		eg.Go(func() error {
			res, err := r.replay(ctx, t, reqs)
			if err != nil {
				return errors.Wrapf(err, "run %s %s", t.Policy, t.ID)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) replay(ctx context.Context, t *Target, reqs []Request) (Result, error) {
	log := r.logger().WithFields(logrus.Fields{"policy": t.Policy, "run": t.ID.String()})
	pageSize := t.Device.PageSize()
	buf := make([]byte, pageSize)

	var shadow map[util.PageID][]byte
	if r.Verify {
		shadow = make(map[util.PageID][]byte)
	}

	start := time.Now()
	for i, req := range reqs {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}

		if req.Write {
			fillPayload(buf, req.PageID, uint64(i))
			if err := t.Manager.Write(req.PageID, buf); err != nil {
				return Result{}, err
			}
			if shadow != nil {
				shadow[req.PageID] = append(shadow[req.PageID][:0], buf...)
			}
			continue
		}

		if err := t.Manager.Read(req.PageID, buf); err != nil {
			return Result{}, err
		}
		if shadow != nil {
			if err := checkPage(req.PageID, buf, shadow[req.PageID]); err != nil {
				return Result{}, errors.Wrapf(err, "request %d", i)
			}
		}
	}
	if err := t.Manager.Flush(); err != nil {
		return Result{}, err
	}
	elapsed := time.Since(start)

	res := Result{
		ID:           t.ID.String(),
		Policy:       t.Policy,
		Requests:     len(reqs),
		Reads:        t.Manager.ReadCount(),
		Writes:       t.Manager.WriteCount(),
		DeviceReads:  t.Device.ReadCount(),
		DeviceWrites: t.Device.WriteCount(),
		TotalCost:    t.Device.TotalCost(),
		PoolBytes:    t.PoolBytes,
		Elapsed:      elapsed,
	}

	if shadow != nil {
		mem, _ := t.memory()
		if err := verifyDevice(mem, shadow); err != nil {
			return Result{}, err
		}
		res.Verified = true
	}

	if err := t.Close(); err != nil {
		return Result{}, err
	}
	log.WithFields(logrus.Fields{
		"device_writes": res.DeviceWrites,
		"elapsed":       elapsed,
	}).Info("run finished")
	return res, nil
}

// fillPayload writes a recognizable pattern for request seq into buf.
func fillPayload(buf []byte, pageID util.PageID, seq uint64) {
	clear(buf)
	if len(buf) >= 16 {
		binary.LittleEndian.PutUint64(buf, uint64(pageID))
		binary.LittleEndian.PutUint64(buf[8:], seq)
		return
	}
	for i := range buf {
		buf[i] = byte(seq + uint64(i))
	}
}

func checkPage(pageID util.PageID, got, want []byte) error {
	if want == nil {
		want = make([]byte, len(got))
	}
	if !bytes.Equal(got, want) {
		return errors.Errorf("read of page %d returned stale content", pageID)
	}
	return nil
}

func verifyDevice(mem *device.Memory, shadow map[util.PageID][]byte) error {
	for pageID, want := range shadow {
		got, ok := mem.Page(pageID)
		if !ok || !bytes.Equal(got, want) {
			return errors.Wrapf(ErrLostWrite, "page %d", pageID)
		}
	}
	return nil
}

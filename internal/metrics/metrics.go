// Package metrics records buffer cache events.
package metrics

import (
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const (
	Namespace = "flashbuf"
	Subsystem = "buffer"

	MetricHits       = "hits_total"
	MetricMisses     = "misses_total"
	MetricEvictions  = "evictions_total"
	MetricWriteBacks = "write_backs_total"
	MetricFlushes    = "flushes_total"

	LabelPolicy = "policy"
)

// Recorder receives cache events labeled by the policy that produced them.
type Recorder interface {
	Hit(policy string)
	Miss(policy string)
	Eviction(policy string)
	WriteBack(policy string)
	Flush(policy string)
}

type nopRecorder struct{}

func (nopRecorder) Hit(string)       {}
func (nopRecorder) Miss(string)      {}
func (nopRecorder) Eviction(string)  {}
func (nopRecorder) WriteBack(string) {}
func (nopRecorder) Flush(string)     {}

// Nop discards every event.
var Nop Recorder = nopRecorder{}

// Prometheus counts events in counter vectors.
type Prometheus struct {
	Hits       *prometheus.CounterVec
	Misses     *prometheus.CounterVec
	Evictions  *prometheus.CounterVec
	WriteBacks *prometheus.CounterVec
	Flushes    *prometheus.CounterVec
}

func newCounterVec(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      name,
			Help:      help,
		},
		[]string{
			LabelPolicy,
		},
	)
}

// NewPrometheus creates the counters and registers them on reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		Hits:       newCounterVec(MetricHits, "Requests served from a resident frame."),
		Misses:     newCounterVec(MetricMisses, "Requests that required admitting a frame."),
		Evictions:  newCounterVec(MetricEvictions, "Frames evicted to make room."),
		WriteBacks: newCounterVec(MetricWriteBacks, "Dirty frames written to the device."),
		Flushes:    newCounterVec(MetricFlushes, "Explicit flushes of the whole pool."),
	}
	for _, c := range []prometheus.Collector{p.Hits, p.Misses, p.Evictions, p.WriteBacks, p.Flushes} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register buffer metrics")
		}
	}
	return p, nil
}

func (p *Prometheus) Hit(policy string)       { p.Hits.WithLabelValues(policy).Inc() }
func (p *Prometheus) Miss(policy string)      { p.Misses.WithLabelValues(policy).Inc() }
func (p *Prometheus) Eviction(policy string)  { p.Evictions.WithLabelValues(policy).Inc() }
func (p *Prometheus) WriteBack(policy string) { p.WriteBacks.WithLabelValues(policy).Inc() }
func (p *Prometheus) Flush(policy string)     { p.Flushes.WithLabelValues(policy).Inc() }

// WriteText writes every metric family gathered from g in the text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrapf(err, "encode %s", mf.GetName())
		}
	}
	return nil
}

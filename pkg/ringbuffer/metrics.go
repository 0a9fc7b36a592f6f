// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package ringbuffer

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports ring buffer activity as Prometheus metrics. One Metrics may
// be shared by several buffers; the pending gauge then reflects whichever
// buffer changed last.
type Metrics struct {
	writes    prometheus.Counter
	reads     prometheus.Counter
	evictions prometheus.Counter
	pending   prometheus.Gauge
}

// NewMetrics creates the ring buffer metrics labelled with name and registers
// them with reg.
func NewMetrics(reg prometheus.Registerer, name string) (*Metrics, error) {
	labels := prometheus.Labels{"buffer": name}
	m := &Metrics{
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "containers",
			Subsystem:   "ringbuffer",
			Name:        "writes_total",
			ConstLabels: labels,
			Help:        "Total number of elements written",
		}),
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "containers",
			Subsystem:   "ringbuffer",
			Name:        "reads_total",
			ConstLabels: labels,
			Help:        "Total number of elements read",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "containers",
			Subsystem:   "ringbuffer",
			Name:        "evictions_total",
			ConstLabels: labels,
			Help:        "Total number of unread elements overwritten because the buffer was full",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "containers",
			Subsystem:   "ringbuffer",
			Name:        "pending",
			ConstLabels: labels,
			Help:        "Number of unread elements",
		}),
	}

	for _, c := range []prometheus.Collector{m.writes, m.reads, m.evictions, m.pending} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register ring buffer metrics for %q: %w", name, err)
		}
	}
	return m, nil
}

func (m *Metrics) recordWrite(pending int, evicted bool) {
	m.writes.Inc()
	if evicted {
		m.evictions.Inc()
	}
	m.pending.Set(float64(pending))
}

func (m *Metrics) recordRead(pending int) {
	m.reads.Inc()
	m.pending.Set(float64(pending))
}

// Package metrics wires github.com/prometheus/client_golang into the
// ledger node for real: a counter per validation-rejection kind, a
// histogram of cementer batch durations, and gauges for active
// election count and trended online weight, served over the node's
// configured metrics address via promhttp.Handler.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/certen/ledgercore/pkg/observer"
	"github.com/certen/ledgercore/pkg/validator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ActiveElections supplies the current active-election count, the
// value the periodic gauge sampler publishes.
type ActiveElections interface {
	Len() int
}

// Trended supplies the current trended online weight, published as a
// gauge in the same units as blocks.Balance.String (an integer
// base-unit amount, reported as a float64 for Prometheus).
type Trended interface {
	TrendedFloat() float64
}

// Metrics holds every registered collector. The zero value is not
// usable; build one with New.
type Metrics struct {
	registry *prometheus.Registry

	rejectionsTotal       *prometheus.CounterVec
	blocksAddedTotal      prometheus.Counter
	blocksCementedTotal   prometheus.Counter
	cementerBatchDuration prometheus.Histogram
	activeElectionsGauge  prometheus.Gauge
	trendedWeightGauge    prometheus.Gauge

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Metrics instance with every collector registered
// against a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgernode",
			Name:      "validation_rejections_total",
			Help:      "Block validation outcomes, by rejection kind (progress included as an accepted marker).",
		}, []string{"kind"}),
		blocksAddedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgernode",
			Name:      "blocks_added_total",
			Help:      "Blocks successfully inserted into the ledger.",
		}),
		blocksCementedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledgernode",
			Name:      "blocks_cemented_total",
			Help:      "Blocks whose confirmation height has advanced past them.",
		}),
		cementerBatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ledgernode",
			Name:      "cementer_batch_duration_seconds",
			Help:      "Wall-clock duration of each cementer write-transaction batch.",
			Buckets:   prometheus.DefBuckets,
		}),
		activeElectionsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledgernode",
			Name:      "active_elections",
			Help:      "Number of elections currently contesting a root.",
		}),
		trendedWeightGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ledgernode",
			Name:      "trended_online_weight",
			Help:      "Current trended online representative weight.",
		}),
	}
	m.registry.MustRegister(
		m.rejectionsTotal,
		m.blocksAddedTotal,
		m.blocksCementedTotal,
		m.cementerBatchDuration,
		m.activeElectionsGauge,
		m.trendedWeightGauge,
	)
	return m
}

// Handler serves the registered collectors in the Prometheus exposition
// format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRejection increments the counter for kind, satisfying
// pkg/processor's optional RejectionObserver hook.
func (m *Metrics) RecordRejection(kind validator.RejectionKind) {
	m.rejectionsTotal.WithLabelValues(kind.String()).Inc()
}

// ObserveCementerBatch records how long a cementer batch took.
func (m *Metrics) ObserveCementerBatch(d time.Duration) {
	m.cementerBatchDuration.Observe(d.Seconds())
}

// SubscribeObserver wires block_added/blocks_cemented counters to bus,
// running until ctx is canceled.
func (m *Metrics) SubscribeObserver(ctx context.Context, bus *observer.Bus) {
	addedCh := make(chan observer.BlockAddedEvent, 256)
	cementedCh := make(chan observer.BlocksCementedEvent, 256)
	addedSub := bus.SubscribeBlockAdded(addedCh)
	cementedSub := bus.SubscribeBlocksCemented(cementedCh)

	go func() {
		defer addedSub.Unsubscribe()
		defer cementedSub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-addedCh:
				m.blocksAddedTotal.Inc()
			case ev := <-cementedCh:
				m.blocksCementedTotal.Add(float64(ev.Count))
			case err := <-addedSub.Err():
				if err != nil {
					return
				}
			case err := <-cementedSub.Err():
				if err != nil {
					return
				}
			}
		}
	}()
}

// StartGaugeSampler launches a periodic loop publishing active-election
// count and trended online weight, shaped like every other component's
// ticker-driven cooperative loop.
func (m *Metrics) StartGaugeSampler(ctx context.Context, active ActiveElections, trended Trended, every time.Duration) {
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go func() {
		defer close(m.doneCh)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.activeElectionsGauge.Set(float64(active.Len()))
				m.trendedWeightGauge.Set(trended.TrendedFloat())
			}
		}
	}()
}

// Stop halts the gauge sampler, if one was started.
func (m *Metrics) Stop() {
	if m.stopCh == nil {
		return
	}
	close(m.stopCh)
	<-m.doneCh
}

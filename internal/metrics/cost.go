package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CostMetrics records product cost computations.
type CostMetrics struct {
	duration   prometheus.Histogram
	computed   prometheus.Counter
	failed     prometheus.Counter
	unboundUse prometheus.Counter
}

// NewCostMetrics registers the cost engine metrics on the provided registerer.
// A nil registerer yields a no-op collector.
func NewCostMetrics(reg prometheus.Registerer) *CostMetrics {
	if reg == nil {
		return &CostMetrics{}
	}
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recipecost_cost_compute_duration_seconds",
		Help:    "Duration of product cost computations in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	computed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recipecost_cost_computations_total",
		Help: "Product cost computations that completed.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recipecost_cost_computation_failures_total",
		Help: "Product cost computations that failed to read storage.",
	})
	unbound := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recipecost_unbound_slot_lines_total",
		Help: "Slot lines that contributed zero because their slot was unbound.",
	})
	reg.MustRegister(duration, computed, failed, unbound)
	return &CostMetrics{
		duration:   duration,
		computed:   computed,
		failed:     failed,
		unboundUse: unbound,
	}
}

// ObserveComputation records one finished computation.
func (c *CostMetrics) ObserveComputation(d time.Duration, err error) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.Observe(d.Seconds())
	if err != nil {
		c.failed.Inc()
		return
	}
	c.computed.Inc()
}

// AddUnboundSlotLines counts slot lines skipped for lack of a binding.
func (c *CostMetrics) AddUnboundSlotLines(n int) {
	if c == nil || c.unboundUse == nil || n <= 0 {
		return
	}
	c.unboundUse.Add(float64(n))
}

// Package metrics records planning and accrual activity in Prometheus collectors.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Recorder struct {
	sweepDuration prometheus.Histogram
	trainsReady   prometheus.Gauge
	blocked       *prometheus.CounterVec
	accrualMiles  prometheus.Counter
	accrualRuns   *prometheus.CounterVec
	bayActions    *prometheus.CounterVec
}

// New registers collectors on the default registerer.
func New() (*Recorder, error) {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers collectors on reg, reusing any already registered.
// A nil registerer defaults to the global Prometheus registerer.
func NewWithRegistry(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "depotplan_sweep_duration_seconds",
			Help:    "Duration of full-fleet readiness sweeps",
			Buckets: prometheus.DefBuckets,
		}),
		trainsReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "depotplan_trains_ready",
			Help: "Trains ready for service in the latest sweep",
		}),
		blocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "depotplan_readiness_blocked_total",
			Help: "Readiness verdicts blocked, by reason",
		}, []string{"reason"}),
		accrualMiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "depotplan_accrual_mileage_total",
			Help: "Distance rolled into odometers by accrual runs",
		}),
		accrualRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "depotplan_accrual_runs_total",
			Help: "Accrual runs by outcome",
		}, []string{"outcome"}),
		bayActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "depotplan_bay_transitions_total",
			Help: "Bay occupancy transitions by action",
		}, []string{"action"}),
	}
	var err error
	if r.sweepDuration, err = register(reg, r.sweepDuration); err != nil {
		return nil, err
	}
	if r.trainsReady, err = register(reg, r.trainsReady); err != nil {
		return nil, err
	}
	if r.blocked, err = register(reg, r.blocked); err != nil {
		return nil, err
	}
	if r.accrualMiles, err = register(reg, r.accrualMiles); err != nil {
		return nil, err
	}
	if r.accrualRuns, err = register(reg, r.accrualRuns); err != nil {
		return nil, err
	}
	if r.bayActions, err = register(reg, r.bayActions); err != nil {
		return nil, err
	}
	return r, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveSweep records one fleet sweep. A nil Recorder is a no-op.
func (r *Recorder) ObserveSweep(d time.Duration, ready int, blockedReasons []string) {
	if r == nil {
		return
	}
	r.sweepDuration.Observe(d.Seconds())
	r.trainsReady.Set(float64(ready))
	for _, reason := range blockedReasons {
		r.blocked.WithLabelValues(reason).Inc()
	}
}

// ObserveAccrual records one accrual run.
func (r *Recorder) ObserveAccrual(mileage float64, err error) {
	if r == nil {
		return
	}
	switch {
	case err != nil:
		r.accrualRuns.WithLabelValues("error").Inc()
	case mileage == 0:
		r.accrualRuns.WithLabelValues("empty").Inc()
	default:
		r.accrualRuns.WithLabelValues("applied").Inc()
		r.accrualMiles.Add(mileage)
	}
}

// ObserveBay records an assign or release.
func (r *Recorder) ObserveBay(action string) {
	if r == nil {
		return
	}
	r.bayActions.WithLabelValues(action).Inc()
}

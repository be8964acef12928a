package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver exports handler outcomes to Prometheus.
type PrometheusObserver struct {
	outcomes   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	bytesSaved *prometheus.CounterVec
}

// NewPrometheusObserver registers the handler metrics on reg, reusing
// collectors that are already registered.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "image_handlers"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	observer := &PrometheusObserver{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Handled notification records by handler and outcome.",
		}, []string{"handler", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "duration_seconds",
			Help:      "Time spent handling one notification record.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),
		bytesSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_saved_total",
			Help:      "Bytes removed from stored objects by overwriting them with smaller versions.",
		}, []string{"handler"}),
	}

	register := func(c prometheus.Collector) (prometheus.Collector, error) {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				return are.ExistingCollector, nil
			}
			return nil, fmt.Errorf("register handler metric: %w", err)
		}
		return c, nil
	}

	c, err := register(observer.outcomes)
	if err != nil {
		return nil, err
	}
	observer.outcomes = c.(*prometheus.CounterVec)

	c, err = register(observer.duration)
	if err != nil {
		return nil, err
	}
	observer.duration = c.(*prometheus.HistogramVec)

	c, err = register(observer.bytesSaved)
	if err != nil {
		return nil, err
	}
	observer.bytesSaved = c.(*prometheus.CounterVec)

	return observer, nil
}

func (o *PrometheusObserver) RecordOutcome(handler string, outcome string, duration time.Duration) {
	if o == nil {
		return
	}
	o.outcomes.WithLabelValues(handler, outcome).Inc()
	o.duration.WithLabelValues(handler).Observe(duration.Seconds())
}

func (o *PrometheusObserver) RecordBytesSaved(handler string, n int64) {
	if o == nil || n <= 0 {
		return
	}
	o.bytesSaved.WithLabelValues(handler).Add(float64(n))
}

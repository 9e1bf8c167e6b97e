package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/medride/dispatch/core/metrics"
)

// PromSink records delivery outcomes in Prometheus metrics.
type PromSink struct {
	deliveries *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewPromSink registers delivery metrics on the default Prometheus
// registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_deliveries_total",
		Help: "Total number of attempted ride notifications",
	}, []string{"forwarded", "delivered"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notify_delivery_latency_seconds",
		Help:    "Time spent submitting one notification to the gateway",
		Buckets: prometheus.DefBuckets,
	}, []string{"forwarded", "delivered"})

	if err := reg.Register(deliveries); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			deliveries = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			latency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	return &PromSink{deliveries: deliveries, latency: latency}, nil
}

// RecordDeliveries increments the counters for each delivery attempt.
func (s *PromSink) RecordDeliveries(recs []coremetrics.DeliveryRecord) error {
	for _, r := range recs {
		fwd := strconv.FormatBool(r.Forwarded)
		del := strconv.FormatBool(r.Delivered)
		s.deliveries.WithLabelValues(fwd, del).Inc()
		s.latency.WithLabelValues(fwd, del).Observe(r.Latency.Seconds())
	}
	return nil
}

// StartPromServer starts an HTTP server exposing Prometheus metrics on the
// given address. The server runs until the provided context is canceled. A
// dedicated ServeMux is used to avoid interfering with other handlers.
func StartPromServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

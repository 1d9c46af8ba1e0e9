// Package metrics exposes Prometheus collectors for the materials service and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chihwayi/ecd-materials-generator-sub003/core/material"
)

const namespace = "ecd_materials"

// Recorder implements material.Recorder on a dedicated Prometheus registry.
type Recorder struct {
	registry     *prometheus.Registry
	operations   *prometheus.CounterVec
	durations    *prometheus.HistogramVec
	registryMiss *prometheus.CounterVec
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

var _ material.Recorder = (*Recorder)(nil) // interface compliance check

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "material",
			Name:      "operations_total",
			Help:      "Material service operations by name and outcome.",
		}, []string{"op", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "material",
			Name:      "operation_duration_seconds",
			Help:      "Material service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		registryMiss: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worksheet",
			Name:      "registry_miss_total",
			Help:      "Placements of identifiers missing from the shape registry.",
		}, []string{"identifier"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.operations, r.durations, r.registryMiss, r.requests, r.latency,
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) Observe(op string, ok bool, dur time.Duration) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	r.operations.WithLabelValues(op, outcome).Inc()
	r.durations.WithLabelValues(op).Observe(dur.Seconds())
}

func (r *Recorder) RegistryMiss(identifier string) {
	r.registryMiss.WithLabelValues(identifier).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by route pattern, not by raw path.
func (r *Recorder) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			code := ctx.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					code = he.Code
				} else if code < http.StatusBadRequest {
					code = http.StatusInternalServerError
				}
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			method := ctx.Request().Method
			r.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
			r.latency.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

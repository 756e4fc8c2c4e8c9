// Package metrics exports sensor and locker activity to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/multilocker/pkg/events"
	"github.com/robotalks/multilocker/pkg/framework"
	"github.com/robotalks/multilocker/pkg/r308"
)

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Collector counts sensor exchanges and locker events.
// It implements r308.Observer and events.Sink.
type Collector struct {
	Commands        *prometheus.CounterVec   // labels: command, result
	CommandDuration *prometheus.HistogramVec // labels: command
	Events          *prometheus.CounterVec   // labels: type, role
}

// NewCollector registers the metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensor_commands_total",
			Help: "Sensor exchanges by command and result.",
		}, []string{"command", "result"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sensor_command_duration_seconds",
			Help:    "Sensor exchange latency.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2},
		}, []string{"command"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "locker_events_total",
			Help: "Locker events by type and role.",
		}, []string{"type", "role"}),
	}
	reg.MustRegister(c.Commands, c.CommandDuration, c.Events)
	return c
}

// CommandDone implements r308.Observer.
// result is the status name, or "link_error" when the exchange failed.
func (c *Collector) CommandDone(name string, st r308.Status, err error, d time.Duration) {
	result := st.String()
	if err != nil {
		result = "link_error"
	}
	c.Commands.WithLabelValues(name, result).Inc()
	c.CommandDuration.WithLabelValues(name).Observe(d.Seconds())
}

// Emit implements events.Sink.
func (c *Collector) Emit(e events.Event) error {
	c.Events.WithLabelValues(string(e.Type), e.Role.String()).Inc()
	return nil
}

// Serve serves /metrics on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux}
	glog.Infof("metrics on %s/metrics", addr)
	return framework.RunWithContextCancel(ctx, func() { srv.Close() }, srv.ListenAndServe)
}

// Package metrics collects and exposes Prometheus metrics for unitd.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all unitd-specific Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	// Spawn metrics.
	ForkTotal *prometheus.CounterVec
	ExecTotal *prometheus.CounterVec

	// Process table metrics.
	TableSize  prometheus.Gauge
	ReadyTotal *prometheus.CounterVec

	// Port metrics.
	PortsRegistered prometheus.Gauge

	BuildInfo *prometheus.GaugeVec
}

// New creates and registers all unitd metrics.
func New() *Collector {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: reg,

		ForkTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unitd_fork_total",
				Help: "Total number of fork-path process creations.",
			},
			[]string{"role", "result"},
		),

		ExecTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unitd_exec_total",
				Help: "Total number of exec-path process creations.",
			},
			[]string{"result"},
		),

		TableSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "unitd_process_table_size",
				Help: "Number of process records in the runtime table.",
			},
		),

		ReadyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unitd_process_ready_total",
				Help: "Total number of processes that completed bootstrap.",
			},
			[]string{"role"},
		),

		PortsRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "unitd_ports_registered",
				Help: "Number of ports currently attached to process records.",
			},
		),

		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "unitd_info",
				Help: "Build information about unitd.",
			},
			[]string{"version", "go_version"},
		),
	}

	reg.MustRegister(
		c.ForkTotal,
		c.ExecTotal,
		c.TableSize,
		c.ReadyTotal,
		c.PortsRegistered,
		c.BuildInfo,
	)

	return c
}

// Handler returns an http.Handler that serves the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// SetBuildInfo sets the constant build info gauge.
func (c *Collector) SetBuildInfo(version, goVersion string) {
	c.BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// IncFork counts one fork-path creation.
func (c *Collector) IncFork(role string, ok bool) {
	c.ForkTotal.WithLabelValues(role, result(ok)).Inc()
}

// IncExec counts one exec-path creation.
func (c *Collector) IncExec(ok bool) {
	c.ExecTotal.WithLabelValues(result(ok)).Inc()
}

// SetTableSize updates the process-table gauge.
func (c *Collector) SetTableSize(n int) {
	c.TableSize.Set(float64(n))
}

// IncReady counts one completed bootstrap.
func (c *Collector) IncReady(role string) {
	c.ReadyTotal.WithLabelValues(role).Inc()
}

// SetPortsRegistered updates the attached-ports gauge.
func (c *Collector) SetPortsRegistered(n int) {
	c.PortsRegistered.Set(float64(n))
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

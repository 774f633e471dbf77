// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/thruster_manager/internal/health"
	"github.com/relabs-tech/thruster_manager/internal/thruster"
)

// Metrics exposes thruster telemetry, commands and health as Prometheus
// series. All methods are safe on a nil receiver.
type Metrics struct {
	gatherer prometheus.Gatherer

	voltage     *prometheus.GaugeVec
	current     *prometheus.GaugeVec
	temperature *prometheus.GaugeVec
	alive       *prometheus.GaugeVec
	command     *prometheus.GaugeVec
	readErrors  *prometheus.CounterVec
	writeErrors *prometheus.CounterVec
	commands    prometheus.Counter
	healthLevel prometheus.Gauge
	healthTicks *prometheus.CounterVec
}

// New registers the thruster series on reg. Handler serves the same registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		voltage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thruster_voltage_volts",
			Help: "Last supply voltage reported by each thruster controller.",
		}, []string{"thruster"}),
		current: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thruster_current_amps",
			Help: "Last current draw reported by each thruster controller.",
		}, []string{"thruster"}),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thruster_temperature_celsius",
			Help: "Last controller temperature reported by each thruster.",
		}, []string{"thruster"}),
		alive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thruster_alive",
			Help: "1 if the thruster controller answered its last status read.",
		}, []string{"thruster"}),
		command: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thruster_command_ratio",
			Help: "Last signed command written to each thruster (-1..1).",
		}, []string{"thruster"}),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thruster_telemetry_read_errors_total",
			Help: "Telemetry reads that failed at the bus level.",
		}, []string{"thruster"}),
		writeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thruster_command_write_errors_total",
			Help: "Command writes that failed at the bus level.",
		}, []string{"thruster"}),
		commands: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thruster_velocity_commands_total",
			Help: "Velocity commands mixed and applied.",
		}),
		healthLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thruster_health_level",
			Help: "Aggregate thruster health level (0 OK, 2 ERROR).",
		}),
		healthTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thruster_health_evaluations_total",
			Help: "Health evaluations by resulting level.",
		}, []string{"level"}),
	}

	reg.MustRegister(
		m.voltage,
		m.current,
		m.temperature,
		m.alive,
		m.command,
		m.readErrors,
		m.writeErrors,
		m.commands,
		m.healthLevel,
		m.healthTicks,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTelemetry(id thruster.ID, t thruster.Telemetry) {
	if m == nil {
		return
	}
	label := id.String()
	m.voltage.WithLabelValues(label).Set(t.VoltageVolts)
	m.current.WithLabelValues(label).Set(t.CurrentAmps)
	m.temperature.WithLabelValues(label).Set(t.TemperatureCelsius)
	m.alive.WithLabelValues(label).Set(boolGauge(t.Alive))
}

func (m *Metrics) ObserveReadError(id thruster.ID) {
	if m == nil {
		return
	}
	m.readErrors.WithLabelValues(id.String()).Inc()
	m.alive.WithLabelValues(id.String()).Set(0)
}

func (m *Metrics) ObserveCommand(id thruster.ID, c thruster.Command) {
	if m == nil {
		return
	}
	m.command.WithLabelValues(id.String()).Set(c.Signed())
}

func (m *Metrics) ObserveWriteError(id thruster.ID) {
	if m == nil {
		return
	}
	m.writeErrors.WithLabelValues(id.String()).Inc()
}

func (m *Metrics) ObserveMix() {
	if m == nil {
		return
	}
	m.commands.Inc()
}

func (m *Metrics) ObserveStatus(st health.Status) {
	if m == nil {
		return
	}
	m.healthLevel.Set(float64(st.Level))
	m.healthTicks.WithLabelValues(st.Level.String()).Inc()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

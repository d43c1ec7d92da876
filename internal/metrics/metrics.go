package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every floodwatch collector. It is separate from the
// Prometheus default registry so tests and embedders get a clean set.
var Registry = prometheus.NewRegistry()

var (
	// StageTransitionsTotal counts stage transitions by the stage entered.
	StageTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodwatch_stage_transitions_total",
			Help: "Total number of narrative stage transitions",
		},
		[]string{"stage"},
	)

	// ResetsTotal counts narrative resets.
	ResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "floodwatch_resets_total",
			Help: "Total number of narrative resets",
		},
	)

	// StimuliTotal counts stimuli by kind and outcome: applied, capped or ignored.
	StimuliTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodwatch_stimuli_total",
			Help: "Total number of stimuli received",
		},
		[]string{"kind", "result"},
	)

	// WaterLevelPercent tracks the simulated water level.
	WaterLevelPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "floodwatch_water_level_percent",
			Help: "Current simulated water level in percent",
		},
	)

	// TimersArmedTotal counts timers armed by process key.
	TimersArmedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodwatch_timers_armed_total",
			Help: "Total number of simulation timers armed",
		},
		[]string{"key"},
	)

	// TimersFiredTotal counts timer callbacks executed by process key.
	TimersFiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodwatch_timers_fired_total",
			Help: "Total number of simulation timer callbacks executed",
		},
		[]string{"key"},
	)

	// TimersCancelledTotal counts pending timers cancelled by process key.
	TimersCancelledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodwatch_timers_cancelled_total",
			Help: "Total number of pending simulation timers cancelled",
		},
		[]string{"key"},
	)

	// StaleCallbacksTotal counts timer callbacks that fired for a stage that
	// was no longer active and were dropped.
	StaleCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodwatch_stale_callbacks_total",
			Help: "Total number of timer callbacks dropped because their stage was no longer active",
		},
		[]string{"key"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		StageTransitionsTotal,
		ResetsTotal,
		StimuliTotal,
		WaterLevelPercent,
		TimersArmedTotal,
		TimersFiredTotal,
		TimersCancelledTotal,
		StaleCallbacksTotal,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

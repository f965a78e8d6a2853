package metrics

import (
	"net/http"
	"strconv"

	"github.com/KevinKickass/OpenMotorControl/internal/motor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rccar"

// Collector owns a private registry so several instances can coexist in
// tests. It listens to controller events and is fed request outcomes by
// the REST layer.
type Collector struct {
	registry *prometheus.Registry

	commands      *prometheus.CounterVec
	motionSeconds *prometheus.HistogramVec
	motions       *prometheus.CounterVec
	stops         prometheus.Counter
	busy          prometheus.Gauge
	shutDown      prometheus.Gauge
	httpRequests  *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands received, by command and result.",
		}, []string{"command", "result"}),
		motionSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "motion_duration_seconds",
			Help:      "Requested duration of completed motions.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5},
		}, []string{"command"}),
		motions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "motions_started_total",
			Help:      "Motions started, by active pin.",
		}, []string{"pin"}),
		stops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stops_total",
			Help:      "Explicit stop commands executed.",
		}),
		busy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "motion_in_progress",
			Help:      "1 while a motion holds the motor pins.",
		}),
		shutDown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_shut_down",
			Help:      "1 once the motor controller has been shut down.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status code.",
		}, []string{"method", "route", "code"}),
	}

	c.registry.MustRegister(
		c.commands,
		c.motionSeconds,
		c.motions,
		c.stops,
		c.busy,
		c.shutDown,
		c.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// OnEvent implements motor.Listener.
func (c *Collector) OnEvent(ev motor.Event) {
	switch ev.Type {
	case motor.EventMotionStarted:
		c.busy.Set(1)
		c.motions.WithLabelValues(ev.Pin).Inc()
	case motor.EventMotionCompleted:
		c.busy.Set(0)
		c.motionSeconds.WithLabelValues(string(ev.Command)).Observe(ev.Duration)
	case motor.EventMotorsStopped:
		c.stops.Inc()
	case motor.EventShutdown:
		c.busy.Set(0)
		c.shutDown.Set(1)
	}
}

// ObserveCommand counts one /command outcome. Input that never parsed to a
// command is counted under "invalid".
func (c *Collector) ObserveCommand(command motor.Command, result string) {
	label := string(command)
	if label == "" {
		label = "invalid"
	}
	c.commands.WithLabelValues(label, result).Inc()
}

func (c *Collector) ObserveRequest(method, route string, code int) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

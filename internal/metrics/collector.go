package metrics

import (
	"time"

	"github.com/berfenger/melcloud2mqtt/internal/core/port"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// MetricsCollector exposes the last known state of every entity.
type MetricsCollector struct {
	accounts           prometheus.Gauge
	available          *prometheus.GaugeVec
	currentTemperature *prometheus.GaugeVec
	targetTemperature  *prometheus.GaugeVec
	sensorValue        *prometheus.GaugeVec
	commands           *prometheus.CounterVec
	pollDuration       *prometheus.HistogramVec
	pollSuccess        *prometheus.GaugeVec
	lastPoll           *prometheus.GaugeVec
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		accounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "melcloud_accounts",
			Help: "Config entries with a running account",
		}),
		available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "melcloud_entity_available_bool",
			Help: "Entity availability (1=available, 0=unavailable)",
		}, []string{"entity_type", "id"}),
		currentTemperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "melcloud_climate_current_temperature",
			Help: "Current temperature per climate",
		}, []string{"id"}),
		targetTemperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "melcloud_climate_target_temperature",
			Help: "Target temperature per climate",
		}, []string{"id"}),
		sensorValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "melcloud_sensor_value",
			Help: "Last value per sensor",
		}, []string{"id"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "melcloud_commands_total",
			Help: "Executed entity commands",
		}, []string{"entity_type", "command", "result"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "melcloud_poll_duration_seconds",
			Help:    "Duration of an account poll",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"entry_id"}),
		pollSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "melcloud_poll_success",
			Help: "Last poll success (1=ok, 0=error)",
		}, []string{"entry_id"}),
		lastPoll: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "melcloud_last_poll_timestamp_seconds",
			Help: "Last poll timestamp (epoch seconds)",
		}, []string{"entry_id"}),
	}
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	c.accounts.Describe(ch)
	c.available.Describe(ch)
	c.currentTemperature.Describe(ch)
	c.targetTemperature.Describe(ch)
	c.sensorValue.Describe(ch)
	c.commands.Describe(ch)
	c.pollDuration.Describe(ch)
	c.pollSuccess.Describe(ch)
	c.lastPoll.Describe(ch)
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	c.accounts.Collect(ch)
	c.available.Collect(ch)
	c.currentTemperature.Collect(ch)
	c.targetTemperature.Collect(ch)
	c.sensorValue.Collect(ch)
	c.commands.Collect(ch)
	c.pollDuration.Collect(ch)
	c.pollSuccess.Collect(ch)
	c.lastPoll.Collect(ch)
}

func (c *MetricsCollector) SetAccounts(count int) {
	c.accounts.Set(float64(count))
}

func (c *MetricsCollector) SetEntityAvailable(entityType, id string, available bool) {
	c.available.WithLabelValues(entityType, id).Set(boolToFloat(available))
}

func (c *MetricsCollector) SetClimateTemperatures(id string, current, target *float64) {
	if current != nil {
		c.currentTemperature.WithLabelValues(id).Set(*current)
	}
	if target != nil {
		c.targetTemperature.WithLabelValues(id).Set(*target)
	}
}

func (c *MetricsCollector) SetSensorValue(id string, value float64) {
	c.sensorValue.WithLabelValues(id).Set(value)
}

func (c *MetricsCollector) ObserveCommand(entityType, command string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.commands.WithLabelValues(entityType, command, result).Inc()
}

func (c *MetricsCollector) ObservePoll(entryId string, duration time.Duration, err error) {
	c.pollDuration.WithLabelValues(entryId).Observe(duration.Seconds())
	c.pollSuccess.WithLabelValues(entryId).Set(boolToFloat(err == nil))
	c.lastPoll.WithLabelValues(entryId).Set(float64(time.Now().Unix()))
}

// ForgetEntities drops the series of entities that no longer exist.
func (c *MetricsCollector) ForgetEntities(ids []string) {
	for _, id := range ids {
		c.available.DeletePartialMatch(prometheus.Labels{"id": id})
		c.currentTemperature.DeleteLabelValues(id)
		c.targetTemperature.DeleteLabelValues(id)
		c.sensorValue.DeleteLabelValues(id)
	}
}

// NewRegistry returns a registry with the collector plus the Go runtime and
// process collectors.
func NewRegistry(collector *MetricsCollector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collector)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

func boolToFloat(value bool) float64 {
	if value {
		return 1
	}
	return 0
}

// ensure interface compliance
var _ port.MetricsRecorder = (*MetricsCollector)(nil)

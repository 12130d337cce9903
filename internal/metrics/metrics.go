// Package metrics exposes Prometheus counters for editor activity.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records project, session and transport activity.
type Collector struct {
	chapterOps    *prometheus.CounterVec
	saves         *prometheus.CounterVec
	loadMisses    prometheus.Counter
	logins        *prometheus.CounterVec
	registrations *prometheus.CounterVec
	events        *prometheus.CounterVec
	toolCalls     *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		chapterOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_project_ops_total",
			Help: "Project operations by kind and whether they changed anything.",
		}, []string{"op", "changed"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_project_saves_total",
			Help: "Project writes to storage by result.",
		}, []string{"result"}),
		loadMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inkwell_project_load_misses_total",
			Help: "Project reads that found nothing usable.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_registrations_total",
			Help: "Registration attempts by result.",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_change_events_total",
			Help: "Published change events by topic kind.",
		}, []string{"kind"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_tool_calls_total",
			Help: "Tool and RPC calls by method and result.",
		}, []string{"method", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_http_status_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.chapterOps,
		c.saves,
		c.loadMisses,
		c.logins,
		c.registrations,
		c.events,
		c.toolCalls,
		c.httpStatus,
	)

	return c
}

// RecordChapterOp counts a project operation.
func (c *Collector) RecordChapterOp(op string, changed bool) {
	c.chapterOps.WithLabelValues(op, strconv.FormatBool(changed)).Inc()
}

// RecordSave counts a project write.
func (c *Collector) RecordSave(err error) {
	c.saves.WithLabelValues(result(err == nil)).Inc()
}

// RecordLoadMiss counts a project read that found nothing.
func (c *Collector) RecordLoadMiss() {
	c.loadMisses.Inc()
}

// RecordLogin counts a login attempt.
func (c *Collector) RecordLogin(success bool) {
	c.logins.WithLabelValues(result(success)).Inc()
}

// RecordRegistration counts a registration attempt.
func (c *Collector) RecordRegistration(success bool) {
	c.registrations.WithLabelValues(result(success)).Inc()
}

// RecordEvent counts a published change event. Project topics are keyed
// per user, so only the kind is kept as a label.
func (c *Collector) RecordEvent(_, kind string) {
	c.events.WithLabelValues(kind).Inc()
}

// RecordToolCall counts a dispatched tool or RPC method.
func (c *Collector) RecordToolCall(method string, success bool) {
	c.toolCalls.WithLabelValues(method, result(success)).Inc()
}

// RecordHTTPStatus counts an HTTP response.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

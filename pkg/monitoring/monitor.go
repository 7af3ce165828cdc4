package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// ReportsTotal outcome: ok / no_activity / cached / error
	ReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorm_trends_reports_total",
			Help: "Trends report passes by outcome",
		},
		[]string{"outcome"},
	)

	ReportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scorm_trends_report_duration_seconds",
			Help:    "Duration of a trends report pass",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
	)

	SlotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scorm_trends_slots_total",
			Help: "Interaction slots aggregated",
		},
	)

	// CappedSlotsTotal 题目数估算超过 max_slots 被截断的次数
	CappedSlotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scorm_trends_capped_slot_counts_total",
			Help: "Question counts clamped to report.max_slots",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ReportsTotal)
	prometheus.MustRegister(ReportDuration)
	prometheus.MustRegister(SlotsTotal)
	prometheus.MustRegister(CappedSlotsTotal)
}

// ObserveReport 记录一次报表生成
func ObserveReport(outcome string, started time.Time) {
	ReportsTotal.WithLabelValues(outcome).Inc()
	ReportDuration.Observe(time.Since(started).Seconds())
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

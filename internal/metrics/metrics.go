// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	letterOps    *prometheus.CounterVec
	driveOps     *prometheus.CounterVec
	driveLatency *prometheus.HistogramVec
	httpStatus   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		letterOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "letterbox_letter_ops_total",
			Help: "レター操作（create/update/delete）の合計数",
		}, []string{"op"}),
		driveOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "letterbox_drive_ops_total",
			Help: "Google Drive操作の成否別合計数",
		}, []string{"op", "result"}),
		driveLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "letterbox_drive_latency_seconds",
			Help:    "Google Drive操作のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "letterbox_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.letterOps,
		c.driveOps,
		c.driveLatency,
		c.httpStatus,
	)

	return c
}

// RecordLetterOp はレター操作を記録する。
func (c *Collector) RecordLetterOp(op string) {
	c.letterOps.WithLabelValues(op).Inc()
}

// RecordDriveOp はDrive操作の成否を記録する。
func (c *Collector) RecordDriveOp(op string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.driveOps.WithLabelValues(op, result).Inc()
}

// RecordDriveLatency はDrive操作のレイテンシを記録する。
func (c *Collector) RecordDriveLatency(op string, duration time.Duration) {
	c.driveLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Middleware は全レスポンスのステータスコードを記録するミドルウェアを返す。
func (c *Collector) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)
			c.RecordHTTPStatus(rec.statusCode)
		})
	}
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

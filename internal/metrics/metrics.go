// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	ObserveAuth(outcome string)
	RecordOAuthResolution(branch string)
	RecordUploadBytes(n int64)
	RecordJobRun(job string, err error)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	authOutcomes    *prometheus.CounterVec
	oauthResolution *prometheus.CounterVec
	uploadBytes     prometheus.Counter
	jobRuns         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aiclub_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aiclub_http_request_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aiclub_auth_guard_total",
			Help: "認証ガードの結果別件数",
		}, []string{"outcome"}),
		oauthResolution: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aiclub_oauth_resolution_total",
			Help: "Googleログイン時のアカウント解決経路別件数",
		}, []string{"branch"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aiclub_upload_bytes_total",
			Help: "保存したアップロードファイルの合計バイト数",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aiclub_job_runs_total",
			Help: "定期ジョブの実行結果別件数",
		}, []string{"job", "result"}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.authOutcomes,
		c.oauthResolution,
		c.uploadBytes,
		c.jobRuns,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// ObserveAuth は認証ガードの結果を記録する。
func (c *Collector) ObserveAuth(outcome string) {
	c.authOutcomes.WithLabelValues(outcome).Inc()
}

// RecordOAuthResolution はアカウント解決経路を記録する。
func (c *Collector) RecordOAuthResolution(branch string) {
	c.oauthResolution.WithLabelValues(branch).Inc()
}

// RecordUploadBytes は保存したファイルサイズを加算する。
func (c *Collector) RecordUploadBytes(n int64) {
	if n > 0 {
		c.uploadBytes.Add(float64(n))
	}
}

// RecordJobRun は定期ジョブの実行結果を記録する。
func (c *Collector) RecordJobRun(job string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.jobRuns.WithLabelValues(job, result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

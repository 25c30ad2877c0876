// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層およびミドルウェアから利用する。
type MetricsCollector interface {
	RecordAuthFailure(reason string)
	RecordQuotaRejection()
	RecordListPrune(count int)
	RecordOrphanReappend(count int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authFailure    *prometheus.CounterVec
	quotaRejection prometheus.Counter
	listPrune      prometheus.Counter
	orphanReappend prometheus.Counter
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdeck_auth_failure_total",
			Help: "認証失敗の合計数（理由別: invalid_token, token_expired, user_not_found）",
		}, []string{"reason"}),
		quotaRejection: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_quota_rejection_total",
			Help: "プロジェクト数上限による作成拒否の合計数",
		}),
		listPrune: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_list_prune_total",
			Help: "所有リストから剪定された欠落プロジェクトIDの合計数",
		}),
		orphanReappend: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_orphan_reappend_total",
			Help: "所有リストに再追加された孤立プロジェクトの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdeck_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.authFailure,
		c.quotaRejection,
		c.listPrune,
		c.orphanReappend,
		c.httpStatus,
	)

	return c
}

// RecordAuthFailure は認証失敗を理由付きで記録する。
func (c *Collector) RecordAuthFailure(reason string) {
	c.authFailure.WithLabelValues(reason).Inc()
}

// RecordQuotaRejection はクォータ超過による作成拒否を記録する。
func (c *Collector) RecordQuotaRejection() {
	c.quotaRejection.Inc()
}

// RecordListPrune は所有リストから剪定されたID数を記録する。
func (c *Collector) RecordListPrune(count int) {
	c.listPrune.Add(float64(count))
}

// RecordOrphanReappend は再追加された孤立プロジェクト数を記録する。
func (c *Collector) RecordOrphanReappend(count int) {
	c.orphanReappend.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

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
	registerSuccess prometheus.Counter
	registerFail    *prometheus.CounterVec
	loginSuccess    prometheus.Counter
	loginFail       prometheus.Counter
	oauthLogin      *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registerSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tucaja_register_success_total",
			Help: "ユーザー登録成功の合計数",
		}),
		registerFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tucaja_register_fail_total",
			Help: "ユーザー登録失敗の理由別合計数",
		}, []string{"reason"}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tucaja_login_success_total",
			Help: "パスワードログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tucaja_login_fail_total",
			Help: "パスワードログイン失敗の合計数",
		}),
		oauthLogin: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tucaja_oauth_login_total",
			Help: "Google OAuthログインの結果別合計数（login, linked, signup）",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tucaja_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tucaja_http_request_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.registerSuccess,
		c.registerFail,
		c.loginSuccess,
		c.loginFail,
		c.oauthLogin,
		c.httpStatus,
		c.requestDuration,
	)

	return c
}

// RecordRegisterSuccess はユーザー登録成功を記録する。
func (c *Collector) RecordRegisterSuccess() {
	c.registerSuccess.Inc()
}

// RecordRegisterFailure はユーザー登録失敗を理由付きで記録する。
func (c *Collector) RecordRegisterFailure(reason string) {
	c.registerFail.WithLabelValues(reason).Inc()
}

// RecordLoginSuccess はパスワードログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はパスワードログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// RecordOAuthLogin はGoogle OAuthログインの結果を記録する。
func (c *Collector) RecordOAuthLogin(outcome string) {
	c.oauthLogin.WithLabelValues(outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はHTTPリクエスト処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// gatherCounterValue は指定されたメトリクスのカウンター値を取得する。
func gatherCounterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !matchLabels(m, labels) {
				continue
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func matchLabels(m *dto.Metric, labels map[string]string) bool {
	got := make(map[string]string)
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range labels {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestCollector_AuthCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRegisterSuccess()
	c.RecordRegisterSuccess()
	c.RecordRegisterFailure("duplicate_email")
	c.RecordLoginSuccess()
	c.RecordLoginFailure()
	c.RecordLoginFailure()
	c.RecordLoginFailure()

	if got := gatherCounterValue(t, reg, "tucaja_register_success_total", nil); got != 2 {
		t.Errorf("register_success = %v, want 2", got)
	}
	if got := gatherCounterValue(t, reg, "tucaja_register_fail_total", map[string]string{"reason": "duplicate_email"}); got != 1 {
		t.Errorf("register_fail{duplicate_email} = %v, want 1", got)
	}
	if got := gatherCounterValue(t, reg, "tucaja_login_success_total", nil); got != 1 {
		t.Errorf("login_success = %v, want 1", got)
	}
	if got := gatherCounterValue(t, reg, "tucaja_login_fail_total", nil); got != 3 {
		t.Errorf("login_fail = %v, want 3", got)
	}
}

func TestCollector_OAuthOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOAuthLogin("login")
	c.RecordOAuthLogin("signup")
	c.RecordOAuthLogin("signup")
	c.RecordOAuthLogin("linked")

	if got := gatherCounterValue(t, reg, "tucaja_oauth_login_total", map[string]string{"outcome": "signup"}); got != 2 {
		t.Errorf("oauth_login{signup} = %v, want 2", got)
	}
	if got := gatherCounterValue(t, reg, "tucaja_oauth_login_total", map[string]string{"outcome": "linked"}); got != 1 {
		t.Errorf("oauth_login{linked} = %v, want 1", got)
	}
}

func TestCollector_HTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(401)
	c.RecordRequestDuration(25 * time.Millisecond)

	if got := gatherCounterValue(t, reg, "tucaja_http_status_total", map[string]string{"status_code": "200"}); got != 2 {
		t.Errorf("http_status{200} = %v, want 2", got)
	}
	if got := gatherCounterValue(t, reg, "tucaja_http_status_total", map[string]string{"status_code": "401"}); got != 1 {
		t.Errorf("http_status{401} = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "tucaja_http_request_duration_seconds" {
			found = true
			if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 1 {
				t.Errorf("histogram sample count = %d, want 1", count)
			}
		}
	}
	if !found {
		t.Error("request duration histogram not registered")
	}
}

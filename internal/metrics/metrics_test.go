package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCollectorExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.RecordRequest(http.MethodGet, 200, 42*time.Millisecond)
	c.RecordRejection("forbidden")
	c.RecordUpstream("openai", 100*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`gateway_requests_total{method="GET",status="200"} 1`,
		`gateway_rejections_total{kind="forbidden"} 1`,
		`gateway_upstream_duration_seconds_count{upstream="openai"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	a.RecordRejection("timeout")

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if strings.Contains(rec.Body.String(), `kind="timeout"`) {
		t.Error("collectors share state")
	}
}

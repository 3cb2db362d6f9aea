package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollectorExposesMetrics(t *testing.T) {
	c := New()
	c.SetBuildInfo("test", "go1.26")
	c.IncFork("router", true)
	c.IncFork("worker", false)
	c.IncExec(true)
	c.SetTableSize(3)
	c.IncReady("router")
	c.SetPortsRegistered(5)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		`unitd_fork_total{result="ok",role="router"} 1`,
		`unitd_fork_total{result="error",role="worker"} 1`,
		`unitd_exec_total{result="ok"} 1`,
		`unitd_process_table_size 3`,
		`unitd_process_ready_total{role="router"} 1`,
		`unitd_ports_registered 5`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestResultLabel(t *testing.T) {
	if result(true) != "ok" || result(false) != "error" {
		t.Fatal("result label mapping broken")
	}
}

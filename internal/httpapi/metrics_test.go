package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetrics_CountsRequestsAndErrors(t *testing.T) {
	metrics = newMetricsStore()
	h := NewHandler()

	// 1) ok request
	{
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("healthz status=%d body=%q", rr.Code, rr.Body.String())
		}
	}

	// 2) error request: empty body
	{
		req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader("{}"))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("convert status=%d body=%q", rr.Code, rr.Body.String())
		}
	}

	// 3) successful build
	{
		req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(`{"nodes":"ss://YWVzLTEyOC1nY206cA@1.2.3.4:8388#n1\nbad"}`))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("convert status=%d body=%q", rr.Code, rr.Body.String())
		}
	}

	// 4) metrics snapshot (the /metrics request itself isn't counted inside its own response).
	{
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("metrics status=%d body=%q", rr.Code, rr.Body.String())
		}

		body := rr.Body.String()
		for _, want := range []string{
			"sublink_http_requests_total 3\n",
			`pattern="GET /healthz",status="200"} 1`,
			`pattern="POST /api/convert",status="400"} 1`,
			`pattern="POST /api/convert",status="200"} 1`,
			`sublink_app_errors_total{stage="validate_request",code="INVALID_ARGUMENT"} 1`,
			"sublink_builds_total 1\n",
			"sublink_build_proxies_total 1\n",
			"sublink_node_lines_skipped_total 1\n",
		} {
			if !strings.Contains(body, want) {
				t.Fatalf("metrics body missing %q, got:\n%s", want, body)
			}
		}
	}
}

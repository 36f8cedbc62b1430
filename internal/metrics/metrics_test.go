package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /public/proposals/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := Middleware(mux)

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "GET /public/proposals/{token}", "418"))
	for _, tok := range []string{"a", "b"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/public/proposals/"+tok, nil))
		if rr.Code != http.StatusTeapot {
			t.Fatalf("expected 418 got %d", rr.Code)
		}
	}
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "GET /public/proposals/{token}", "418"))
	if after-before != 2 {
		t.Fatalf("expected 2 requests recorded under the pattern, got %v", after-before)
	}
}

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(ProposalTransitions.WithLabelValues("SENT", "APPROVED"))
	RecordTransition("SENT", "APPROVED")
	if got := testutil.ToFloat64(ProposalTransitions.WithLabelValues("SENT", "APPROVED")); got != before+1 {
		t.Fatalf("expected %v got %v", before+1, got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordLogin("partner", true)
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), "partners_login_attempts_total") {
		t.Fatalf("login counter missing from exposition")
	}
}

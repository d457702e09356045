package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}
}

func TestHelpersAfterRegister(t *testing.T) {
	_ = RegisterDefault()
	// Must not panic regardless of registration state.
	IncStart()
	IncFinish()
	IncFailure()
	ObserveDuration(125 * time.Millisecond)
}

func TestHandlerServes(t *testing.T) {
	_ = RegisterDefault()
	IncStart()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Fatal("empty metrics body")
	}
}

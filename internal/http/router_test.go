package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"ai-speech-translation-service/internal/models"
	"ai-speech-translation-service/internal/observability/metrics"
)

type fakeStatus struct {
	ready  bool
	status models.Status
}

func (f fakeStatus) Status() models.Status { return f.status }
func (f fakeStatus) Ready() bool           { return f.ready }

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		ready    bool
		wantCode int
		wantBody string
	}{
		{"liveness", "/v1/liveness", false, http.StatusOK, "ok"},
		{"ready", "/v1/readiness", true, http.StatusOK, "ready"},
		{"not ready", "/v1/readiness", false, http.StatusServiceUnavailable, "not ready"},
		{"unknown", "/v1/nope", true, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRouter(fakeStatus{ready: tt.ready}, prometheus.NewRegistry())
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRouter_Status(t *testing.T) {
	st := models.Status{SessionID: "abc", SessionsStarted: 2, State: "AWAITING_RESULT", UtterancesQueued: 3, UtterancesPlayed: 1}
	h := NewRouter(fakeStatus{ready: true, status: st}, prometheus.NewRegistry())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
	var got models.Status
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != st {
		t.Errorf("got %+v, want %+v", got, st)
	}
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.RecordSessionStart()

	h := NewRouter(fakeStatus{}, reg)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "speech_translation_sessions_total 1") {
		t.Errorf("expected session counter in output:\n%s", rec.Body.String())
	}
}

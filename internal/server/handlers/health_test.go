package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Hamhunter23/verifi-data-agent/internal/agent"
)

func TestHealthHandlerReturnsHealthyStatus(t *testing.T) {
	reporter := &agent.Agent{
		Name:  "verifi-test",
		Clock: func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
	manager := NewHealthManager(reporter, "1.2.3")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	manager.HealthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "healthy" {
		t.Fatalf("expected healthy status, got %s", resp.Status)
	}
	if resp.AgentName != "verifi-test" {
		t.Fatalf("expected agent name verifi-test, got %s", resp.AgentName)
	}
	if resp.Version != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %s", resp.Version)
	}
	if resp.Timestamp != "2025-01-02T03:04:05Z" {
		t.Fatalf("unexpected timestamp %s", resp.Timestamp)
	}
}

func TestLiveAndReadyReportCheckName(t *testing.T) {
	manager := NewHealthManager(&agent.Agent{}, "dev")

	checks := map[string]http.HandlerFunc{
		"live":  manager.LivenessHandler,
		"ready": manager.ReadinessHandler,
	}
	for check, handler := range checks {
		req := httptest.NewRequest(http.MethodGet, "/health/"+check, nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", check, rec.Code)
		}
		var resp HealthResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("%s: failed to decode response: %v", check, err)
		}
		if resp.Check != check {
			t.Fatalf("expected check %s, got %s", check, resp.Check)
		}
		if resp.AgentName != agent.DefaultName {
			t.Fatalf("expected default agent name, got %s", resp.AgentName)
		}
	}
}

func TestHealthHandlerWithoutReporter(t *testing.T) {
	manager := NewHealthManager(nil, "dev")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	manager.HealthHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Code != "SERVICE_UNAVAILABLE" {
		t.Fatalf("expected SERVICE_UNAVAILABLE error code, got %s", resp.Error.Code)
	}
}

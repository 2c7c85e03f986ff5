package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opsdeck/ticket-triage/internal/config"
	"github.com/opsdeck/ticket-triage/internal/domain"
	"go.uber.org/zap"
)

func newTestClient(serverURL string) *Client {
	return NewClient(config.AnalysisConfig{
		BaseURL:           serverURL,
		RequestTimeoutSec: 2,
	}, zap.NewNop())
}

func TestAnalyzeParsesAndNormalizes(t *testing.T) {
	var gotPath string
	var gotBody classifyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(classifyResponse{
			Priority:       "HIGH",
			RequiredSkills: []string{" Networking ", "networking", "", "VPN"},
			GuidanceNotes:  "  Check the concentrator.  ",
		})
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Analyze(context.Background(), "VPN down", "Cannot connect")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if gotPath != "/v1/classify" {
		t.Fatalf("expected /v1/classify, got %s", gotPath)
	}
	if gotBody.Title != "VPN down" || gotBody.Description != "Cannot connect" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if result.Priority != domain.TicketPriorityHigh {
		t.Fatalf("expected HIGH, got %s", result.Priority)
	}
	if want := []string{"networking", "vpn"}; len(result.RequiredSkills) != 2 ||
		result.RequiredSkills[0] != want[0] || result.RequiredSkills[1] != want[1] {
		t.Fatalf("expected normalized skills %v, got %v", want, result.RequiredSkills)
	}
	if result.GuidanceNotes != "Check the concentrator." {
		t.Fatalf("expected trimmed notes, got %q", result.GuidanceNotes)
	}
}

func TestAnalyzeUnknownPriorityDefaultsToMedium(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(classifyResponse{Priority: "CATASTROPHIC"})
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Analyze(context.Background(), "t", "d")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.Priority != domain.TicketPriorityMedium {
		t.Fatalf("expected MEDIUM fallback, got %s", result.Priority)
	}
}

func TestAnalyzeServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Analyze(context.Background(), "t", "d")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransient(err) {
		t.Fatalf("expected transient error for 502, got %v", err)
	}
}

func TestAnalyzeClientErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Analyze(context.Background(), "t", "d")
	if err == nil {
		t.Fatal("expected error")
	}
	if IsTransient(err) {
		t.Fatalf("expected permanent error for 422, got %v", err)
	}
}

func TestAnalyzeMalformedBodyIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Analyze(context.Background(), "t", "d")
	if err == nil {
		t.Fatal("expected error")
	}
	if IsTransient(err) {
		t.Fatalf("expected permanent error for bad body, got %v", err)
	}
}

func TestAnalyzeTransportFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening anymore

	_, err := newTestClient(server.URL).Analyze(context.Background(), "t", "d")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransient(err) {
		t.Fatalf("expected transient error for refused connection, got %v", err)
	}
}

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/premia/internal/contract"
	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/notifier"
)

func testReport() notifier.Report {
	return notifier.Report{
		RunID:      "run-1",
		Status:     "ok",
		OptionType: core.OptionPut,
		AsOf:       time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		Candidates: 3,
		Top: []contract.CandidateContract{
			{Underlying: "AAPL", ContractSymbol: "AAPL261120P00150000", Strike: 150, Score: 72.5},
		},
	}
}

func TestWebhook_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Webhook)(nil)
}

func TestWebhook_New_RequiresURL(t *testing.T) {
	if _, err := New("", nil); err == nil {
		t.Error("expected error for missing URL")
	}
}

func TestWebhook_Name(t *testing.T) {
	w, _ := New("http://example.com/hook", nil)
	if w.Name() != "webhook" {
		t.Errorf("expected 'webhook', got %s", w.Name())
	}
}

func TestWebhook_Notify(t *testing.T) {
	var receivedPayload map[string]any
	var receivedHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeader = r.Header.Get("X-Token")
		json.NewDecoder(r.Body).Decode(&receivedPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w, err := New(server.URL, map[string]string{"X-Token": "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := w.Notify(context.Background(), testReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedPayload["type"] != "screen_report" {
		t.Errorf("expected type 'screen_report', got %v", receivedPayload["type"])
	}
	if receivedPayload["run_id"] != "run-1" {
		t.Errorf("expected run_id 'run-1', got %v", receivedPayload["run_id"])
	}
	if receivedPayload["title"] != "premia put screen 2026-10-19: ok" {
		t.Errorf("unexpected title %v", receivedPayload["title"])
	}
	top, ok := receivedPayload["top"].([]any)
	if !ok || len(top) != 1 {
		t.Errorf("expected one top contract, got %v", receivedPayload["top"])
	}
	if receivedHeader != "abc" {
		t.Errorf("expected custom header, got %q", receivedHeader)
	}
}

func TestWebhook_Notify_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	w, _ := New(server.URL, nil)
	err := w.Notify(context.Background(), testReport())
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !errors.Is(err, core.ErrProviderUnavailable) {
		t.Errorf("expected PROVIDER_UNAVAILABLE, got %v", err)
	}
}

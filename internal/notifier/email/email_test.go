package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/premia/internal/contract"
	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/notifier"
	"github.com/newthinker/premia/internal/screener"
)

func validConfig() Config {
	return Config{Host: "smtp.example.com", From: "premia@example.com", To: []string{"user@example.com"}}
}

func testReport() notifier.Report {
	return notifier.Report{
		RunID:       "run-1",
		Status:      "partial",
		OptionType:  core.OptionPut,
		AsOf:        time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		CompletedAt: time.Date(2026, 10, 19, 14, 31, 0, 0, time.UTC),
		Candidates:  2,
		Top: []contract.CandidateContract{{
			ContractSymbol: "AAPL261120P00150000",
			Expiration:     time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC),
			Strike:         150,
			Score:          72.5,
			WhyRankedHigh:  "tight spread & deep OTM",
		}},
		Errors: []screener.UnderlyingError{{Symbol: "QQQ", Stage: screener.StageChain, Code: "NO_DATA", Reason: "empty chain"}},
	}
}

func TestEmail_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Email)(nil)
}

func TestEmail_New_RequiredFields(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing required fields")
	}
	e, err := New(validConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.cfg.Port != 587 {
		t.Errorf("expected default port 587, got %d", e.cfg.Port)
	}
	if e.Name() != "email" {
		t.Errorf("expected 'email', got %s", e.Name())
	}
}

func TestEmail_FormatHTML(t *testing.T) {
	body := formatHTML(testReport())

	for _, want := range []string{"<html>", "premia put screen 2026-10-19: partial", "AAPL261120P00150000", "150.00", "tight spread &amp; deep OTM", "Provider errors", "QQQ chain: NO_DATA"} {
		if !strings.Contains(body, want) {
			t.Errorf("body should contain %q", want)
		}
	}
}

func TestEmail_Notify(t *testing.T) {
	e, _ := New(validConfig())

	var gotAddr string
	var gotMsg string
	e.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = string(msg)
		if a != nil {
			t.Error("expected no auth without username")
		}
		return nil
	}

	if err := e.Notify(context.Background(), testReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Errorf("unexpected addr %s", gotAddr)
	}
	if !strings.Contains(gotMsg, "Subject: premia put screen 2026-10-19: partial\r\n") {
		t.Errorf("missing subject in message:\n%s", gotMsg)
	}
	if !strings.Contains(gotMsg, "Content-Type: text/html") {
		t.Error("expected html content type")
	}
}

func TestEmail_Notify_Failure(t *testing.T) {
	e, _ := New(validConfig())
	e.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	if err := e.Notify(context.Background(), testReport()); err == nil {
		t.Error("expected send failure")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Notify(ctx, testReport()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

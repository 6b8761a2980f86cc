package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kvistad/renderloop/internal/qa"
	"github.com/kvistad/renderloop/internal/step"
)

// mockNotifier counts deliveries.
type mockNotifier struct {
	events []Event
	err    error
}

func (m *mockNotifier) Notify(ctx context.Context, ev Event) error {
	m.events = append(m.events, ev)
	return m.err
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &mockNotifier{}, &mockNotifier{}
	m := Multi{a, b}

	if err := m.Notify(context.Background(), Event{Title: "t"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("deliveries = %d, %d; want 1 each", len(a.events), len(b.events))
	}
}

func TestMulti_BestEffort(t *testing.T) {
	failing := &mockNotifier{err: errors.New("down")}
	ok := &mockNotifier{}
	m := Multi{failing, ok}

	// One platform down must not block the other or surface an error.
	if err := m.Notify(context.Background(), Event{Title: "t"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(ok.events) != 1 {
		t.Errorf("healthy notifier deliveries = %d, want 1", len(ok.events))
	}
}

func TestSeverityColor(t *testing.T) {
	tests := []struct {
		severity string
		want     string
	}{
		{"success", "#36a64f"},
		{"warning", "#f2c744"},
		{"error", "#d00000"},
		{"info", "#439fe0"},
		{"", "#439fe0"},
	}
	for _, tt := range tests {
		if got := SeverityColor(tt.severity); got != tt.want {
			t.Errorf("SeverityColor(%q) = %q, want %q", tt.severity, got, tt.want)
		}
	}
}

func TestBlockedEvent(t *testing.T) {
	c := step.Classification{
		Category:     qa.CodeScaleMismatch,
		Label:        "Scale Mismatch",
		Confidence:   qa.ConfidenceHigh,
		Reason:       "Object scale does not match the room dimensions",
		AttemptCount: 5,
		MaxAttempts:  5,
	}
	ev := BlockedEvent("pl-00001", "Kitchen", "renders", "as-00001", c)

	if !strings.Contains(ev.Title, "Kitchen") || !strings.Contains(ev.Title, "renders") {
		t.Errorf("Title = %q", ev.Title)
	}
	if ev.Severity != "warning" {
		t.Errorf("Severity = %q, want warning", ev.Severity)
	}
	if ev.Body != c.Reason {
		t.Errorf("Body = %q", ev.Body)
	}

	var attempts string
	for _, f := range ev.Fields {
		if f.Name == "Attempts" {
			attempts = f.Value
		}
	}
	if attempts != "5/5" {
		t.Errorf("Attempts field = %q, want 5/5", attempts)
	}
}

func TestHaltEvent(t *testing.T) {
	ev := HaltEvent("pl-00002", "rejected by reviewer")
	if ev.Severity != "error" {
		t.Errorf("Severity = %q, want error", ev.Severity)
	}
	if !strings.Contains(ev.Title, "pl-00002") {
		t.Errorf("Title = %q", ev.Title)
	}
}

package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/me/premium-status", "GET", 200, time.Millisecond)
	m.RecordRequest("/me/premium-status", "GET", 200, time.Millisecond)
	m.RecordError("/webhooks/billing", "POST", "SIGNATURE_INVALID")
	m.RecordTransition("reset_to_upsell", "ok")

	snap := m.Snapshot()
	if snap.Requests["/me/premium-status|GET|200"] != 2 {
		t.Fatalf("requests = %+v", snap.Requests)
	}
	if got := snap.RequestDurationMS["/me/premium-status|GET|200"]; got != 2 {
		t.Fatalf("expected 2ms total duration, got %v", got)
	}
	if snap.Errors["/webhooks/billing|POST|SIGNATURE_INVALID"] != 1 {
		t.Fatalf("errors = %+v", snap.Errors)
	}
	if snap.Transitions["reset_to_upsell|ok"] != 1 {
		t.Fatalf("transitions = %+v", snap.Transitions)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordError("/", "GET", "X")
	m.RecordTransition("op", "ok")
	if snap := m.Snapshot(); snap.Requests != nil {
		t.Fatalf("expected empty snapshot")
	}
}

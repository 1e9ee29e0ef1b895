package obs

import "testing"

func TestMockMetrics_RecordsCountersAndHistograms(t *testing.T) {
	m := NewMockMetrics()
	m.IncCounter("ingest_stage_total", map[string]string{"stage": "normalize"})
	m.IncCounter("ingest_stage_total", map[string]string{"stage": "normalize"})
	m.ObserveHistogram("ingest_stage_ms", 12.5, map[string]string{"stage": "normalize"})

	if got := m.Counters["ingest_stage_total"]; got != 2 {
		t.Fatalf("expected counter 2, got %d", got)
	}
	if got := m.Hists["ingest_stage_ms"]; len(got) != 1 || got[0] != 12.5 {
		t.Fatalf("expected one histogram observation of 12.5, got %v", got)
	}
}

func TestNoopMetrics_DoesNotPanic(t *testing.T) {
	var m NoopMetrics
	m.IncCounter("x", nil)
	m.ObserveHistogram("y", 1.0, nil)
}

func TestNoopLogger_DoesNotPanic(t *testing.T) {
	var l NoopLogger
	l.Info("hello", map[string]any{"a": 1})
	l.Error("oops", nil)
	l.Debug("debug", nil)
}

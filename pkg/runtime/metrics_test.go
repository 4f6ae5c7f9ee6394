package runtime

import (
	"strings"
	"testing"
	"time"
)

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		if i >= len(times) {
			return times[len(times)-1]
		}
		t := times[i]
		i++
		return t
	}
}

func TestExecutionMetricsRecordAggregates(t *testing.T) {
	m := NewExecutionMetrics(nil)
	m.Record("opcode", "io_print", 10*time.Millisecond, nil)
	m.Record("opcode", "io_print", 30*time.Millisecond, nil)

	agg := m.Aggregated("opcode")
	a, ok := agg["io_print"]
	if !ok {
		t.Fatal("expected an aggregate for io_print")
	}
	if a.Count != 2 {
		t.Errorf("expected count 2, got %d", a.Count)
	}
	if a.Min != 0.01 || a.Max != 0.03 {
		t.Errorf("expected min=0.01 max=0.03, got min=%v max=%v", a.Min, a.Max)
	}
	if avg := a.Total / 2; avg != a.Avg {
		t.Errorf("expected avg to equal total/count, got avg=%v total=%v", a.Avg, a.Total)
	}
}

func TestExecutionMetricsTotalTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Second)
	m := NewExecutionMetrics(fixedClock(start, end))
	m.StartExecution()
	m.EndExecution()
	if m.TotalTime() != 2*time.Second {
		t.Errorf("expected TotalTime() == 2s, got %v", m.TotalTime())
	}
}

func TestExecutionMetricsTotalTimeZeroBeforeEnd(t *testing.T) {
	m := NewExecutionMetrics(nil)
	m.StartExecution()
	if m.TotalTime() != 0 {
		t.Error("expected TotalTime() to be 0 before EndExecution is called")
	}
}

func TestExecutionMetricsMeasure(t *testing.T) {
	m := NewExecutionMetrics(nil)
	done := m.Measure("opcode", "sleep")
	done()

	agg := m.Aggregated("opcode")
	if _, ok := agg["sleep"]; !ok {
		t.Fatal("expected Measure's deferred call to record an event")
	}
}

func TestExecutionMetricsTopOperationsSortsByTotalTime(t *testing.T) {
	m := NewExecutionMetrics(nil)
	m.Record("opcode", "fast", 1*time.Millisecond, nil)
	m.Record("opcode", "slow", 100*time.Millisecond, nil)

	top := m.TopOperations("opcode", 10, "total_time")
	if len(top) != 2 || top[0].Name != "slow" {
		t.Fatalf("expected slow to rank first by total_time, got %v", top)
	}
}

func TestExecutionMetricsTopOperationsSortsByCount(t *testing.T) {
	m := NewExecutionMetrics(nil)
	m.Record("opcode", "rare", 100*time.Millisecond, nil)
	m.Record("opcode", "frequent", 1*time.Millisecond, nil)
	m.Record("opcode", "frequent", 1*time.Millisecond, nil)

	top := m.TopOperations("opcode", 10, "count")
	if len(top) != 2 || top[0].Name != "frequent" {
		t.Fatalf("expected frequent to rank first by count, got %v", top)
	}
}

func TestExecutionMetricsTopOperationsLimitsN(t *testing.T) {
	m := NewExecutionMetrics(nil)
	m.Record("opcode", "a", time.Millisecond, nil)
	m.Record("opcode", "b", time.Millisecond, nil)
	m.Record("opcode", "c", time.Millisecond, nil)

	top := m.TopOperations("opcode", 2, "total_time")
	if len(top) != 2 {
		t.Errorf("expected TopOperations to cap at n=2, got %d", len(top))
	}
}

func TestExecutionMetricsSnapshotIsIndependentCopy(t *testing.T) {
	m := NewExecutionMetrics(nil)
	m.Record("opcode", "a", time.Millisecond, nil)

	snap := m.Snapshot()
	entry := snap["opcode"]["a"]
	entry.Count = 999

	fresh := m.Snapshot()
	if fresh["opcode"]["a"].Count == 999 {
		t.Error("expected Snapshot to return a copy, not a reference into internal state")
	}
}

func TestExecutionMetricsEventsPreservesOrder(t *testing.T) {
	m := NewExecutionMetrics(nil)
	m.Record("opcode", "first", time.Millisecond, nil)
	m.Record("opcode", "second", time.Millisecond, nil)

	events := m.Events()
	if len(events) != 2 || events[0].Name != "first" || events[1].Name != "second" {
		t.Fatalf("expected events in record order, got %v", events)
	}
}

func TestExecutionMetricsToJSON(t *testing.T) {
	m := NewExecutionMetrics(nil)
	m.Record("opcode", "a", time.Millisecond, nil)
	out, err := m.ToJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "opcode") || !strings.Contains(out, "\"a\"") {
		t.Errorf("expected rendered JSON to mention kind/name, got %q", out)
	}
}

func TestExecutionMetricsReportIncludesRecordedKinds(t *testing.T) {
	m := NewExecutionMetrics(nil)
	m.Record("opcode", "io_print", time.Millisecond, nil)
	m.Record("statement", "assign", time.Millisecond, nil)

	report := m.Report(5)
	if !strings.Contains(report, "opcode") || !strings.Contains(report, "statement") {
		t.Errorf("expected report to mention both recorded kinds, got %q", report)
	}
	if !strings.Contains(report, "io_print") {
		t.Error("expected report to mention the recorded operation name")
	}
}

func TestExecutionMetricsSummary(t *testing.T) {
	m := NewExecutionMetrics(nil)
	m.Record("opcode", "a", time.Millisecond, nil)
	m.Record("opcode", "b", time.Millisecond, nil)

	summary := m.Summary()
	if !strings.Contains(summary, "2") {
		t.Errorf("expected summary to mention the total operation count, got %q", summary)
	}
}

func TestNullMetricsIsNoop(t *testing.T) {
	var m Metrics = NullMetrics{}
	m.StartExecution()
	m.Record("opcode", "x", time.Millisecond, nil)
	m.EndExecution()
	if m.TotalTime() != 0 {
		t.Error("expected NullMetrics.TotalTime() to always be 0")
	}
	if m.Aggregated("opcode") != nil {
		t.Error("expected NullMetrics.Aggregated() to always be nil")
	}
	if len(m.Events()) != 0 {
		t.Error("expected NullMetrics.Events() to always be empty")
	}
}

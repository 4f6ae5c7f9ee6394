package runtime

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// OperationMetric is one recorded timing event.
type OperationMetric struct {
	Kind      string                 `json:"kind"`
	Name      string                 `json:"name"`
	Duration  float64                `json:"duration"`
	Timestamp float64                `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// AggregatedMetric is the running count/total/min/max/avg for one (kind, name).
type AggregatedMetric struct {
	Count int64   `json:"count"`
	Total float64 `json:"total"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}

func (a *AggregatedMetric) update(d float64) {
	if a.Count == 0 {
		a.Min = d
		a.Max = d
	} else {
		if d < a.Min {
			a.Min = d
		}
		if d > a.Max {
			a.Max = d
		}
	}
	a.Count++
	a.Total += d
	a.Avg = a.Total / float64(a.Count)
}

// Metrics is the collector interface. NullMetrics is the zero-cost no-op
// implementation; ExecutionMetrics is the recording implementation. Both are
// grounded on the source's metrics.py (ExecutionMetrics/NullMetrics).
type Metrics interface {
	StartExecution()
	EndExecution()
	Record(kind, name string, duration time.Duration, metadata map[string]interface{})
	Measure(kind, name string) func()
	TotalTime() time.Duration
	Aggregated(kind string) map[string]AggregatedMetric
	TopOperations(kind string, n int, sortBy string) []NamedAggregate
	Snapshot() map[string]map[string]AggregatedMetric
	Events() []OperationMetric
	Report(topN int) string
	Summary() string
}

// NamedAggregate pairs an operation name with its aggregate, for TopOperations.
type NamedAggregate struct {
	Name string
	AggregatedMetric
}

// NullMetrics discards every recording; used when metrics collection is
// disabled so the hot path pays no bookkeeping cost.
type NullMetrics struct{}

func (NullMetrics) StartExecution() {}
func (NullMetrics) EndExecution()   {}
func (NullMetrics) Record(string, string, time.Duration, map[string]interface{}) {}
func (NullMetrics) Measure(string, string) func()                               { return func() {} }
func (NullMetrics) TotalTime() time.Duration                                    { return 0 }
func (NullMetrics) Aggregated(string) map[string]AggregatedMetric               { return nil }
func (NullMetrics) TopOperations(string, int, string) []NamedAggregate          { return nil }
func (NullMetrics) Snapshot() map[string]map[string]AggregatedMetric            { return nil }
func (NullMetrics) Events() []OperationMetric                                   { return nil }
func (NullMetrics) Report(int) string                                          { return "Metrics collection disabled" }
func (NullMetrics) Summary() string                                            { return "Metrics disabled" }

// ExecutionMetrics accumulates per-operation counts and durations, plus a raw
// event log, across a single engine run.
type ExecutionMetrics struct {
	mu         sync.Mutex
	clock      func() time.Time
	start      time.Time
	end        time.Time
	events     []OperationMetric
	aggregated map[string]map[string]*AggregatedMetric
}

// NewExecutionMetrics creates a recording collector. clock lets tests inject
// a deterministic time source; pass nil to use time.Now.
func NewExecutionMetrics(clock func() time.Time) *ExecutionMetrics {
	if clock == nil {
		clock = time.Now
	}
	return &ExecutionMetrics{
		clock:      clock,
		aggregated: make(map[string]map[string]*AggregatedMetric),
	}
}

func (m *ExecutionMetrics) StartExecution() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.start = m.clock()
}

func (m *ExecutionMetrics) EndExecution() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.end = m.clock()
}

func (m *ExecutionMetrics) Record(kind, name string, duration time.Duration, metadata map[string]interface{}) {
	d := duration.Seconds()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, OperationMetric{
		Kind: kind, Name: name, Duration: d,
		Timestamp: float64(m.clock().UnixNano()) / 1e9,
		Metadata:  metadata,
	})
	byName, ok := m.aggregated[kind]
	if !ok {
		byName = make(map[string]*AggregatedMetric)
		m.aggregated[kind] = byName
	}
	agg, ok := byName[name]
	if !ok {
		agg = &AggregatedMetric{}
		byName[name] = agg
	}
	agg.update(d)
}

// Measure starts timing kind/name now and returns a function to call when
// the scoped operation completes.
func (m *ExecutionMetrics) Measure(kind, name string) func() {
	start := m.clock()
	return func() {
		m.Record(kind, name, m.clock().Sub(start), nil)
	}
}

func (m *ExecutionMetrics) TotalTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.end.IsZero() || m.start.IsZero() {
		return 0
	}
	return m.end.Sub(m.start)
}

func (m *ExecutionMetrics) Aggregated(kind string) map[string]AggregatedMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	byName, ok := m.aggregated[kind]
	if !ok {
		return nil
	}
	out := make(map[string]AggregatedMetric, len(byName))
	for k, v := range byName {
		out[k] = *v
	}
	return out
}

// TopOperations returns the top n operations of kind sorted by sortBy
// ("total_time", "count", "avg_time"), descending.
func (m *ExecutionMetrics) TopOperations(kind string, n int, sortBy string) []NamedAggregate {
	agg := m.Aggregated(kind)
	out := make([]NamedAggregate, 0, len(agg))
	for name, a := range agg {
		out = append(out, NamedAggregate{Name: name, AggregatedMetric: a})
	}
	sort.Slice(out, func(i, j int) bool {
		switch sortBy {
		case "count":
			return out[i].Count > out[j].Count
		case "avg_time":
			return out[i].Avg > out[j].Avg
		default:
			return out[i].Total > out[j].Total
		}
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Snapshot returns the full aggregated mapping {kind: {name: aggregate}}.
func (m *ExecutionMetrics) Snapshot() map[string]map[string]AggregatedMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]map[string]AggregatedMetric, len(m.aggregated))
	for kind, byName := range m.aggregated {
		inner := make(map[string]AggregatedMetric, len(byName))
		for name, a := range byName {
			inner[name] = *a
		}
		out[kind] = inner
	}
	return out
}

// Events returns the raw, timestamp-ordered event log.
func (m *ExecutionMetrics) Events() []OperationMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OperationMetric, len(m.events))
	copy(out, m.events)
	return out
}

// ToJSON renders the aggregated snapshot as indented JSON.
func (m *ExecutionMetrics) ToJSON() (string, error) {
	b, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var reportKinds = []string{"opcode", "statement", "workflow_call", "expression", "node"}

// Report renders a formatted text report, topN entries per kind.
func (m *ExecutionMetrics) Report(topN int) string {
	if topN <= 0 {
		topN = 10
	}
	var b strings.Builder
	sep := strings.Repeat("=", 80)
	b.WriteString(sep + "\n")
	b.WriteString("Execution Metrics Report\n")
	b.WriteString(sep + "\n")
	fmt.Fprintf(&b, "Total time: %.6fs\n", m.TotalTime().Seconds())
	for _, kind := range reportKinds {
		top := m.TopOperations(kind, topN, "total_time")
		if len(top) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n-- %s --\n", kind)
		for _, a := range top {
			fmt.Fprintf(&b, "  %-30s count=%-6d total=%.6fs min=%.6fs max=%.6fs avg=%.6fs\n",
				a.Name, a.Count, a.Total, math.Max(a.Min, 0), a.Max, a.Avg)
		}
	}
	return b.String()
}

// Summary renders a one-line summary.
func (m *ExecutionMetrics) Summary() string {
	total := 0
	for _, byName := range m.Snapshot() {
		for _, a := range byName {
			total += int(a.Count)
		}
	}
	return fmt.Sprintf("%d operations recorded over %.6fs", total, m.TotalTime().Seconds())
}

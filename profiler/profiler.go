// Package profiler records operation timings and counters of the layout
// phases and reports them through slog.
package profiler

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultMaxSamples bounds the samples kept per tracker.
const DefaultMaxSamples = 4096

// MetricTracker tracks statistics for a custom metric.
type MetricTracker struct {
	values []float64
	sum    float64
	min    float64
	max    float64
	count  int64
}

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// Profiler collects phase timings and per-page counters. It is safe for
// concurrent use, so one profiler can serve a whole batch.
type Profiler struct {
	mu             sync.Mutex
	startTime      time.Time
	maxSamples     int
	customMetrics  map[string]*MetricTracker
	operationTimes map[string]*TimeTracker
}

// New creates a profiler. maxSamples <= 0 uses DefaultMaxSamples.
func New(maxSamples int) *Profiler {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Profiler{
		startTime:      time.Now(),
		maxSamples:     maxSamples,
		customMetrics:  make(map[string]*MetricTracker),
		operationTimes: make(map[string]*TimeTracker),
	}
}

// RecordMetric records a custom metric value.
//
// Arguments:
//   - name: The name of the metric
//   - value: The metric value to record
func (p *Profiler) RecordMetric(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.customMetrics[name]
	if !exists {
		tracker = &MetricTracker{min: value, max: value}
		p.customMetrics[name] = tracker
	}

	tracker.values = append(tracker.values, value)
	if len(tracker.values) > p.maxSamples {
		// Remove oldest sample
		tracker.sum -= tracker.values[0]
		tracker.values = tracker.values[1:]
	}
	tracker.sum += value
	tracker.count++
	tracker.min = min(tracker.min, value)
	tracker.max = max(tracker.max, value)
}

// StartOperation begins timing an operation.
//
// Returns:
//   - A function to call when the operation completes
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.recordOperationTime(name, time.Since(start))
	}
}

func (p *Profiler) recordOperationTime(name string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{minTime: duration, maxTime: duration}
		p.operationTimes[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	if len(tracker.durations) > p.maxSamples {
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}
	tracker.totalTime += duration
	tracker.count++
	tracker.minTime = min(tracker.minTime, duration)
	tracker.maxTime = max(tracker.maxTime, duration)
}

// OperationStats summarizes one timed operation over the kept samples.
type OperationStats struct {
	Name  string
	Count int64
	Avg   time.Duration
	Min   time.Duration
	Max   time.Duration
}

// MetricStats summarizes one custom metric over the kept samples.
type MetricStats struct {
	Name  string
	Count int64
	Sum   float64
	Avg   float64
	Min   float64
	Max   float64
}

// Report is a snapshot of the profiler, sorted by name.
type Report struct {
	Uptime     time.Duration
	Operations []OperationStats
	Metrics    []MetricStats
}

// Snapshot returns the current statistics.
func (p *Profiler) Snapshot() Report {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := Report{Uptime: time.Since(p.startTime)}
	for name, t := range p.operationTimes {
		if len(t.durations) == 0 {
			continue
		}
		r.Operations = append(r.Operations, OperationStats{
			Name:  name,
			Count: t.count,
			Avg:   t.totalTime / time.Duration(len(t.durations)),
			Min:   t.minTime,
			Max:   t.maxTime,
		})
	}
	for name, m := range p.customMetrics {
		if len(m.values) == 0 {
			continue
		}
		r.Metrics = append(r.Metrics, MetricStats{
			Name:  name,
			Count: m.count,
			Sum:   m.sum,
			Avg:   m.sum / float64(len(m.values)),
			Min:   m.min,
			Max:   m.max,
		})
	}
	sort.Slice(r.Operations, func(i, j int) bool { return r.Operations[i].Name < r.Operations[j].Name })
	sort.Slice(r.Metrics, func(i, j int) bool { return r.Metrics[i].Name < r.Metrics[j].Name })
	return r
}

// LogReport writes the snapshot at info level, one record per operation and
// metric.
func (p *Profiler) LogReport(logger *slog.Logger) {
	r := p.Snapshot()
	logger.Info("profile", "uptime", r.Uptime.Truncate(time.Millisecond))
	for _, op := range r.Operations {
		logger.Info("operation timing",
			"operation", op.Name,
			"count", op.Count,
			"avg", op.Avg.Truncate(time.Microsecond),
			"min", op.Min.Truncate(time.Microsecond),
			"max", op.Max.Truncate(time.Microsecond),
		)
	}
	for _, m := range r.Metrics {
		logger.Info("metric",
			"metric", m.Name,
			"count", m.Count,
			"avg", m.Avg,
			"min", m.Min,
			"max", m.Max,
		)
	}
}
